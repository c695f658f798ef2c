// Package clanstats はクランデータから派生統計を算出する。
package clanstats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/IkonicR/clanova-manager/internal/model"
)

// ClanFetcher はクラン情報の取得に必要なインターフェース。
// clash.Clientが実装する。
type ClanFetcher interface {
	FetchClan(ctx context.Context, tag string) (*model.ClanRecord, error)
	FetchWarLog(ctx context.Context, tag string) (*model.WarLog, error)
}

// DescriptionSanitizer は上流から取得したクラン説明文のサニタイズインターフェース。
type DescriptionSanitizer interface {
	Sanitize(input string) string
}

// Service はクラン統計のビジネスロジックを提供する。
type Service struct {
	fetcher   ClanFetcher
	sanitizer DescriptionSanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(fetcher ClanFetcher, sanitizer DescriptionSanitizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:   fetcher,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// ClanOverview はクランの概要と主要統計を表す。
type ClanOverview struct {
	Tag           string `json:"tag"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Level         int    `json:"level"`
	Points        int    `json:"points"`
	WarWins       int    `json:"warWins"`
	WarWinStreak  int    `json:"warWinStreak"`
	CapitalPoints int    `json:"capitalPoints"`
	MemberCount   int    `json:"memberCount"`
}

// Overview はクランの概要を取得する。説明文はサニタイズ済み。
func (s *Service) Overview(ctx context.Context, tag string) (*ClanOverview, error) {
	clan, err := s.fetcher.FetchClan(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clan: %w", err)
	}

	return &ClanOverview{
		Tag:           clan.Tag,
		Name:          clan.Name,
		Description:   s.sanitizer.Sanitize(clan.Description),
		Level:         clan.ClanLevel,
		Points:        clan.ClanPoints,
		WarWins:       clan.WarWins,
		WarWinStreak:  clan.WarWinStreak,
		CapitalPoints: clan.CapitalPoints,
		MemberCount:   clan.Members,
	}, nil
}

// MemberStats はメンバー1人の統計を表す。
// DonationRatioは寄贈数 / max(1, 受領数)。
type MemberStats struct {
	Tag           string  `json:"tag"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	ExpLevel      int     `json:"expLevel"`
	Trophies      int     `json:"trophies"`
	Donations     int     `json:"donations"`
	Received      int     `json:"received"`
	DonationRatio float64 `json:"donationRatio"`
}

// TopMembers はトロフィー数の降順でメンバーをn人まで返す。
// n <= 0 の場合は全メンバーを返す。
func (s *Service) TopMembers(ctx context.Context, tag string, n int) ([]MemberStats, error) {
	clan, err := s.fetcher.FetchClan(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clan: %w", err)
	}

	stats := make([]MemberStats, 0, len(clan.MemberList))
	for _, m := range clan.MemberList {
		received := m.DonationsReceived
		if received < 1 {
			received = 1
		}
		stats = append(stats, MemberStats{
			Tag:           m.Tag,
			Name:          m.Name,
			Role:          m.Role,
			ExpLevel:      m.ExpLevel,
			Trophies:      m.Trophies,
			Donations:     m.Donations,
			Received:      m.DonationsReceived,
			DonationRatio: float64(m.Donations) / float64(received),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Trophies > stats[j].Trophies
	})

	if n > 0 && len(stats) > n {
		stats = stats[:n]
	}

	return stats, nil
}

// WarSummary はウォーログの集計結果を表す。
// CurrentStreakはログ先頭（直近）からの連勝数。
type WarSummary struct {
	Total         int `json:"total"`
	Wins          int `json:"wins"`
	Losses        int `json:"losses"`
	Draws         int `json:"draws"`
	CurrentStreak int `json:"currentStreak"`
}

// SummarizeWars はクランのウォーログを集計する。
func (s *Service) SummarizeWars(ctx context.Context, tag string) (*WarSummary, error) {
	log, err := s.fetcher.FetchWarLog(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch war log: %w", err)
	}

	summary := &WarSummary{}
	streakBroken := false
	for _, entry := range log.Items {
		summary.Total++
		switch strings.ToLower(entry.Result) {
		case "win":
			summary.Wins++
			if !streakBroken {
				summary.CurrentStreak++
			}
		case "lose":
			summary.Losses++
			streakBroken = true
		case "tie":
			summary.Draws++
			streakBroken = true
		default:
			// CWL中などresultがnullの戦績は勝敗に数えない
			summary.Total--
		}
	}

	return summary, nil
}

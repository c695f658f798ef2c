package clash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/IkonicR/clanova-manager/internal/model"
)

// ErrTokenNotConfigured はAPIトークン未設定を表す。
// 呼び出し側は設定エラー（500）として扱い、ルックアップ失敗とは区別する。
var ErrTokenNotConfigured = errors.New("clash API token is not configured")

// ClientConfig はClientの設定。
type ClientConfig struct {
	BaseURL     string // 上流APIのベースURL（例: https://cocproxy.royaleapi.dev/v1）
	Token       string // Bearerトークン。空の場合、全リクエストがErrTokenNotConfiguredで失敗する
	MaxBodySize int64  // レスポンスボディの最大読み取りサイズ
}

// Client はClash of Clans APIのクライアント。
// 単発のリクエスト／レスポンスのみで、リトライポリシーは持たない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     ClientConfig
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはsecurity.OutboundGuardが生成した安全なクライアントを渡すこと。
func NewClient(httpClient *http.Client, logger *slog.Logger, config ClientConfig) *Client {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 1048576
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// get は上流APIへGETリクエストを送り、2xxの場合にボディを返す。
// 非2xxの場合はステータスコードとボディをそのまま保持した
// *model.UpstreamErrorを返す（プロキシ関数が逐語的に中継する）。
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.config.Token == "" {
		return nil, ErrTokenNotConfigured
	}

	reqURL := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upstream request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("upstream returned error status",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &model.UpstreamError{
			StatusCode: resp.StatusCode,
			Details:    string(body),
		}
	}

	return body, nil
}

// rawPlayer は上流APIのプレイヤー応答から抽出に必要なフィールドのみデコードする。
type rawPlayer struct {
	Name          string `json:"name"`
	TownHallLevel int    `json:"townHallLevel"`
	Trophies      int    `json:"trophies"`
	Role          string `json:"role"`
	Clan          *struct {
		Tag  string `json:"tag"`
		Name string `json:"name"`
	} `json:"clan"`
}

// FetchPlayer はプレイヤーを取得し、要約レコードに抽出して返す。
// クランレスのプレイヤーではClanTag/ClanName/ClanRoleが空になる。
func (c *Client) FetchPlayer(ctx context.Context, tag string) (*model.PlayerRecord, error) {
	body, err := c.get(ctx, "/players/"+encodeTag(tag))
	if err != nil {
		return nil, err
	}

	var raw rawPlayer
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode player response: %w", err)
	}

	record := &model.PlayerRecord{
		Name:          raw.Name,
		PlayerTag:     DisplayTag(tag),
		TownHallLevel: raw.TownHallLevel,
		Trophies:      raw.Trophies,
		ClanRole:      raw.Role,
	}
	if raw.Clan != nil {
		record.ClanTag = raw.Clan.Tag
		record.ClanName = raw.Clan.Name
	}

	c.logger.Info("fetched player data",
		slog.String("player_tag", record.PlayerTag),
		slog.String("clan_tag", record.ClanTag),
	)

	return record, nil
}

// FetchClanRaw はクラン応答の生JSONを返す。
// プロキシ関数は上流のレコードをそのまま中継するため、デコードは行わない。
func (c *Client) FetchClanRaw(ctx context.Context, tag string) ([]byte, error) {
	return c.get(ctx, "/clans/"+encodeTag(tag))
}

// FetchClan はクランを取得してデコード済みレコードを返す。
func (c *Client) FetchClan(ctx context.Context, tag string) (*model.ClanRecord, error) {
	body, err := c.FetchClanRaw(ctx, tag)
	if err != nil {
		return nil, err
	}

	clan := &model.ClanRecord{}
	if err := json.Unmarshal(body, clan); err != nil {
		return nil, fmt.Errorf("failed to decode clan response: %w", err)
	}

	return clan, nil
}

// FetchWarLog はクランのウォーログを取得する。
// ウォーログ非公開のクランでは上流が403を返す（UpstreamErrorとして中継される）。
func (c *Client) FetchWarLog(ctx context.Context, tag string) (*model.WarLog, error) {
	body, err := c.get(ctx, "/clans/"+encodeTag(tag)+"/warlog")
	if err != nil {
		return nil, err
	}

	warLog := &model.WarLog{}
	if err := json.Unmarshal(body, warLog); err != nil {
		return nil, fmt.Errorf("failed to decode war log response: %w", err)
	}

	return warLog, nil
}

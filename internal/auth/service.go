// Package auth はパスワード認証、セッション管理、
// サインアップ時のプレイヤー連携オーケストレーションを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/IkonicR/clanova-manager/internal/clash"
	"github.com/IkonicR/clanova-manager/internal/model"
	"github.com/IkonicR/clanova-manager/internal/repository"
)

// PlayerLookup はサインアップ時のプレイヤー照会インターフェース。
// clash.Clientが実装する。
type PlayerLookup interface {
	FetchPlayer(ctx context.Context, tag string) (*model.PlayerRecord, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// サインアップ時のプレイヤータグ連携（プロフィール保存とクラン参加リクエスト作成）も担う。
type Service struct {
	players        PlayerLookup
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	profileRepo    repository.PlayerProfileRepository
	membershipRepo repository.ClanMembershipRepository
	notifier       *Notifier
	logger         *slog.Logger
	config         ServiceConfig
}

// NewService はServiceを生成する。notifierはnil可（通知なしで動作する）。
func NewService(
	players PlayerLookup,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	profileRepo repository.PlayerProfileRepository,
	membershipRepo repository.ClanMembershipRepository,
	notifier *Notifier,
	logger *slog.Logger,
	config ServiceConfig,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		players:        players,
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		profileRepo:    profileRepo,
		membershipRepo: membershipRepo,
		notifier:       notifier,
		logger:         logger,
		config:         config,
	}
}

// SignIn はメールアドレスとパスワードでサインインし、セッションを発行する。
// 認証失敗時はメールアドレスとパスワードのどちらが誤っているかを明かさない。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	if email == "" {
		return nil, nil, model.NewMissingFieldError("email")
	}
	if password == "" {
		return nil, nil, model.NewMissingFieldError("password")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user signed in", slog.String("user_id", user.ID))
	s.publish(SessionEvent{Type: EventSignedIn, SessionID: session.ID, UserID: user.ID})

	return session, user, nil
}

// SignUpResult はサインアップ処理の結果を表す。
// Sessionはアカウント作成後の自動サインイン分。セッション発行に失敗した場合はnil。
type SignUpResult struct {
	User     *model.User
	Session  *model.Session
	Outcome  model.SignUpOutcome
	ClanTag  string
	ClanName string
	ClanRole string
}

// SignUp はアカウントを作成し、playerTagが指定されていればプレイヤー連携を実行する。
//
// 連携処理の方針は「ベストエフォート。作成済みアカウントは決して失わない」:
// ステップ1（アカウント作成）の完了後、下流の失敗がいかなる場合でも
// アカウントのロールバックは行わない。プレイヤー照会に失敗しても
// クランタグなしのプロフィール行を保存し、部分的成功として報告する。
func (s *Service) SignUp(ctx context.Context, email, password, playerTag string) (*SignUpResult, error) {
	if email == "" {
		return nil, model.NewMissingFieldError("email")
	}
	if password == "" {
		return nil, model.NewMissingFieldError("password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("new user created", slog.String("user_id", user.ID))

	// ここから先はアカウント作成済み。失敗してもエラーではなく結果区分で報告する。
	result := &SignUpResult{User: user, Outcome: model.OutcomeCreated}

	// 自動サインイン。失敗してもアカウント作成の成功は変わらない。
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to create session after signup",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		result.Session = session
	}

	if playerTag != "" {
		s.linkPlayer(ctx, result, clash.NormalizeTag(playerTag))
	}

	sessionID := ""
	if result.Session != nil {
		sessionID = result.Session.ID
	}
	s.publish(SessionEvent{
		Type:      EventSignedUp,
		SessionID: sessionID,
		UserID:    user.ID,
		Outcome:   string(result.Outcome),
	})

	return result, nil
}

// linkPlayer はプレイヤータグの照会・プロフィール保存・クラン参加リクエスト作成を実行し、
// 到達度に応じてresult.Outcomeを設定する。エラーは返さない（全てresultに畳み込む）。
func (s *Service) linkPlayer(ctx context.Context, result *SignUpResult, tag string) {
	userID := result.User.ID

	record, err := s.players.FetchPlayer(ctx, tag)
	if err != nil || record == nil {
		if err != nil {
			s.logger.Warn("failed to fetch player data during signup",
				slog.String("user_id", userID),
				slog.String("player_tag", tag),
				slog.String("error", err.Error()),
			)
		}
		// 照会失敗でもタグのみのプロフィールは保存する
		if saveErr := s.saveProfile(ctx, userID, tag, nil); saveErr != nil {
			s.logger.Error("failed to save bare player profile",
				slog.String("user_id", userID),
				slog.String("error", saveErr.Error()),
			)
			result.Outcome = model.OutcomeDegraded
			return
		}
		result.Outcome = model.OutcomeTagUnverified
		return
	}

	var clanTag *string
	if record.ClanTag != "" {
		clanTag = &record.ClanTag
	}

	if err := s.saveProfile(ctx, userID, tag, clanTag); err != nil {
		s.logger.Error("failed to save player profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		// クランタグ付きの保存に失敗したら、タグのみのプロフィールを再試行する
		if retryErr := s.saveProfile(ctx, userID, tag, nil); retryErr != nil {
			s.logger.Error("failed to save bare player profile",
				slog.String("user_id", userID),
				slog.String("error", retryErr.Error()),
			)
		}
		result.Outcome = model.OutcomeDegraded
		return
	}

	if record.ClanTag == "" {
		result.Outcome = model.OutcomeNoClan
		return
	}

	role := record.ClanRole
	if role == "" {
		role = model.DefaultRole
	}

	if err := s.saveMembership(ctx, userID, record.ClanTag, role); err != nil {
		s.logger.Error("failed to save clan membership request",
			slog.String("user_id", userID),
			slog.String("clan_tag", record.ClanTag),
			slog.String("error", err.Error()),
		)
		result.Outcome = model.OutcomeDegraded
		return
	}

	result.ClanTag = record.ClanTag
	result.ClanName = record.ClanName
	result.ClanRole = role

	if model.StatusForRole(role) == model.MembershipAccepted {
		result.Outcome = model.OutcomeLeaderWelcome
	} else {
		result.Outcome = model.OutcomePendingApproval
	}
}

// saveProfile はプレイヤープロフィール行を保存する。clanTagはnil可。
func (s *Service) saveProfile(ctx context.Context, userID, playerTag string, clanTag *string) error {
	profile := &model.PlayerProfile{
		ID:        uuid.New().String(),
		UserID:    userID,
		PlayerTag: playerTag,
		ClanTag:   clanTag,
		CreatedAt: time.Now(),
	}
	return s.profileRepo.Create(ctx, profile)
}

// saveMembership はクラン参加リクエスト行を保存する。
// ロールは小文字で永続化し、leaderのみaccepted、それ以外はpendingで開始する。
func (s *Service) saveMembership(ctx context.Context, userID, clanTag, role string) error {
	req := &model.ClanMembershipRequest{
		ID:        uuid.New().String(),
		UserID:    userID,
		ClanTag:   clanTag,
		Role:      normalizeRole(role),
		Status:    model.StatusForRole(role),
		CreatedAt: time.Now(),
	}
	return s.membershipRepo.Create(ctx, req)
}

// normalizeRole はロール値を永続化用の小文字表現に揃える。空文字列は既定ロールになる。
func normalizeRole(role string) string {
	if role == "" {
		return model.DefaultRole
	}
	return strings.ToLower(role)
}

// SignOut はセッションを破棄する。リトライは行わない。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("user signed out", slog.String("session_id", sessionID))
	s.publish(SessionEvent{Type: EventSignedOut, SessionID: sessionID})
	return nil
}

// DeleteAccount はユーザーと関連データを削除する。
// 全セッションを先に破棄し、ユーザー行の削除で残り（プロフィール、参加リクエスト）は
// CASCADE削除される。
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user account deleted", slog.String("user_id", userID))
	s.publish(SessionEvent{Type: EventSignedOut, UserID: userID})
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewSessionNotFoundError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewSessionNotFoundError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewSessionNotFoundError()
	}

	return user, nil
}

// PlayerLink はユーザーに紐付くプレイヤー連携情報。
// サインアップ時に連携されなかった項目はnilになる。
type PlayerLink struct {
	Profile    *model.PlayerProfile
	Membership *model.ClanMembershipRequest
}

// GetPlayerLink はユーザーのプレイヤープロフィールとクラン参加リクエストを取得する。
// どちらも存在しない場合でもエラーにはせず、nilフィールドで返す。
func (s *Service) GetPlayerLink(ctx context.Context, userID string) (*PlayerLink, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	membership, err := s.membershipRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	return &PlayerLink{Profile: profile, Membership: membership}, nil
}

// publish は通知チャンネルが設定されている場合にイベントを配信する。
func (s *Service) publish(ev SessionEvent) {
	if s.notifier != nil {
		s.notifier.Publish(ev)
	}
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

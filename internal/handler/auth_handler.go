// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/IkonicR/clanova-manager/internal/auth"
	"github.com/IkonicR/clanova-manager/internal/middleware"
	"github.com/IkonicR/clanova-manager/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	SignUp(ctx context.Context, email, password, playerTag string) (*auth.SignUpResult, error)
	SignOut(ctx context.Context, sessionID string) error
	DeleteAccount(ctx context.Context, userID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	GetPlayerLink(ctx context.Context, userID string) (*auth.PlayerLink, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はパスワード認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	PlayerTag string `json:"playerTag"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// outcomeMessage はサインアップ結果区分をユーザー向けメッセージに変換する。
func outcomeMessage(result *auth.SignUpResult) string {
	switch result.Outcome {
	case model.OutcomeLeaderWelcome:
		return "ようこそ、リーダー！クラン「" + result.ClanName + "」の管理者として登録されました。"
	case model.OutcomePendingApproval:
		return "クラン「" + result.ClanName + "」への参加リクエストを送信しました。リーダーの承認をお待ちください。"
	case model.OutcomeNoClan:
		return "アカウントを作成しました。プレイヤーはクランに所属していません。"
	case model.OutcomeTagUnverified:
		return "アカウントを作成しました。プレイヤータグの確認は後ほど再試行できます。"
	case model.OutcomeDegraded:
		return "アカウントを作成しました。プレイヤー連携の一部が完了していません。"
	default:
		return "アカウントを作成しました。"
	}
}

// SignUp はアカウントを新規作成し、自動サインインする。
// POST /auth/signup {email, password, playerTag?}
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_BODY",
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "JSONフォーマットを確認してください。",
		})
		return
	}

	result, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.PlayerTag)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	if result.Session != nil {
		h.setSessionCookie(w, result.Session.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user": map[string]string{
			"id":    result.User.ID,
			"email": result.User.Email,
		},
		"outcome":  string(result.Outcome),
		"clanTag":  result.ClanTag,
		"clanName": result.ClanName,
		"clanRole": result.ClanRole,
		"message":  outcomeMessage(result),
	})
}

// Login はメールアドレスとパスワードでサインインする。
// POST /auth/login {email, password}
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_BODY",
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "JSONフォーマットを確認してください。",
		})
		return
	}

	session, user, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if signOutErr := h.service.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
			// サインアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		h.writeAuthError(w, model.NewSessionNotFoundError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Profile はログイン中のユーザーのプレイヤー連携情報を返す。
// プロフィール未連携の場合はprofileとmembershipがnullになる。
// GET /api/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		h.writeAuthError(w, model.NewSessionNotFoundError())
		return
	}

	link, err := h.service.GetPlayerLink(r.Context(), userID)
	if err != nil {
		slog.Error("failed to get player link",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	body := map[string]interface{}{
		"profile":    nil,
		"membership": nil,
	}
	if link.Profile != nil {
		body["profile"] = map[string]interface{}{
			"playerTag": link.Profile.PlayerTag,
			"clanTag":   link.Profile.ClanTag,
		}
	}
	if link.Membership != nil {
		body["membership"] = map[string]interface{}{
			"clanTag": link.Membership.ClanTag,
			"role":    link.Membership.Role,
			"status":  string(link.Membership.Status),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// DeleteAccount はログイン中のユーザーのアカウントと関連データを削除する。
// セッションミドルウェア通過後のルートに置かれる前提。
// DELETE /api/account
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		h.writeAuthError(w, model.NewSessionNotFoundError())
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		slog.Error("failed to delete account",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// writeAuthError はサービス層のエラーを統一フォーマットのHTTPレスポンスに変換する。
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected auth error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	status := http.StatusInternalServerError
	switch apiErr.Code {
	case model.ErrCodeMissingField:
		status = http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeSessionNotFound:
		status = http.StatusUnauthorized
	case model.ErrCodeEmailTaken:
		status = http.StatusConflict
	}

	middleware.WriteErrorResponse(w, status, apiErr)
}

// setSessionCookie はセッションCookie（HTTP Only）を設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

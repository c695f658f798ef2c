package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IkonicR/clanova-manager/internal/auth"
	"github.com/IkonicR/clanova-manager/internal/middleware"
	"github.com/IkonicR/clanova-manager/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signInFn         func(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	signUpFn         func(ctx context.Context, email, password, playerTag string) (*auth.SignUpResult, error)
	signOutFn        func(ctx context.Context, sessionID string) error
	deleteAccountFn  func(ctx context.Context, userID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
	getPlayerLinkFn  func(ctx context.Context, userID string) (*auth.PlayerLink, error)
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password, playerTag string) (*auth.SignUpResult, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password, playerTag)
	}
	return nil, nil
}

func (m *mockAuthService) SignOut(ctx context.Context, sessionID string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) DeleteAccount(ctx context.Context, userID string) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(ctx, userID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) GetPlayerLink(ctx context.Context, userID string) (*auth.PlayerLink, error) {
	if m.getPlayerLinkFn != nil {
		return m.getPlayerLinkFn(ctx, userID)
	}
	return &auth.PlayerLink{}, nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- SignUp ---

func TestSignUpHandler_Success_Returns201WithOutcome(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, playerTag string) (*auth.SignUpResult, error) {
			return &auth.SignUpResult{
				User:     &model.User{ID: "user-1", Email: email},
				Session:  &model.Session{ID: "session-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
				Outcome:  model.OutcomeLeaderWelcome,
				ClanTag:  "#CLAN9",
				ClanName: "Night Owls",
				ClanRole: "leader",
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"leader@example.com","password":"secret","playerTag":"#ABC"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["outcome"] != "leader_welcome" {
		t.Errorf("outcome = %v, want leader_welcome", got["outcome"])
	}
	if got["clanName"] != "Night Owls" {
		t.Errorf("clanName = %v, want Night Owls", got["clanName"])
	}
	if got["message"] == "" {
		t.Error("expected non-empty message")
	}

	// セッションCookieがHTTP Onlyで設定されること
	cookie := findCookie(t, resp, "session_id")
	if cookie == nil {
		t.Fatal("expected session_id cookie")
	}
	if cookie.Value != "session-1" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "session-1")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HTTP only")
	}
}

func TestSignUpHandler_SessionMissing_StillReturns201WithoutCookie(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, playerTag string) (*auth.SignUpResult, error) {
			return &auth.SignUpResult{
				User:    &model.User{ID: "user-1", Email: email},
				Outcome: model.OutcomeCreated,
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"a@example.com","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if c := findCookie(t, resp, "session_id"); c != nil {
		t.Error("session cookie must not be set when auto sign-in failed")
	}
}

func TestSignUpHandler_EmailTaken_Returns409(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, playerTag string) (*auth.SignUpResult, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"taken@example.com","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	var got map[string]string
	json.NewDecoder(resp.Body).Decode(&got)
	if got["code"] != model.ErrCodeEmailTaken {
		t.Errorf("code = %q, want %q", got["code"], model.ErrCodeEmailTaken)
	}
}

func TestSignUpHandler_InvalidBody_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- Login ---

func TestLoginHandler_Success_SetsSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
			return &model.Session{ID: "session-login", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
				&model.User{ID: "user-1", Email: email}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"a@example.com","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cookie := findCookie(t, resp, "session_id")
	if cookie == nil {
		t.Fatal("expected session_id cookie")
	}
	if cookie.Value != "session-login" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "session-login")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
}

func TestLoginHandler_InvalidCredentials_Returns401(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email":"a@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var got map[string]string
	json.NewDecoder(resp.Body).Decode(&got)
	if got["code"] != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", got["code"], model.ErrCodeInvalidCredentials)
	}
}

// --- Logout ---

func TestLogoutHandler_DeletesSessionAndClearsCookie(t *testing.T) {
	var signedOutID string
	svc := &mockAuthService{
		signOutFn: func(ctx context.Context, sessionID string) error {
			signedOutID = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-to-end"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if signedOutID != "session-to-end" {
		t.Errorf("signed out session = %q, want %q", signedOutID, "session-to-end")
	}

	cookie := findCookie(t, resp, "session_id")
	if cookie == nil {
		t.Fatal("expected clearing cookie")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", cookie.MaxAge)
	}
}

func TestLogoutHandler_NoCookie_StillReturns204(t *testing.T) {
	svc := &mockAuthService{
		signOutFn: func(ctx context.Context, sessionID string) error {
			t.Fatal("SignOut should not be called without a cookie")
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

// --- Me ---

func TestMeHandler_ValidSession_ReturnsUser(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: "me@example.com"}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-me"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got map[string]string
	json.NewDecoder(resp.Body).Decode(&got)
	if got["id"] != "user-1" || got["email"] != "me@example.com" {
		t.Errorf("unexpected response: %v", got)
	}
}

func TestMeHandler_NoCookie_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestMeHandler_InvalidSession_Returns401(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, model.NewSessionNotFoundError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "stale"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- DeleteAccount ---

func TestDeleteAccountHandler_DeletesAndClearsCookie(t *testing.T) {
	var deletedUserID string
	svc := &mockAuthService{
		deleteAccountFn: func(ctx context.Context, userID string) error {
			deletedUserID = userID
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodDelete, "/api/account", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.DeleteAccount(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if deletedUserID != "user-1" {
		t.Errorf("deleted user = %q, want %q", deletedUserID, "user-1")
	}

	cookie := findCookie(t, resp, "session_id")
	if cookie == nil {
		t.Fatal("expected clearing session cookie")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookie.MaxAge)
	}
}

func TestDeleteAccountHandler_NoUserInContext_Returns401(t *testing.T) {
	svc := &mockAuthService{
		deleteAccountFn: func(ctx context.Context, userID string) error {
			t.Fatal("DeleteAccount should not be called")
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodDelete, "/api/account", nil)
	w := httptest.NewRecorder()

	h.DeleteAccount(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestDeleteAccountHandler_ServiceError_Returns500(t *testing.T) {
	svc := &mockAuthService{
		deleteAccountFn: func(ctx context.Context, userID string) error {
			return context.DeadlineExceeded
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodDelete, "/api/account", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.DeleteAccount(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

func TestProfileHandler_ReturnsLinkedProfileAndMembership(t *testing.T) {
	clanTag := "#CLAN9"
	svc := &mockAuthService{
		getPlayerLinkFn: func(ctx context.Context, userID string) (*auth.PlayerLink, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return &auth.PlayerLink{
				Profile: &model.PlayerProfile{
					UserID:    userID,
					PlayerTag: "#ABC123",
					ClanTag:   &clanTag,
				},
				Membership: &model.ClanMembershipRequest{
					UserID:  userID,
					ClanTag: clanTag,
					Role:    "member",
					Status:  model.MembershipPending,
				},
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.Profile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Profile *struct {
			PlayerTag string  `json:"playerTag"`
			ClanTag   *string `json:"clanTag"`
		} `json:"profile"`
		Membership *struct {
			ClanTag string `json:"clanTag"`
			Role    string `json:"role"`
			Status  string `json:"status"`
		} `json:"membership"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Profile == nil || body.Profile.PlayerTag != "#ABC123" {
		t.Errorf("profile = %+v, want playerTag #ABC123", body.Profile)
	}
	if body.Profile.ClanTag == nil || *body.Profile.ClanTag != "#CLAN9" {
		t.Errorf("profile clanTag = %v, want #CLAN9", body.Profile.ClanTag)
	}
	if body.Membership == nil || body.Membership.Status != "pending" {
		t.Errorf("membership = %+v, want status pending", body.Membership)
	}
}

func TestProfileHandler_UnlinkedUser_ReturnsNullFields(t *testing.T) {
	svc := &mockAuthService{
		getPlayerLinkFn: func(ctx context.Context, userID string) (*auth.PlayerLink, error) {
			return &auth.PlayerLink{}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.Profile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["profile"] != nil {
		t.Errorf("profile = %v, want null", body["profile"])
	}
	if body["membership"] != nil {
		t.Errorf("membership = %v, want null", body["membership"])
	}
}

func TestProfileHandler_NoUserInContext_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	w := httptest.NewRecorder()

	h.Profile(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

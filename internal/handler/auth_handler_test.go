package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/guri/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signUpFn         func(ctx context.Context, email, password, name string) (*model.User, *model.Session, error)
	signInFn         func(ctx context.Context, email, password string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password, name string) (*model.User, *model.Session, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password, name)
	}
	return nil, nil, nil
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func defaultAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{SessionMaxAge: 86400}
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestSignUpHandler_Success_Returns201WithCookie(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, name string) (*model.User, *model.Session, error) {
			user := &model.User{ID: "user-1", Email: email, Name: name}
			session := &model.Session{ID: "new-session", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
			return user, session, nil
		},
	}
	h := NewAuthHandler(svc, defaultAuthConfig())

	body := strings.NewReader(`{"email":"alice@example.com","password":"password123","name":"Alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "user-1" || got.Email != "alice@example.com" || got.Name != "Alice" {
		t.Errorf("response = %+v", got)
	}

	cookie := findCookie(t, resp, "session_id")
	if cookie == nil {
		t.Fatal("session cookie should be set")
	}
	if cookie.Value != "new-session" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "new-session")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
}

func TestSignUpHandler_InvalidJSON_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, defaultAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestSignUpHandler_EmailTaken_Returns409(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, name string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(svc, defaultAuthConfig())

	body := strings.NewReader(`{"email":"taken@example.com","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	var errResp apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Code != model.ErrCodeEmailTaken {
		t.Errorf("code = %q, want %q", errResp.Code, model.ErrCodeEmailTaken)
	}
	if errResp.Action == "" {
		t.Error("error response should include an action")
	}
}

func TestSignInHandler_Success_SetsCookie(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return &model.Session{ID: "login-session", UserID: "user-1"}, nil
		},
	}
	h := NewAuthHandler(svc, defaultAuthConfig())

	body := strings.NewReader(`{"email":"alice@example.com","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got map[string]string
	json.NewDecoder(resp.Body).Decode(&got)
	if got["user_id"] != "user-1" {
		t.Errorf("user_id = %q, want %q", got["user_id"], "user-1")
	}

	cookie := findCookie(t, resp, "session_id")
	if cookie == nil || cookie.Value != "login-session" {
		t.Error("session cookie should be set to the new session ID")
	}
}

func TestSignInHandler_WrongCredentials_Returns401(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, defaultAuthConfig())

	body := strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var errResp apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", errResp.Code, model.ErrCodeInvalidCredentials)
	}
}

func TestLogoutHandler_DeletesSessionAndClearsCookie(t *testing.T) {
	var deletedSession string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deletedSession = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, defaultAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "current-session"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if deletedSession != "current-session" {
		t.Errorf("deleted session = %q, want %q", deletedSession, "current-session")
	}

	cookie := findCookie(t, resp, "session_id")
	if cookie == nil {
		t.Fatal("clearing cookie should be set")
	}
	if cookie.Value != "" || cookie.MaxAge != -1 {
		t.Errorf("cookie should be cleared: value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestLogoutHandler_WithoutCookie_StillSucceeds(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, defaultAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestMeHandler_ReturnsCurrentUser(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID == "valid-session" {
				return &model.User{ID: "user-1", Email: "alice@example.com", Name: "Alice"}, nil
			}
			return nil, model.NewUnauthorizedError()
		},
	}
	h := NewAuthHandler(svc, defaultAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got userResponse
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != "user-1" || got.Name != "Alice" {
		t.Errorf("response = %+v", got)
	}
}

func TestMeHandler_WithoutCookie_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, defaultAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック
type mockAuthService struct {
	signUpFunc            func(ctx context.Context, email, password, displayName string, photoURL *string) (*model.Session, error)
	signInFunc            func(ctx context.Context, email, password string) (*model.Session, error)
	federatedLoginURLFunc func(state string) string
	federatedSignInFunc   func(ctx context.Context, code string) (*model.Session, error)
	signOutFunc           func(ctx context.Context, sessionID string) error
	updateProfileFunc     func(ctx context.Context, sess *model.Session, displayName string, photoURL *string) error
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password, displayName string, photoURL *string) (*model.Session, error) {
	return m.signUpFunc(ctx, email, password, displayName, photoURL)
}
func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	return m.signInFunc(ctx, email, password)
}
func (m *mockAuthService) FederatedLoginURL(state string) string {
	return m.federatedLoginURLFunc(state)
}
func (m *mockAuthService) FederatedSignIn(ctx context.Context, code string) (*model.Session, error) {
	return m.federatedSignInFunc(ctx, code)
}
func (m *mockAuthService) SignOut(ctx context.Context, sessionID string) error {
	return m.signOutFunc(ctx, sessionID)
}
func (m *mockAuthService) UpdateProfile(ctx context.Context, sess *model.Session, displayName string, photoURL *string) error {
	return m.updateProfileFunc(ctx, sess, displayName, photoURL)
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "http://localhost:8080",
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

// サインイン成功でセッションCookieが設定されることを検証
func TestAuthHandler_SignIn(t *testing.T) {
	service := &mockAuthService{
		signInFunc: func(ctx context.Context, email, password string) (*model.Session, error) {
			return &model.Session{ID: "sess-1", Email: email, DisplayName: "User"}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	body, _ := json.Marshal(map[string]string{"email": "user@example.com", "password": "Secret1"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value != "sess-1" {
		t.Fatalf("session cookie should be set, got %+v", sessionCookie)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be http only")
	}

	var resp sessionResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Email != "user@example.com" {
		t.Errorf("unexpected email: %s", resp.Email)
	}
}

// 認証失敗時にプロバイダーのメッセージが返ることを検証
func TestAuthHandler_SignIn_ProviderError(t *testing.T) {
	service := &mockAuthService{
		signInFunc: func(ctx context.Context, email, password string) (*model.Session, error) {
			return nil, model.NewIdentityProviderError("INVALID_LOGIN_CREDENTIALS")
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	body, _ := json.Marshal(map[string]string{"email": "user@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var resp apiErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Message != "INVALID_LOGIN_CREDENTIALS" {
		t.Errorf("provider message should pass through, got %q", resp.Message)
	}
}

// パスワードポリシー違反でアカウントが作成されないことを検証
func TestAuthHandler_SignUp_PasswordPolicy(t *testing.T) {
	service := &mockAuthService{
		signUpFunc: func(ctx context.Context, email, password, displayName string, photoURL *string) (*model.Session, error) {
			t.Error("sign up must not be issued for invalid password")
			return nil, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	body, _ := json.Marshal(map[string]string{
		"username": "User",
		"email":    "user@example.com",
		"password": "abcdef", // 大文字も数字もない
	})
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp apiErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Fields["password"] != "Password must have an uppercase letter!" {
		t.Errorf("unexpected password error: %q", resp.Fields["password"])
	}
}

// 有効なフォームでアカウントが作成されることを検証
func TestAuthHandler_SignUp(t *testing.T) {
	service := &mockAuthService{
		signUpFunc: func(ctx context.Context, email, password, displayName string, photoURL *string) (*model.Session, error) {
			if password != "Abcdef1" {
				t.Errorf("unexpected password: %s", password)
			}
			return &model.Session{ID: "sess-1", Email: email, DisplayName: displayName}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	body, _ := json.Marshal(map[string]string{
		"username": "New User",
		"email":    "new@example.com",
		"password": "Abcdef1",
	})
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

// サインアウトでセッションが削除されCookieが失効することを検証
func TestAuthHandler_SignOut(t *testing.T) {
	var deletedID string
	service := &mockAuthService{
		signOutFunc: func(ctx context.Context, sessionID string) error {
			deletedID = sessionID
			return nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deletedID != "sess-1" {
		t.Errorf("session should be deleted, got %q", deletedID)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.MaxAge != -1 {
		t.Errorf("session cookie should be expired, got %+v", sessionCookie)
	}
}

// セッションなしのサインアウトでもCookieが失効することを検証
func TestAuthHandler_SignOut_NoSession(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	rec := httptest.NewRecorder()
	h.SignOut(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

// フェデレーテッドサインイン開始でstateクッキーとリダイレクトが設定されることを検証
func TestAuthHandler_FederatedLogin(t *testing.T) {
	service := &mockAuthService{
		federatedLoginURLFunc: func(state string) string {
			return "https://accounts.example.com/auth?state=" + state
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	rec := httptest.NewRecorder()
	h.FederatedLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/federated/login", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("oauth state cookie should be set")
	}
	if loc := rec.Header().Get("Location"); loc != "https://accounts.example.com/auth?state="+stateCookie.Value {
		t.Errorf("redirect should carry the state, got %s", loc)
	}
}

// stateが一致しないコールバックが拒否されることを検証
func TestAuthHandler_FederatedCallback_StateMismatch(t *testing.T) {
	service := &mockAuthService{
		federatedSignInFunc: func(ctx context.Context, code string) (*model.Session, error) {
			t.Error("sign in must not proceed on state mismatch")
			return nil, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/federated/callback?code=c&state=bad", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "good"})
	rec := httptest.NewRecorder()
	h.FederatedCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// 正常なコールバックでセッションが開始されることを検証
func TestAuthHandler_FederatedCallback(t *testing.T) {
	service := &mockAuthService{
		federatedSignInFunc: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "auth-code" {
				t.Errorf("unexpected code: %s", code)
			}
			return &model.Session{ID: "sess-1", Email: "fed@example.com"}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/federated/callback?code=auth-code&state=st", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "st"})
	rec := httptest.NewRecorder()
	h.FederatedCallback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value != "sess-1" {
		t.Error("session cookie should be set after callback")
	}
}

// セッションなしの/meが401を返すことを検証
func TestAuthHandler_Me_Unauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig(), nil)

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// セッションありの/meがアイデンティティスナップショットを返すことを検証
func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig(), nil)

	req := withSession(httptest.NewRequest(http.MethodGet, "/me", nil), "user@example.com", "tok")
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp sessionResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Email != "user@example.com" {
		t.Errorf("unexpected email: %s", resp.Email)
	}
}

// プロフィール更新がサービスへ伝搬することを検証
func TestAuthHandler_UpdateProfile(t *testing.T) {
	var gotName string
	service := &mockAuthService{
		updateProfileFunc: func(ctx context.Context, sess *model.Session, displayName string, photoURL *string) error {
			gotName = displayName
			return nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	body, _ := json.Marshal(map[string]string{"displayName": "Renamed"})
	req := withSession(httptest.NewRequest(http.MethodPut, "/me/profile", bytes.NewReader(body)), "user@example.com", "tok")
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if gotName != "Renamed" {
		t.Errorf("unexpected display name: %s", gotName)
	}
}

// 表示名なしのプロフィール更新が拒否されることを検証
func TestAuthHandler_UpdateProfile_MissingName(t *testing.T) {
	service := &mockAuthService{
		updateProfileFunc: func(ctx context.Context, sess *model.Session, displayName string, photoURL *string) error {
			t.Error("profile update must not be issued without display name")
			return nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig(), nil)

	body, _ := json.Marshal(map[string]string{"photoURL": "https://example.com/p.png"})
	req := withSession(httptest.NewRequest(http.MethodPut, "/me/profile", bytes.NewReader(body)), "user@example.com", "tok")
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp apiErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Fields["displayName"] != "Name is required" {
		t.Errorf("unexpected field error: %q", resp.Fields["displayName"])
	}
}

// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	mw "github.com/mdtanvirislamrakib/historivault/internal/middleware"
	"github.com/mdtanvirislamrakib/historivault/internal/model"
	"github.com/mdtanvirislamrakib/historivault/internal/validation"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password, displayName string, photoURL *string) (*model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	FederatedLoginURL(state string) string
	FederatedSignIn(ctx context.Context, code string) (*model.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	UpdateProfile(ctx context.Context, sess *model.Session, displayName string, photoURL *string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインイン/サインアウト関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics ValidationRecorder
}

// ValidationRecorder はバリデーション拒否のメトリクス記録に必要なインターフェース。
type ValidationRecorder interface {
	RecordValidationRejected(form string)
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, metrics ValidationRecorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: metrics,
	}
}

// signInRequest はサインインリクエストのボディ。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signUpRequest はアカウント作成リクエストのボディ。
type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
	Password string `json:"password"`
}

// sessionResponse はサインイン済みアイデンティティのレスポンス。
type sessionResponse struct {
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

func toSessionResponse(sess *model.Session) sessionResponse {
	return sessionResponse{
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		PhotoURL:    sess.PhotoURL,
	}
}

// SignIn はメール/パスワードのサインインを処理する。
// POST /login
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	sess, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, sess.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSessionResponse(sess))
}

// SignUp はアカウント作成を処理する。
// POST /signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	form := validation.SignUpForm{
		Username: req.Username,
		Email:    req.Email,
		PhotoURL: req.PhotoURL,
		Password: req.Password,
	}
	if errs := validation.ValidateSignUpForm(form); len(errs) > 0 {
		if h.metrics != nil {
			h.metrics.RecordValidationRejected("sign_up")
		}
		writeValidationErrorResponse(w, errs)
		return
	}

	var photoURL *string
	if req.PhotoURL != "" {
		photoURL = &req.PhotoURL
	}

	sess, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.Username, photoURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, sess.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSessionResponse(sess))
}

// FederatedLogin はフェデレーテッドサインインのフローを開始する。
// GET /auth/federated/login
func (h *AuthHandler) FederatedLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.FederatedLoginURL(state), http.StatusTemporaryRedirect)
}

// FederatedCallback はフェデレーテッドサインインのコールバックを処理する。
// GET /auth/federated/callback?code=xxx&state=yyy
func (h *AuthHandler) FederatedCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認証処理
	sess, err := h.service.FederatedSignIn(r.Context(), code)
	if err != nil {
		slog.Error("federated sign in failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 4. セッションCookieを設定してホームへ戻す
	h.setSessionCookie(w, sess.ID)
	http.Redirect(w, r, h.config.BaseURL+"/", http.StatusSeeOther)
}

// SignOut はサインアウトを処理する。
// セッション行とベアラートークンは常に破棄される。
// POST /logout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session_id")
	if err == nil && cookie.Value != "" {
		if err := h.service.SignOut(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to delete session", slog.String("error", err.Error()))
			// Cookieの破棄は続行する
		}
	}

	http.SetCookie(w, mw.ExpiredSessionCookie(mw.SessionCookieConfig{
		Secure: h.config.CookieSecure,
		Domain: h.config.CookieDomain,
	}))
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のサインイン状態を返す。
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSessionResponse(sess))
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// UpdateProfile は表示名と写真URLの更新を処理する。
// PUT /me/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	if req.DisplayName == "" {
		writeValidationErrorResponse(w, map[string]string{"displayName": "Name is required"})
		return
	}

	var photoURL *string
	if req.PhotoURL != "" {
		photoURL = &req.PhotoURL
	}

	if err := h.service.UpdateProfile(r.Context(), sess, req.DisplayName, photoURL); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie はサインイン成功時のセッションCookieを設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, mw.NewSessionCookie(sessionID, mw.SessionCookieConfig{
		Secure: h.config.CookieSecure,
		Domain: h.config.CookieDomain,
		MaxAge: h.config.SessionMaxAge,
	}))
}

// invalidRequestError はリクエストボディ解析失敗のエラーを返す。
func invalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "Failed to parse the request body.",
		Category: "validation",
		Action:   "Send the request as valid JSON.",
	}
}

// generateState はOAuthのstateパラメータ用ランダム値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Package identity は外部IDプロバイダーとの連携とセッション管理を提供する。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// ProviderClient は外部IDプロバイダーのREST APIに対する操作のインターフェース。
// メール/パスワードによるアカウント作成・サインインとプロフィール更新を提供する。
type ProviderClient interface {
	// SignUp は新しいアカウントを作成する。
	SignUp(ctx context.Context, email, password string) (*model.Identity, error)

	// SignIn はメールとパスワードでサインインする。
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)

	// UpdateProfile は表示名と写真URLを更新し、更新後のアイデンティティを返す。
	UpdateProfile(ctx context.Context, email, displayName string, photoURL *string) (*model.Identity, error)
}

// HTTPProviderConfig はHTTPProviderClientの設定。
type HTTPProviderConfig struct {
	BaseURL string
	APIKey  string

	// HTTPClientが未指定の場合はhttp.DefaultClientを使用する。
	HTTPClient *http.Client
}

// HTTPProviderClient はIDプロバイダーのREST APIを呼び出すProviderClient実装。
type HTTPProviderClient struct {
	config HTTPProviderConfig
	client *http.Client
}

// NewHTTPProviderClient はHTTPProviderClientを生成する。
func NewHTTPProviderClient(config HTTPProviderConfig) *HTTPProviderClient {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProviderClient{config: config, client: client}
}

// providerAccountResponse はプロバイダーのアカウント系エンドポイントのレスポンス。
type providerAccountResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// providerErrorResponse はプロバイダーのエラーレスポンス。
type providerErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp は新しいアカウントを作成する。
func (c *HTTPProviderClient) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	return c.postAccount(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignIn はメールとパスワードでサインインする。
func (c *HTTPProviderClient) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	return c.postAccount(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// UpdateProfile は表示名と写真URLを更新する。
func (c *HTTPProviderClient) UpdateProfile(ctx context.Context, email, displayName string, photoURL *string) (*model.Identity, error) {
	body := map[string]any{
		"email":       email,
		"displayName": displayName,
	}
	if photoURL != nil {
		body["photoUrl"] = *photoURL
	}
	return c.postAccount(ctx, "accounts:update", body)
}

// postAccount はプロバイダーのアカウント系エンドポイントへPOSTする。
// 非2xxレスポンスはプロバイダーのメッセージをそのまま保持した
// authカテゴリのAPIErrorに変換する。
func (c *HTTPProviderClient) postAccount(ctx context.Context, endpoint string, payload map[string]any) (*model.Identity, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s?key=%s", c.config.BaseURL, endpoint, c.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// プロバイダーのエラーメッセージはそのままユーザーに提示する
		var errResp providerErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error.Message != "" {
			return nil, model.NewIdentityProviderError(errResp.Error.Message)
		}
		return nil, model.NewIdentityProviderError(fmt.Sprintf("identity provider returned status %d", resp.StatusCode))
	}

	var account providerAccountResponse
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("failed to parse provider response: %w", err)
	}

	if account.Email == "" {
		return nil, fmt.Errorf("empty email in provider response")
	}

	ident := &model.Identity{
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}
	if account.PhotoURL != "" {
		ident.PhotoURL = &account.PhotoURL
	}

	return ident, nil
}

// compile-time interface check
var _ ProviderClient = (*HTTPProviderClient)(nil)

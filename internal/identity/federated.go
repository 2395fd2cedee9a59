package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

const (
	defaultFederatedAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultFederatedTokenURL    = "https://oauth2.googleapis.com/token"
	defaultFederatedUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// FederatedProvider はフェデレーテッドサインイン（OAuth 2.0）のインターフェース。
type FederatedProvider interface {
	// GetLoginURL は認可エンドポイントへのリダイレクトURLを生成する。
	GetLoginURL(state string) string

	// ExchangeCode は認可コードをユーザーのアイデンティティに解決する。
	ExchangeCode(ctx context.Context, code string) (*model.Identity, error)
}

// FederatedOAuthConfig はFederatedOAuthProviderの設定。
type FederatedOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// HTTPClientが未指定の場合はhttp.DefaultClientを使用する。
	HTTPClient *http.Client
}

// FederatedOAuthProvider はOAuth 2.0によるフェデレーテッドサインインを提供する。
type FederatedOAuthProvider struct {
	config FederatedOAuthConfig
	client *http.Client
}

// NewFederatedOAuthProvider はFederatedOAuthProviderを生成する。
func NewFederatedOAuthProvider(config FederatedOAuthConfig) *FederatedOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultFederatedAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultFederatedTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultFederatedUserInfoURL
	}
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &FederatedOAuthProvider{config: config, client: client}
}

// GetLoginURL は認可エンドポイントへのリダイレクトURLを生成する。
// スコープにはemail, profileを含む。
func (p *FederatedOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// federatedTokenResponse はトークンエンドポイントのレスポンス。
type federatedTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// federatedUserInfo はユーザー情報エンドポイントのレスポンス。
type federatedUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、
// ユーザー情報をアイデンティティとして返す。
func (p *FederatedOAuthProvider) ExchangeCode(ctx context.Context, code string) (*model.Identity, error) {
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	userInfo, err := p.fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	ident := &model.Identity{
		Email:       userInfo.Email,
		DisplayName: userInfo.Name,
	}
	if userInfo.Picture != "" {
		ident.PhotoURL = &userInfo.Picture
	}
	return ident, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *FederatedOAuthProvider) exchangeToken(ctx context.Context, code string) (*federatedTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp federatedTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchUserInfo はアクセストークンでユーザー情報を取得する。
func (p *FederatedOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*federatedUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo federatedUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfo.Email == "" {
		return nil, fmt.Errorf("empty email in user info response")
	}

	return &userInfo, nil
}

// compile-time interface check
var _ FederatedProvider = (*FederatedOAuthProvider)(nil)

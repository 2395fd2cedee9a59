package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// 外部コラボレーター
	ArtifactAPIBaseURL    string // リモートアーティファクトAPIのベースURL
	IdentityAPIBaseURL    string // IDプロバイダーREST APIのベースURL
	IdentityAPIKey        string
	FederatedClientID     string
	FederatedClientSecret string
	FederatedRedirectURL  string

	// Session
	SessionMaxAge int

	// Outbound
	RemoteTimeout time.Duration
	RemoteMaxSize int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitSubmit  int

	// Route Guard
	// 観測された版によって保護の有無が揺れていたルートは設定で決める。
	GuardContactSupport bool
	GuardDocumentation  bool

	// Server
	ServerPort  string
	MetricsPort string // Prometheusスクレイプ用の別ポート
	BaseURL     string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ArtifactAPIBaseURL = os.Getenv("ARTIFACT_API_BASE_URL")
	if cfg.ArtifactAPIBaseURL == "" {
		missing = append(missing, "ARTIFACT_API_BASE_URL")
	}

	cfg.IdentityAPIBaseURL = os.Getenv("IDENTITY_API_BASE_URL")
	if cfg.IdentityAPIBaseURL == "" {
		missing = append(missing, "IDENTITY_API_BASE_URL")
	}

	cfg.IdentityAPIKey = os.Getenv("IDENTITY_API_KEY")
	if cfg.IdentityAPIKey == "" {
		missing = append(missing, "IDENTITY_API_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.FederatedClientID = getEnvString("FEDERATED_CLIENT_ID", "")
	cfg.FederatedClientSecret = getEnvString("FEDERATED_CLIENT_SECRET", "")
	cfg.FederatedRedirectURL = getEnvString("FEDERATED_REDIRECT_URL", "")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RemoteTimeout = getEnvDuration("REMOTE_TIMEOUT", 10*time.Second)
	cfg.RemoteMaxSize = getEnvInt64("REMOTE_MAX_SIZE", 5242880)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSubmit = getEnvInt("RATE_LIMIT_SUBMIT", 10)
	cfg.GuardContactSupport = getEnvBool("GUARD_CONTACT_SUPPORT", true)
	cfg.GuardDocumentation = getEnvBool("GUARD_DOCUMENTATION", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9091")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

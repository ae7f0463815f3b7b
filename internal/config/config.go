// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AssetStoreKind は証跡画像の保存先種別を表す。
type AssetStoreKind string

const (
	// AssetStoreLocal はローカルディスク保存を示す。
	AssetStoreLocal AssetStoreKind = "local"
	// AssetStoreS3 はAmazon S3保存を示す。
	AssetStoreS3 AssetStoreKind = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 管理者メールリストを含め、ビジネスロジックからの暗黙のグローバル参照は行わない。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionMaxAge int

	// Admin
	AdminEmails []string

	// Upload
	AssetStore    AssetStoreKind
	UploadDir     string
	UploadMaxSize int64

	// S3 (AssetStore == s3 の場合のみ使用)
	S3Bucket    string
	S3KeyPrefix string
	S3PublicURL string

	// Notification (SMTP)
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPassword  string
	NotifyFrom    string
	NotifyAdminTo string

	// Rate Limit (req/min/user)
	RateLimitGeneral int
	RateLimitUpload  int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（未設定の変数のみ反映）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envはローカル開発用。存在しない場合は無視する。
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.AdminEmails = parseEmailList(os.Getenv("ADMIN_EMAILS"))

	store := getEnvString("ASSET_STORE", string(AssetStoreLocal))
	switch AssetStoreKind(store) {
	case AssetStoreLocal, AssetStoreS3:
		cfg.AssetStore = AssetStoreKind(store)
	default:
		return nil, fmt.Errorf("invalid ASSET_STORE value: %q (must be local or s3)", store)
	}

	cfg.UploadDir = getEnvString("UPLOAD_DIR", "uploads")
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 10485760)

	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3KeyPrefix = getEnvString("S3_KEY_PREFIX", "evidence")
	cfg.S3PublicURL = os.Getenv("S3_PUBLIC_URL")
	if cfg.AssetStore == AssetStoreS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when ASSET_STORE=s3")
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnvString("SMTP_PORT", "587")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.NotifyFrom = getEnvString("NOTIFY_FROM", cfg.SMTPUser)
	cfg.NotifyAdminTo = os.Getenv("NOTIFY_ADMIN_TO")

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// IsAdminEmail は指定メールアドレスが管理者リストに含まれるかを返す。
// 大文字小文字は区別しない。
func (c *Config) IsAdminEmail(email string) bool {
	for _, admin := range c.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// parseEmailList はカンマ区切りのメールアドレスリストを解析する。
// 空要素と前後の空白は取り除く。
func parseEmailList(raw string) []string {
	if raw == "" {
		return nil
	}
	var emails []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			emails = append(emails, e)
		}
	}
	return emails
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

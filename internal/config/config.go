// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// minJWTSecretBytes はHS256署名鍵の最小長。
const minJWTSecretBytes = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	// Auth
	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// Ledger
	BonusTimeZone string `env:"BONUS_TIME_ZONE" envDefault:"UTC"`

	// Posts
	RedditBaseURL      string        `env:"REDDIT_BASE_URL" envDefault:"https://www.reddit.com"`
	RedditSubreddit    string        `env:"REDDIT_SUBREDDIT" envDefault:"javascript"`
	TwitterBaseURL     string        `env:"TWITTER_BASE_URL" envDefault:"https://api.twitter.com"`
	TwitterBearerToken string        `env:"TWITTER_BEARER_TOKEN"`
	TwitterQuery       string        `env:"TWITTER_QUERY" envDefault:"javascript"`
	PostsLimit         int           `env:"POSTS_LIMIT" envDefault:"10"`
	FetchTimeout       time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`
	FetchMaxSize       int64         `env:"FETCH_MAX_SIZE" envDefault:"2097152"`

	// Rate Limit（リクエスト数/分）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitSave    int `env:"RATE_LIMIT_SAVE" envDefault:"30"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Server
	ServerPort      string        `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Cookie
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS（カンマ区切り）
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	bonusLocation *time.Location
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if len(c.JWTSecret) < minJWTSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretBytes))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitSave <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_GENERAL and RATE_LIMIT_SAVE must be positive"))
	}

	loc, err := time.LoadLocation(c.BonusTimeZone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid BONUS_TIME_ZONE %q: %w", c.BonusTimeZone, err))
	}
	c.bonusLocation = loc

	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins

	return errors.Join(errs...)
}

// BonusLocation はログインボーナスの日付判定に使うタイムゾーンを返す。
func (c *Config) BonusLocation() *time.Location {
	if c.bonusLocation == nil {
		return time.UTC
	}
	return c.bonusLocation
}

// CookieSecure はBASE_URLがhttpsの場合にtrueを返す。HSTSの付与判定にも使う。
func (c *Config) CookieSecure() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

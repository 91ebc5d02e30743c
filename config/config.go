// Package config loads the bot backend settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the table-session backend.
type Config struct {
	// Store. DatabaseURL (postgres) wins over DBFile (embedded sqlite).
	DatabaseURL    string        `env:"DATABASE_URL"`
	DBFile         string        `env:"DB_FILE" envDefault:"tables.db"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	StoreTimeout   time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// HTTP surface
	Port           string   `env:"PORT" envDefault:"5200"`
	ServiceToken   string   `env:"SERVICE_TOKEN"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
	LogDir      string `env:"LOG_DIR"`
	Locale      string `env:"LOCALE" envDefault:"it"`

	R2 R2Config

	// PublishCron archives the active table listing on this crontab schedule; empty disables it.
	PublishCron string `env:"PUBLISH_CRON"`
}

// R2Config points at the S3-compatible bucket holding table images and listing snapshots.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough settings are present to talk to the bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// UsesPostgres reports whether the store is the postgres backend.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// Load reads an optional dotenv file and parses the environment into a Config.
// envFile may be empty, in which case ".env" is tried.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.ServiceToken == "" {
		missing = append(missing, "SERVICE_TOKEN")
	}
	if c.DatabaseURL == "" && c.DBFile == "" {
		missing = append(missing, "DATABASE_URL or DB_FILE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

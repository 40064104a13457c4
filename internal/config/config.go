// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
}

type HTTPConfig struct {
	Port      int           `yaml:"port" env:"HTTP_PORT"`
	PublicURL string        `yaml:"public_url" env:"PUBLIC_URL"` // base of gateway return and notify URLs
	Timeout   time.Duration `yaml:"timeout"`
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"` // apply embedded migrations at startup
}

type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
	// NotifyRateLimit caps gateway notifications per source address per minute.
	NotifyRateLimit int `yaml:"notify_rate_limit"`
}

type BillingConfig struct {
	DeploymentID string `yaml:"deployment_id"`
	// Workers and Queue size the pool running post-validation effects.
	Workers int `yaml:"workers"`
	Queue   int `yaml:"queue"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
}

type DirectoryConfig struct {
	URL     string        `yaml:"url" env:"DIRECTORY_URL"`
	Secret  string        `yaml:"secret" env:"DIRECTORY_SECRET"`
	Timeout time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	ServerToken  string `yaml:"server_token" env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `yaml:"account_token" env:"POSTMARK_ACCOUNT_TOKEN"`
	Sender       string `yaml:"sender"`
	Support      string `yaml:"support"`
	// DevDir, when set in dev mode, receives rendered emails instead of Postmark.
	DevDir   string `yaml:"dev_dir"`
	Language string `yaml:"language"`
}

type TelegramConfig struct {
	Token       string `yaml:"token" env:"TELEGRAM_TOKEN"`
	AdminChatID int64  `yaml:"admin_chat_id" env:"TELEGRAM_ADMIN_CHAT_ID"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Billing   BillingConfig   `yaml:"billing"`
	Security  SecurityConfig  `yaml:"security"`
	Directory DirectoryConfig `yaml:"directory"`
	Email     EmailConfig     `yaml:"email"`
	Telegram  TelegramConfig  `yaml:"telegram"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, then lets environment variables
// (and a .env file, when present) override secrets and endpoints.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// the .env file is optional
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = 15 * time.Second
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.NotifyRateLimit <= 0 {
		cfg.Redis.NotifyRateLimit = 60
	}
	if cfg.Billing.Workers <= 0 {
		cfg.Billing.Workers = 4
	}
	if cfg.Billing.Queue <= 0 {
		cfg.Billing.Queue = 256
	}
	if cfg.Directory.Timeout <= 0 {
		cfg.Directory.Timeout = 10 * time.Second
	}
	if cfg.Email.Language == "" {
		cfg.Email.Language = "en"
	}
}

// Minimal validation
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required")
	}
	if c.HTTP.PublicURL == "" {
		return errors.New("http.public_url is required")
	}
	switch len(c.Security.EncryptionKey) {
	case 16, 24, 32:
	default:
		return errors.New("security.encryption_key must be 16, 24 or 32 bytes")
	}
	if c.Email.Sender == "" && !c.Runtime.Dev {
		return errors.New("email.sender is required")
	}
	return nil
}

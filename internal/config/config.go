// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// BackendConfig points at the platform REST backend that owns catalog,
// installments, orders, profiles and access checks.
type BackendConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"` // idempotent GETs only
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // plan cache
}

type PaymentConfig struct {
	Razorpay struct {
		KeyID       string `yaml:"key_id"`
		CompanyName string `yaml:"company_name"`
	} `yaml:"razorpay"`
	Currency string `yaml:"currency"`
}

type CheckoutConfig struct {
	PollAttempts   int           `yaml:"poll_attempts"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	ReconcileDelay time.Duration `yaml:"reconcile_delay"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	RateLimit      int           `yaml:"rate_limit"` // pay attempts per user per window
	RateWindow     time.Duration `yaml:"rate_window"`
}

type ReceiptConfig struct {
	Workers        int    `yaml:"workers"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	IssuerName     string `yaml:"issuer_name"`
	IssuerAddress  string `yaml:"issuer_address"`
}

type SchedulerConfig struct {
	JanitorCron    string        `yaml:"janitor_cron"`
	ReconcilerCron string        `yaml:"reconciler_cron"`
	StaleAfter     time.Duration `yaml:"stale_after"`
}

type TelegramConfig struct {
	Token       string `yaml:"token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Receipt   ReceiptConfig   `yaml:"receipt"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Telegram  TelegramConfig  `yaml:"telegram"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies .env / environment
// overrides for secrets and fills defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML, applies env overrides, defaults and validation.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Backend.BaseURL == "" {
		return nil, errors.New("backend.base_url is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Payment.Razorpay.KeyID == "" {
		return nil, errors.New("payment.razorpay.key_id is required")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Backend.APIKey, "BACKEND_API_KEY")
	override(&cfg.Receipt.SendGridAPIKey, "SENDGRID_API_KEY")
	override(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	override(&cfg.Payment.Razorpay.KeyID, "RAZORPAY_KEY_ID")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 15 * time.Second
	}
	if cfg.Backend.RetryCount < 0 {
		cfg.Backend.RetryCount = 0
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL, time.Minute)
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "INR"
	}
	if cfg.Checkout.PollAttempts <= 0 {
		cfg.Checkout.PollAttempts = 5
	}
	cfg.Checkout.PollInterval = normalizeTTL(cfg.Checkout.PollInterval, 2*time.Second)
	cfg.Checkout.ReconcileDelay = normalizeTTL(cfg.Checkout.ReconcileDelay, 3*time.Second)
	cfg.Checkout.SessionTTL = normalizeTTL(cfg.Checkout.SessionTTL, 15*time.Minute)
	cfg.Checkout.LockTTL = normalizeTTL(cfg.Checkout.LockTTL, 2*time.Minute)
	if cfg.Checkout.RateLimit <= 0 {
		cfg.Checkout.RateLimit = 10
	}
	cfg.Checkout.RateWindow = normalizeTTL(cfg.Checkout.RateWindow, time.Minute)
	if cfg.Receipt.Workers <= 0 {
		cfg.Receipt.Workers = 4
	}
	if cfg.Receipt.IssuerName == "" {
		cfg.Receipt.IssuerName = "LearnHub"
	}
	if cfg.Scheduler.JanitorCron == "" {
		cfg.Scheduler.JanitorCron = "@every 1m"
	}
	if cfg.Scheduler.ReconcilerCron == "" {
		cfg.Scheduler.ReconcilerCron = "@every 2m"
	}
	cfg.Scheduler.StaleAfter = normalizeTTL(cfg.Scheduler.StaleAfter, 5*time.Minute)
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // dispatcher shards
	AdminIDs []int64 `yaml:"admin_ids"`
	// RatePerMinute caps inbound messages per user; 0 disables the limiter.
	RatePerMinute int `yaml:"rate_per_minute"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port          int `yaml:"port"`
	RatePerMinute int `yaml:"rate_per_minute"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// WizardConfig tunes the conversational flows.
type WizardConfig struct {
	HoldInvoiceExpiration time.Duration `yaml:"hold_invoice_expiration_window"`
	PaymentAttempts       int           `yaml:"payment_attempts"`
	// SessionBackend is "memory" or "redis". Redis sessions survive restarts
	// until SessionTTL; memory sessions are lost with the process.
	SessionBackend string        `yaml:"session_backend"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	Language       string        `yaml:"language"`
}

type LightningConfig struct {
	Network string `yaml:"network"` // mainnet|testnet|signet|regtest
}

type SchedulerConfig struct {
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
	ExpiryBatch    int           `yaml:"expiry_batch"`
}

type SecurityConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// SecretKey seals hold invoice preimages at rest; 16, 24 or 32 bytes.
	// Empty stores them in clear.
	SecretKey string `yaml:"secret_key"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Wizard    WizardConfig    `yaml:"wizard"`
	Lightning LightningConfig `yaml:"lightning"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads -config and -dev from the command line.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes a YAML document, applies defaults and validates it.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.RatePerMinute <= 0 {
		cfg.Admin.RatePerMinute = 60
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Wizard.HoldInvoiceExpiration <= 0 {
		cfg.Wizard.HoldInvoiceExpiration = 15 * time.Minute
	}
	if cfg.Wizard.PaymentAttempts <= 0 {
		cfg.Wizard.PaymentAttempts = 3
	}
	if cfg.Wizard.SessionBackend == "" {
		cfg.Wizard.SessionBackend = "memory"
	}
	cfg.Wizard.SessionTTL = normalizeTTL(cfg.Wizard.SessionTTL)
	if cfg.Wizard.Language == "" {
		cfg.Wizard.Language = "en"
	}
	if cfg.Lightning.Network == "" {
		cfg.Lightning.Network = "mainnet"
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Minute
	}
	if cfg.Scheduler.ExpiryBatch <= 0 {
		cfg.Scheduler.ExpiryBatch = 100
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	switch cfg.Wizard.SessionBackend {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, errors.New("redis.url is required for the redis session backend")
		}
	default:
		return nil, fmt.Errorf("wizard.session_backend %q is not supported", cfg.Wizard.SessionBackend)
	}
	if n := len(cfg.Security.SecretKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("security.secret_key must be 16, 24 or 32 bytes; got %d", n)
	}
	switch cfg.Lightning.Network {
	case "mainnet", "testnet", "signet", "regtest":
	default:
		return nil, fmt.Errorf("lightning.network %q is not supported", cfg.Lightning.Network)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string        `yaml:"telegram_token"`
	ChatID         int64         `yaml:"chat_id"`
	DatabaseURL    string        `yaml:"database_url"`
	Timezone       string        `yaml:"timezone"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout"`
	BcryptCost     int           `yaml:"bcrypt_cost"`
	NotifyRate     float64       `yaml:"notify_rate"`
	LogLevel       string        `yaml:"log_level"`
}

const (
	defaultDatabaseURL    = "event_planner.db"
	defaultTimezone       = "Local"
	defaultGatewayTimeout = 5 * time.Second
	defaultBcryptCost     = 10
	defaultNotifyRate     = 1
	defaultLogLevel       = "info"
)

// Load reads configuration from .env, an optional YAML file named by
// PLANNER_CONFIG and then environment variables, in that order of precedence
// (later wins), and fills sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("PLANNER_CONFIG")); path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize()

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.ChatID == 0 {
		return cfg, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Normalize fills missing or out-of-range values with defaults.
func (c *Config) Normalize() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = defaultDatabaseURL
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = defaultGatewayTimeout
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		c.BcryptCost = defaultBcryptCost
	}
	if c.NotifyRate <= 0 {
		c.NotifyRate = defaultNotifyRate
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Location resolves the configured IANA timezone used to read and print dates.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func loadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config file %q not found", path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := env("TELEGRAM_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := env("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.ChatID = id
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := env("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := env("GATEWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GATEWAY_TIMEOUT %q: %w", v, err)
		}
		cfg.GatewayTimeout = d
	}
	if v := env("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BCRYPT_COST %q: %w", v, err)
		}
		cfg.BcryptCost = cost
	}
	if v := env("NOTIFY_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NOTIFY_RATE %q: %w", v, err)
		}
		cfg.NotifyRate = r
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

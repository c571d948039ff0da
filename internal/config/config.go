package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PaymentConfig struct {
	SumUp struct {
		APIKey       string `yaml:"api_key"`
		MerchantCode string `yaml:"merchant_code"`
		BaseURL      string `yaml:"base_url"`
	} `yaml:"sumup"`
}

type EmailConfig struct {
	PostmarkToken string `yaml:"postmark_token"`
	From          string `yaml:"from"`
}

type CaptchaConfig struct {
	Secret string `yaml:"secret"`
}

type ShopConfig struct {
	ShippingCents int64  `yaml:"shipping_cents"`
	Currency      string `yaml:"currency"`
}

type SchedulerConfig struct {
	Interval         time.Duration `yaml:"interval"`
	ItemDelay        time.Duration `yaml:"item_delay"`
	RenewalLookahead time.Duration `yaml:"renewal_lookahead"`
	WarningWindow    time.Duration `yaml:"warning_window"`
	SweepAge         time.Duration `yaml:"sweep_age"`
	BatchLimit       int           `yaml:"batch_limit"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Email     EmailConfig     `yaml:"email"`
	Captcha   CaptchaConfig   `yaml:"captcha"`
	Shop      ShopConfig      `yaml:"shop"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Shop.Currency == "" {
		cfg.Shop.Currency = "EUR"
	}
	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = time.Hour
	}
	if cfg.Scheduler.ItemDelay <= 0 {
		cfg.Scheduler.ItemDelay = 500 * time.Millisecond
	}
	if cfg.Scheduler.RenewalLookahead <= 0 {
		cfg.Scheduler.RenewalLookahead = 7 * 24 * time.Hour
	}
	if cfg.Scheduler.WarningWindow <= 0 {
		cfg.Scheduler.WarningWindow = 2 * 24 * time.Hour
	}
	if cfg.Scheduler.SweepAge <= 0 {
		cfg.Scheduler.SweepAge = 24 * time.Hour
	}
	if cfg.Scheduler.BatchLimit <= 0 {
		cfg.Scheduler.BatchLimit = 200
	}
	if cfg.Payment.SumUp.BaseURL == "" {
		cfg.Payment.SumUp.BaseURL = "https://api.sumup.com"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.SumUp.APIKey == "" {
		return nil, errors.New("payment.sumup.api_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

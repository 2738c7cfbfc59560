// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"billing-reminder-bot/internal/domain/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | noop
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
	Locale   string  `yaml:"locale"`
	// RateLimit is the number of commands a user may send per RateWindow.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite
	URL    string `yaml:"url"`
	// Path is the SQLite file; ":memory:" is accepted for tests.
	Path string `yaml:"path"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`        // user cache ttl
	IntentTTL time.Duration `yaml:"intent_ttl"` // pending payment ttl
}

type SchedulerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	DispatchWorker int           `yaml:"dispatch_workers"`
}

type Config struct {
	Bot       BotConfig           `yaml:"bot"`
	Log       LogConfig           `yaml:"log"`
	Admin     AdminConfig         `yaml:"admin"`
	Database  DatabaseConfig      `yaml:"database"`
	Redis     RedisConfig         `yaml:"redis"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
	Billing   model.BillingConfig `yaml:"billing"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads .env (if present), the YAML file at path, then applies env
// overrides and defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

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

// Parse decodes YAML and finalises the config without touching the filesystem.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		c.Admin.JWTSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Bot.Workers <= 0 {
		c.Bot.Workers = 8
	}
	if c.Bot.Mode == "" {
		c.Bot.Mode = "polling"
	}
	if c.Bot.Locale == "" {
		c.Bot.Locale = "en"
	}
	if c.Bot.RateLimit <= 0 {
		c.Bot.RateLimit = 20
	}
	if c.Bot.RateWindow <= 0 {
		c.Bot.RateWindow = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 8080
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = 24 * time.Hour
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "billing.db"
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL, time.Hour)
	c.Redis.IntentTTL = normalizeTTL(c.Redis.IntentTTL, 24*time.Hour)
	c.Scheduler.LockTTL = normalizeTTL(c.Scheduler.LockTTL, 30*time.Minute)
	if c.Scheduler.DispatchWorker <= 0 {
		c.Scheduler.DispatchWorker = 4
	}

	def := model.DefaultBillingConfig()
	if c.Billing.BillingDay == 0 {
		c.Billing.BillingDay = def.BillingDay
	}
	if c.Billing.Timezone == "" {
		c.Billing.Timezone = def.Timezone
	}
	if c.Billing.ReminderTime == "" {
		c.Billing.ReminderTime = def.ReminderTime
	}
	if c.Billing.FoldPolicy == "" {
		c.Billing.FoldPolicy = def.FoldPolicy
	}
}

// Minimal validation
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Bot.Mode != "polling" && c.Bot.Mode != "noop" {
		return fmt.Errorf("bot.mode %q is not supported", c.Bot.Mode)
	}
	if c.Bot.Mode == "polling" && c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if err := c.Billing.Validate(); err != nil {
		return fmt.Errorf("billing: %w", err)
	}
	return nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

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
	Mode     string  `yaml:"mode"` // real | noop
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // update fan-out workers
	AdminIDs []int64 `yaml:"admin_ids"`
	// ProbeChatID is a private chat or group the bot can forward into when it
	// backfills channel history. Required in real mode.
	ProbeChatID int64 `yaml:"probe_chat_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type OpsConfig struct {
	Port       int           `yaml:"port"`
	APIKey     string        `yaml:"api_key"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
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

type SchedulerConfig struct {
	Interval   time.Duration `yaml:"interval"`    // global driver tick
	FetchLimit int           `yaml:"fetch_limit"` // max items per source per cycle
	GuardTTL   time.Duration `yaml:"guard_ttl"`   // cycle guard expiry
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Ops       OpsConfig       `yaml:"ops"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "real"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Ops.Port <= 0 {
		cfg.Ops.Port = 8080
	}
	if cfg.Ops.SessionTTL <= 0 {
		cfg.Ops.SessionTTL = 24 * time.Hour
	}
	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = 30 * time.Second
	}
	if cfg.Scheduler.FetchLimit <= 0 {
		cfg.Scheduler.FetchLimit = 100
	}
	if cfg.Scheduler.GuardTTL <= 0 {
		cfg.Scheduler.GuardTTL = 5 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Bot.Mode != "real" && cfg.Bot.Mode != "noop" {
		return nil, fmt.Errorf("bot.mode must be real or noop, got %q", cfg.Bot.Mode)
	}
	if cfg.Bot.Mode == "real" && cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required in real mode")
	}
	if cfg.Bot.Mode == "real" && cfg.Bot.ProbeChatID == 0 {
		return nil, errors.New("bot.probe_chat_id is required in real mode")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Ops.APIKey == "" {
		return nil, errors.New("ops.api_key is required")
	}
	if cfg.Ops.JWTSecret == "" {
		return nil, errors.New("ops.jwt_secret is required")
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

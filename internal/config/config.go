package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"

	defaultInitDataMaxAge = 24 * time.Hour
)

type Config struct {
	Environment string `yaml:"environment"`

	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Telegram struct {
		BotToken      string `yaml:"botToken"`
		WebhookSecret string `yaml:"webhookSecret"`
	} `yaml:"telegram"`

	Auth struct {
		InitDataMaxAgeSeconds int    `yaml:"initDataMaxAgeSeconds"`
		DefaultLocale         string `yaml:"defaultLocale"`
	} `yaml:"auth"`

	Cron struct {
		Secret string `yaml:"secret"`
	} `yaml:"cron"`

	Reminders struct {
		DefaultTimezone string `yaml:"defaultTimezone"`
	} `yaml:"reminders"`

	Imaging struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"imaging"`
}

func (c Config) Production() bool {
	return c.Environment == EnvProduction
}

func (c Config) InitDataMaxAge() time.Duration {
	if c.Auth.InitDataMaxAgeSeconds <= 0 {
		return defaultInitDataMaxAge
	}
	return time.Duration(c.Auth.InitDataMaxAgeSeconds) * time.Second
}

func Load() (Config, error) {
	cfg := Config{}
	cfg.Environment = "development"
	cfg.HTTP.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Auth.DefaultLocale = "ru"
	cfg.Reminders.DefaultTimezone = "Europe/Moscow"

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	// Environment overrides (expected in deploy).
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_WEBHOOK_SECRET"); v != "" {
		cfg.Telegram.WebhookSecret = v
	}
	if v := os.Getenv("INIT_DATA_MAX_AGE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse INIT_DATA_MAX_AGE_SECONDS: %w", err)
		}
		cfg.Auth.InitDataMaxAgeSeconds = n
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		cfg.Cron.Secret = v
	}
	if v := os.Getenv("IMAGING_URL"); v != "" {
		cfg.Imaging.URL = v
	}
	if v := os.Getenv("IMAGING_TOKEN"); v != "" {
		cfg.Imaging.Token = v
	}

	if cfg.Database.URL == "" {
		return Config{}, errors.New("missing database url (set database.url in config or DATABASE_URL)")
	}
	// A missing bot token is an operational misconfiguration, not a
	// client error. Outside production the caller may fall back to the
	// unverified development mode; in production it is fatal.
	if cfg.Production() {
		if cfg.Telegram.BotToken == "" {
			return Config{}, errors.New("missing Telegram bot token (set telegram.botToken in config or TELEGRAM_BOT_TOKEN)")
		}
		if cfg.Telegram.WebhookSecret == "" {
			return Config{}, errors.New("missing Telegram webhook secret (set telegram.webhookSecret in config or TELEGRAM_WEBHOOK_SECRET)")
		}
		if cfg.Cron.Secret == "" {
			return Config{}, errors.New("missing cron secret (set cron.secret in config or CRON_SECRET)")
		}
	}

	return cfg, nil
}

// Package config loads and validates the application configuration, including
// the catalog of tracked items. Configuration comes from a YAML file with
// FLIPMON_-prefixed environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Craigslist CraigslistConfig     `mapstructure:"craigslist"`
	Dedup      DedupConfig          `mapstructure:"dedup"`
	Email      EmailConfig          `mapstructure:"email"`
	Telegram   TelegramConfig       `mapstructure:"telegram"`
	Logging    LoggingConfig        `mapstructure:"logging"`
	Catalog    []models.CatalogItem `mapstructure:"catalog"`
}

// CraigslistConfig holds source polling configuration
type CraigslistConfig struct {
	Cities              []string      `mapstructure:"cities"`
	BaseURLTemplate     string        `mapstructure:"base_url_template"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	MaxConcurrentFetch  int           `mapstructure:"max_concurrent_fetches"`
	MaxListingsPerFeed  int           `mapstructure:"max_listings_per_feed"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// DedupConfig holds deduplication store configuration
type DedupConfig struct {
	Backend string        `mapstructure:"backend"` // "memory" or "sqlite"
	TTL     time.Duration `mapstructure:"ttl"`     // 0 = keys live for the process lifetime
	DBPath  string        `mapstructure:"db_path"` // sqlite backend only
}

// EmailConfig holds SMTP alert delivery configuration
type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
	From      string `mapstructure:"from"`
	Password  string `mapstructure:"password"`
	Recipient string `mapstructure:"recipient"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("FLIPMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Craigslist defaults mirror the observed monitor: four NYC-area feeds
	// polled every five minutes.
	v.SetDefault("craigslist.cities", []string{"newyork", "newjersey", "longisland", "connecticut"})
	v.SetDefault("craigslist.base_url_template", "https://%s.craigslist.org/search/sss?query=%s&sort=date&format=rss")
	v.SetDefault("craigslist.poll_interval", "5m")
	v.SetDefault("craigslist.fetch_timeout", "30s")
	v.SetDefault("craigslist.max_concurrent_fetches", 4)
	v.SetDefault("craigslist.max_listings_per_feed", 50)
	v.SetDefault("craigslist.shutdown_grace_period", "10s")

	v.SetDefault("dedup.backend", "memory")
	v.SetDefault("dedup.ttl", "0s")
	v.SetDefault("dedup.db_path", "./data/flipmon.db")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 465)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid. A catalog error
// here is fatal at startup: the process must not begin polling with an
// invalid catalog.
func (c *Config) Validate() error {
	if len(c.Craigslist.Cities) == 0 {
		return fmt.Errorf("craigslist.cities must contain at least one city")
	}
	if c.Craigslist.BaseURLTemplate == "" {
		return fmt.Errorf("craigslist.base_url_template is required")
	}
	if c.Craigslist.PollInterval < 1*time.Minute {
		return fmt.Errorf("craigslist.poll_interval must be at least 1 minute")
	}
	if c.Craigslist.FetchTimeout <= 0 {
		return fmt.Errorf("craigslist.fetch_timeout must be positive")
	}
	if c.Craigslist.MaxConcurrentFetch < 1 {
		return fmt.Errorf("craigslist.max_concurrent_fetches must be at least 1")
	}
	if c.Craigslist.MaxListingsPerFeed < 1 {
		return fmt.Errorf("craigslist.max_listings_per_feed must be at least 1")
	}
	if c.Craigslist.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("craigslist.shutdown_grace_period must be positive")
	}

	switch c.Dedup.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("dedup.backend must be one of: memory, sqlite")
	}
	if c.Dedup.TTL < 0 {
		return fmt.Errorf("dedup.ttl must not be negative")
	}
	if c.Dedup.Backend == "sqlite" && c.Dedup.DBPath == "" {
		return fmt.Errorf("dedup.db_path is required when dedup.backend is sqlite")
	}

	if c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("email.smtp_host is required when email is enabled")
		}
		if c.Email.SMTPPort < 1 || c.Email.SMTPPort > 65535 {
			return fmt.Errorf("email.smtp_port must be a valid port")
		}
		if c.Email.From == "" {
			return fmt.Errorf("email.from is required when email is enabled")
		}
		if c.Email.Recipient == "" {
			return fmt.Errorf("email.recipient is required when email is enabled")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if len(c.Catalog) == 0 {
		return fmt.Errorf("catalog must contain at least one item")
	}
	seen := make(map[string]bool, len(c.Catalog))
	for i := range c.Catalog {
		item := &c.Catalog[i]
		if err := item.Validate(); err != nil {
			return fmt.Errorf("invalid catalog entry %d: %w", i, err)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate catalog item ID %q", item.ID)
		}
		seen[item.ID] = true
	}

	return nil
}

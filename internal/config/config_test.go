package config

import (
	"os"
	"strings"
	"testing"
)

const validConfig = `
craigslist:
  cities:
    - newyork
    - newjersey
  poll_interval: 5m
  fetch_timeout: 30s
  max_concurrent_fetches: 4
  max_listings_per_feed: 50

dedup:
  backend: memory
  ttl: 72h

email:
  enabled: true
  smtp_host: smtp.gmail.com
  smtp_port: 465
  from: "alerts@example.com"
  password: "app_password"
  recipient: "me@example.com"

telegram:
  enabled: false

logging:
  level: info
  format: json

catalog:
  - id: dexcom_g6
    aliases: ["Dexcom G6"]
    resale: 90
    policy: fixed_max_buy
    max_buy: 35
  - id: iphone_14_pro
    aliases: ["iPhone 14 Pro"]
    resale: 550
    policy: margin_window
    min_margin: 0.30
    max_margin: 0.40
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(cfg.Craigslist.Cities) != 2 {
		t.Errorf("expected 2 cities, got %d", len(cfg.Craigslist.Cities))
	}
	if len(cfg.Catalog) != 2 {
		t.Fatalf("expected 2 catalog items, got %d", len(cfg.Catalog))
	}
	if cfg.Catalog[0].ID != "dexcom_g6" || cfg.Catalog[0].MaxBuy != 35 {
		t.Errorf("unexpected first catalog item: %+v", cfg.Catalog[0])
	}
	if cfg.Catalog[1].MinMargin != 0.30 || cfg.Catalog[1].MaxMargin != 0.40 {
		t.Errorf("unexpected margin window params: %+v", cfg.Catalog[1])
	}
	if cfg.Dedup.TTL.Hours() != 72 {
		t.Errorf("expected 72h dedup TTL, got %v", cfg.Dedup.TTL)
	}
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
catalog:
  - id: dexcom_g6
    aliases: ["Dexcom G6"]
    resale: 90
    policy: fixed_max_buy
    max_buy: 35
`
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed with defaults: %v", err)
	}

	if cfg.Craigslist.PollInterval.Minutes() != 5 {
		t.Errorf("expected default 5m poll interval, got %v", cfg.Craigslist.PollInterval)
	}
	if len(cfg.Craigslist.Cities) != 4 {
		t.Errorf("expected 4 default cities, got %v", cfg.Craigslist.Cities)
	}
	if cfg.Dedup.Backend != "memory" {
		t.Errorf("expected default memory backend, got %q", cfg.Dedup.Backend)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty catalog",
			mutate:  func(c *Config) { c.Catalog = nil },
			wantErr: "catalog",
		},
		{
			name:    "invalid catalog entry",
			mutate:  func(c *Config) { c.Catalog[0].Resale = 0 },
			wantErr: "invalid catalog entry",
		},
		{
			name: "duplicate catalog IDs",
			mutate: func(c *Config) {
				c.Catalog[1] = c.Catalog[0]
			},
			wantErr: "duplicate catalog item ID",
		},
		{
			name:    "no cities",
			mutate:  func(c *Config) { c.Craigslist.Cities = nil },
			wantErr: "cities",
		},
		{
			name:    "poll interval too short",
			mutate:  func(c *Config) { c.Craigslist.PollInterval = 0 },
			wantErr: "poll_interval",
		},
		{
			name:    "bad dedup backend",
			mutate:  func(c *Config) { c.Dedup.Backend = "redis" },
			wantErr: "dedup.backend",
		},
		{
			name: "email enabled without recipient",
			mutate: func(c *Config) {
				c.Email.Enabled = true
				c.Email.Recipient = ""
			},
			wantErr: "email.recipient",
		},
		{
			name: "telegram enabled without token",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.BotToken = ""
			},
			wantErr: "telegram.bot_token",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validConfig))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
catalog:
  api_key: test-key
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.DiscoveryURL != "http://localhost:8080/json" {
		t.Fatalf("discovery url = %q", cfg.Session.DiscoveryURL)
	}
	if cfg.Session.RetryLimit != 3 || cfg.Session.RetryInterval != time.Second {
		t.Fatalf("session retry defaults = %d %v", cfg.Session.RetryLimit, cfg.Session.RetryInterval)
	}
	if cfg.Watcher.StorePath != "/steamweb" {
		t.Fatalf("store path = %q", cfg.Watcher.StorePath)
	}
	if cfg.Catalog.APIKey != "test-key" || cfg.Catalog.Lookback != 5 {
		t.Fatalf("catalog = %#v", cfg.Catalog)
	}
	if cfg.Settings.Country != "US" || cfg.Settings.HistoryRange != "1y" {
		t.Fatalf("settings = %#v", cfg.Settings)
	}
	if len(cfg.Settings.Shops) != 1 || cfg.Settings.Shops[0] != 61 {
		t.Fatalf("shops = %#v", cfg.Settings.Shops)
	}
	if cfg.Exchange.CacheTTL != 24*time.Hour || cfg.Exchange.RefreshCron == "" {
		t.Fatalf("exchange = %#v", cfg.Exchange)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
session:
  discovery_url: http://localhost:9222/json
  retry_interval: 250ms
catalog:
  api_key: test-key
settings:
  country: DE
  history_range: 6m
  shops: [61, 35]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.DiscoveryURL != "http://localhost:9222/json" {
		t.Fatalf("discovery url = %q", cfg.Session.DiscoveryURL)
	}
	if cfg.Session.RetryInterval != 250*time.Millisecond {
		t.Fatalf("retry interval = %v", cfg.Session.RetryInterval)
	}
	if cfg.Settings.Country != "DE" || cfg.Settings.HistoryRange != "6m" {
		t.Fatalf("settings = %#v", cfg.Settings)
	}
	if len(cfg.Settings.Shops) != 2 {
		t.Fatalf("shops = %#v", cfg.Settings.Shops)
	}
}

func TestLoadConfigExplicitPathMustExist(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestLoadConfigRejectsBadSettings(t *testing.T) {
	path := writeConfig(t, `
settings:
  history_range: 10y
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an invalid history range")
	}
}

func TestLoadConfigRejectsIncompleteRedis(t *testing.T) {
	path := writeConfig(t, `
storage:
  redis:
    enabled: true
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for redis enabled without host and port")
	}
}

func TestCatalogValidateRequiresKey(t *testing.T) {
	if err := (CatalogConfig{}).Validate(); err == nil {
		t.Fatal("expected an error for a missing api key")
	}
	if err := (CatalogConfig{APIKey: "  "}).Validate(); err == nil {
		t.Fatal("expected an error for a blank api key")
	}
	if err := (CatalogConfig{APIKey: "k"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	good := SettingsConfig{}.Normalize()
	if err := good.Validate(); err != nil {
		t.Fatalf("normalized defaults failed validation: %v", err)
	}
	bad := good
	bad.DateFormat = "YMD"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected an error for an unknown date format")
	}
}

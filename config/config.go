package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dealwatch daemon
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Settings SettingsConfig `mapstructure:"settings"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains the local HTTP API settings
type ServerConfig struct {
	Address        string `mapstructure:"address"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// SessionConfig controls the debug-session state machine.
type SessionConfig struct {
	DiscoveryURL    string        `mapstructure:"discovery_url"`
	StorePrefix     string        `mapstructure:"store_prefix"`
	RetryLimit      int           `mapstructure:"retry_limit"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	DispatchSettle  time.Duration `mapstructure:"dispatch_settle"`
	ChannelDeadline time.Duration `mapstructure:"channel_deadline"`
}

// Normalize applies defaults for unset session values.
func (c SessionConfig) Normalize() SessionConfig {
	if c.DiscoveryURL == "" {
		c.DiscoveryURL = "http://localhost:8080/json"
	}
	if c.StorePrefix == "" {
		c.StorePrefix = "https://store.steampowered.com"
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	if c.DispatchSettle <= 0 {
		c.DispatchSettle = 1500 * time.Millisecond
	}
	if c.ChannelDeadline <= 0 {
		c.ChannelDeadline = 30 * time.Second
	}
	return c
}

// WatcherConfig controls the navigation watcher.
type WatcherConfig struct {
	StorePath   string        `mapstructure:"store_path"`
	StartSettle time.Duration `mapstructure:"start_settle"`
}

// Normalize applies defaults for unset watcher values.
func (c WatcherConfig) Normalize() WatcherConfig {
	if c.StorePath == "" {
		c.StorePath = "/steamweb"
	}
	if c.StartSettle <= 0 {
		c.StartSettle = time.Second
	}
	return c
}

// CatalogConfig contains the price-catalog (ITAD) client settings.
type CatalogConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Lookback int           `mapstructure:"lookback_years"`
}

// Normalize applies defaults for unset catalog values.
func (c CatalogConfig) Normalize() CatalogConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.isthereanydeal.com"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Lookback <= 0 {
		c.Lookback = 5
	}
	return c
}

func (c CatalogConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("catalog.api_key is required")
	}
	return nil
}

// ExchangeConfig contains the exchange-rate service settings.
type ExchangeConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	RefreshCron string        `mapstructure:"refresh_cron"`
	Bases       []string      `mapstructure:"bases"`
}

// Normalize applies defaults for unset exchange values.
func (c ExchangeConfig) Normalize() ExchangeConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://v6.exchangerate-api.com/v6"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 */6 * * *"
	}
	if len(c.Bases) == 0 {
		c.Bases = []string{"USD"}
	}
	return c
}

// SettingsConfig carries the user-preference defaults surfaced to the
// overlay. It doubles as the settings API payload, hence the json tags.
type SettingsConfig struct {
	Enabled        bool   `mapstructure:"enabled" json:"enabled"`
	Country        string `mapstructure:"country" json:"country"`
	HistoryRange   string `mapstructure:"history_range" json:"history_range"`
	Shops          []int  `mapstructure:"shops" json:"shops"`
	ShowQuickLinks bool   `mapstructure:"show_quick_links" json:"show_quick_links"`
	DateFormat     string `mapstructure:"date_format" json:"date_format"`
}

// Normalize applies defaults for unset settings values.
func (c SettingsConfig) Normalize() SettingsConfig {
	if c.Country == "" {
		c.Country = "US"
	}
	if c.HistoryRange == "" {
		c.HistoryRange = "1y"
	}
	if len(c.Shops) == 0 {
		c.Shops = []int{61}
	}
	if c.DateFormat == "" {
		c.DateFormat = "default"
	}
	return c
}

func (c SettingsConfig) Validate() error {
	switch c.HistoryRange {
	case "3m", "6m", "1y", "2y":
	default:
		return fmt.Errorf("settings.history_range must be one of 3m, 6m, 1y, 2y")
	}
	switch c.DateFormat {
	case "default", "US", "EU", "ISO":
	default:
		return fmt.Errorf("settings.date_format must be one of default, US, EU, ISO")
	}
	return nil
}

// StorageConfig declares optional backing stores.
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains redis connection settings for the rate cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (c RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" || c.Port == "" {
		return fmt.Errorf("storage.redis.host and storage.redis.port are required when redis is enabled")
	}
	return nil
}

// LoadConfig reads the configuration file (or the explicit path) plus
// DEALWATCH_* environment overrides and returns the normalized config.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("server.address", ":8090")
	viper.SetDefault("server.metrics_enabled", true)
	viper.SetDefault("settings.enabled", true)
	viper.SetDefault("settings.show_quick_links", true)
	viper.SetDefault("storage.redis.timeout", "5s")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("DEALWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// a missing file on the search path is fine: env overrides plus
		// defaults are enough to run; an explicit path must exist
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("fatal error config file: %w", err)
	}

	config.Session = config.Session.Normalize()
	config.Watcher = config.Watcher.Normalize()
	config.Catalog = config.Catalog.Normalize()
	config.Exchange = config.Exchange.Normalize()
	config.Settings = config.Settings.Normalize()

	if err := config.Settings.Validate(); err != nil {
		return nil, err
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

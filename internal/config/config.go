// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Crawl    CrawlConfig       `mapstructure:"crawl"`
	Browser  BrowserConfig     `mapstructure:"browser"`
	DB       DBConfig          `mapstructure:"db"`
	Export   ExportConfig      `mapstructure:"export"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	Searches map[string]string `mapstructure:"searches"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlConfig governs pagination and record normalization.
type CrawlConfig struct {
	BaseOrigin       string `mapstructure:"base_origin"`
	CanonicalOrigin  string `mapstructure:"canonical_origin"`
	AffiliateTag     string `mapstructure:"affiliate_tag"`
	CurrencySymbol   string `mapstructure:"currency_symbol"`
	MaxPages         int    `mapstructure:"max_pages"`
	PageDelaySeconds int    `mapstructure:"page_delay_seconds"`
}

// BrowserConfig configures the headless automation session.
type BrowserConfig struct {
	Headless      bool   `mapstructure:"headless"`
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ExportConfig sets the CSV sink destination.
type ExportConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawl.base_origin", "https://amazon.de")
	v.SetDefault("crawl.canonical_origin", "https://www.amazon.de")
	v.SetDefault("crawl.affiliate_tag", "glam0d9-21")
	v.SetDefault("crawl.currency_symbol", "€")
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("crawl.page_delay_seconds", 1)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("export.path", "products.csv")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.BaseOrigin == "" {
		return fmt.Errorf("crawl.base_origin is required")
	}
	if c.Crawl.CanonicalOrigin == "" {
		return fmt.Errorf("crawl.canonical_origin is required")
	}
	if c.Crawl.AffiliateTag == "" {
		return fmt.Errorf("crawl.affiliate_tag is required")
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	return nil
}

// PageDelay converts the crawl delay config into a duration.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Crawl.PageDelaySeconds) * time.Second
}

// NavTimeout converts the browser timeout config into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// Categories returns the configured search categories in no particular order.
func (c Config) Categories() []string {
	out := make([]string, 0, len(c.Searches))
	for name := range c.Searches {
		out = append(out, name)
	}
	return out
}

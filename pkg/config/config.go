// Package config loads wordmap configuration from TOML files.
//
// Configuration is optional: every field has a usable default, so the CLI
// works without a config file and flags can override individual values.
//
// # Example
//
//	language = "en"
//
//	[chart]
//	width = 800
//	height = 600
//
//	[cache]
//	backend = "redis"
//	redis_addr = "127.0.0.1:6379"
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lexatlas/wordmap/pkg/errors"
)

// Cache backend names accepted in [cache].backend.
const (
	CacheBackendNone  = "none"
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
)

// DefaultPalette is the color palette used when the config does not set one.
var DefaultPalette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Config is the top-level wordmap configuration.
type Config struct {
	// Language is the initial display language code (e.g. "en", "de").
	Language string `toml:"language"`

	Chart  ChartConfig  `toml:"chart"`
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Cache  CacheConfig  `toml:"cache"`
}

// ChartConfig configures the rendered treemap.
// Zoom and breadcrumbs are on by default; the disable flags opt out, so the
// TOML zero value matches the default behavior.
type ChartConfig struct {
	Width              int      `toml:"width"`
	Height             int      `toml:"height"`
	Palette            []string `toml:"palette"`
	DisableZoom        bool     `toml:"disable_zoom"`
	DisableBreadcrumbs bool     `toml:"disable_breadcrumbs"`
}

// ZoomEnabled reports whether drill-down zoom is enabled.
func (c *ChartConfig) ZoomEnabled() bool { return !c.DisableZoom }

// BreadcrumbsEnabled reports whether the breadcrumb strip is enabled.
func (c *ChartConfig) BreadcrumbsEnabled() bool { return !c.DisableBreadcrumbs }

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DataConfig configures the item data store.
type DataConfig struct {
	// MongoURI enables the MongoDB-backed store when non-empty.
	// When empty, an in-memory store is used (items loaded from a file).
	MongoURI        string   `toml:"mongo_uri"`
	MongoDatabase   string   `toml:"mongo_database"`
	MongoCollection string   `toml:"mongo_collection"`
	PollInterval    duration `toml:"poll_interval"`
}

// CacheConfig configures the rendered-artifact cache.
type CacheConfig struct {
	Backend       string `toml:"backend"` // "none", "file", "redis"
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// duration wraps time.Duration for TOML decoding of strings like "30s".
type duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Interval returns the configured store poll interval.
func (c *DataConfig) Interval() time.Duration {
	return time.Duration(c.PollInterval)
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a TOML config file and applies defaults for unset fields.
// A missing file is not an error; it yields the default config.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = 800
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 600
	}
	if len(c.Chart.Palette) == 0 {
		c.Chart.Palette = append([]string(nil), DefaultPalette...)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Data.MongoDatabase == "" {
		c.Data.MongoDatabase = "wordmap"
	}
	if c.Data.MongoCollection == "" {
		c.Data.MongoCollection = "items"
	}
	if c.Data.PollInterval == 0 {
		c.Data.PollInterval = duration(30 * time.Second)
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendFile
	}
	if c.Cache.Dir == "" {
		home, err := os.UserCacheDir()
		if err != nil {
			home = os.TempDir()
		}
		c.Cache.Dir = home + string(os.PathSeparator) + "wordmap"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "127.0.0.1:6379"
	}
}

func (c *Config) validate() error {
	if err := errors.ValidateLanguage(c.Language); err != nil {
		return err
	}
	if err := errors.ValidateDimensions(c.Chart.Width, c.Chart.Height); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheBackendNone, CacheBackendFile, CacheBackendRedis:
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid cache backend: %q (must be one of: %s)",
			c.Cache.Backend, strings.Join([]string{CacheBackendNone, CacheBackendFile, CacheBackendRedis}, ", "))
	}
	for _, color := range c.Chart.Palette {
		if !strings.HasPrefix(color, "#") {
			return errors.New(errors.ErrCodeInvalidConfig, "invalid palette color: %q", color)
		}
	}
	return nil
}

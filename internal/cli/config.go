package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "APOTHECARY_"

// Config is the CLI configuration. Values come from defaults, then the
// YAML file, then the environment (including a .env file), then flags.
type Config struct {
	Store         StoreConfig   `yaml:"store"`
	Redis         RedisConfig   `yaml:"redis"`
	HTTP          HTTPConfig    `yaml:"http"`
	Log           LogConfig     `yaml:"log"`
	PluginTimeout time.Duration `yaml:"plugin_timeout"`
	Metrics       bool          `yaml:"metrics"`
	Audit         bool          `yaml:"audit"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	// Driver is one of memory, postgres, sqlite, mongo.
	Driver string `yaml:"driver"`
	// DSN is the postgres URL, the sqlite file path or the mongo URI.
	DSN string `yaml:"dsn"`
	// Database names the mongo database.
	Database string `yaml:"database"`
}

// RedisConfig enables the catalog cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr    string        `yaml:"addr"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `yaml:"format"` // "json" | "text"
	Level  string `yaml:"level"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Driver: "memory", Database: "apothecary"},
		Redis: RedisConfig{TTL: time.Minute},
		HTTP:  HTTPConfig{Addr: ":8080", Timeout: 10 * time.Second},
		Log:   LogConfig{Format: "text", Level: "info"},

		PluginTimeout: 5 * time.Second,
	}
}

// LoadConfig reads path (optional), loads .env from the working directory
// when present and applies APOTHECARY_* overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides cfg from lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DSN", &cfg.Store.DSN)
	str("STORE_DATABASE", &cfg.Store.Database)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("HTTP_ADDR", &cfg.HTTP.Addr)
	str("API_KEY", &cfg.HTTP.APIKey)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_LEVEL", &cfg.Log.Level)

	durations := map[string]*time.Duration{
		"REDIS_TTL":      &cfg.Redis.TTL,
		"HTTP_TIMEOUT":   &cfg.HTTP.Timeout,
		"PLUGIN_TIMEOUT": &cfg.PluginTimeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	bools := map[string]*bool{
		"METRICS": &cfg.Metrics,
		"AUDIT":   &cfg.Audit,
	}
	for key, dst := range bools {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		cfg.Redis.DB = n
	}
	return nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres", "sqlite", "mongo":
		if c.Store.DSN == "" {
			return fmt.Errorf("store %s requires a dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q: must be one of memory, postgres, sqlite, mongo", c.Store.Driver)
	}
	if !isValidFormat(c.Log.Format) {
		return fmt.Errorf("invalid log format %q: must be one of %v", c.Log.Format, ValidFormats)
	}
	return nil
}

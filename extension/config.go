package extension

import "time"

// Config holds the Apothecary extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.apothecary" or "apothecary" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// CatalogCacheTTL is how long a cached catalog is served when a Redis
	// client is configured (default: 1m).
	CatalogCacheTTL time.Duration `json:"catalog_cache_ttl" mapstructure:"catalog_cache_ttl" yaml:"catalog_cache_ttl"`

	// PluginTimeout bounds a single plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CatalogCacheTTL: time.Minute,
		PluginTimeout:   5 * time.Second,
	}
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.CatalogCacheTTL == 0 {
		cfg.CatalogCacheTTL = defaults.CatalogCacheTTL
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML takes precedence; programmatic values fill gaps and a programmatic
// DisableMigrate always wins.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if yamlConfig.CatalogCacheTTL == 0 && programmaticConfig.CatalogCacheTTL != 0 {
		yamlConfig.CatalogCacheTTL = programmaticConfig.CatalogCacheTTL
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	return mergeWithDefaults(yamlConfig)
}

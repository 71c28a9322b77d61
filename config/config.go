// Package config handles configuration loading and validation for moocbase.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/query"
	"github.com/spf13/viper"
)

// Config holds all configuration for moocbase
type Config struct {
	Query   QueryConfig   `mapstructure:"query"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// QueryConfig holds query execution configuration
type QueryConfig struct {
	// WorkMemPages is the number of buffer pages a single operator may hold (B). Block nested
	// loop joins read B-2 pages of the left input at a time and sort costs are computed with it.
	WorkMemPages int `mapstructure:"work_mem_pages"`
	// DefaultJoin is the join strategy used by the CLI when none is given.
	DefaultJoin string `mapstructure:"default_join"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	// PageSize must match the compiled-in page size; it is configurable only so that a
	// mismatched config file is rejected instead of silently ignored.
	PageSize int `mapstructure:"page_size"`
	// CatalogDir, when set, persists the catalog as JSON in that directory. Table contents are
	// always held in memory.
	CatalogDir string `mapstructure:"catalog_dir"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Query: QueryConfig{
			WorkMemPages: 5,
			DefaultJoin:  "snlj",
		},
		Storage: StorageConfig{
			PageSize:   common.PageSize,
			CatalogDir: "",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	cfg := Default()
	v.SetDefault("query.work_mem_pages", cfg.Query.WorkMemPages)
	v.SetDefault("query.default_join", cfg.Query.DefaultJoin)
	v.SetDefault("storage.page_size", cfg.Storage.PageSize)
	v.SetDefault("storage.catalog_dir", cfg.Storage.CatalogDir)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)

	// Environment variable support
	v.SetEnvPrefix("MOOCBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		v.SetConfigName("moocbase")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.moocbase")

		// It's okay if no config file is found - we use defaults
		_ = v.ReadInConfig()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are sensible
func (c *Config) Validate() error {
	// One page for the current block, one for the inner input and one for output.
	if c.Query.WorkMemPages < 3 {
		return errors.Newf("work_mem_pages must be at least 3, got %d", c.Query.WorkMemPages)
	}

	if _, ok := query.ParseJoinType(c.Query.DefaultJoin); !ok {
		return errors.Newf("invalid default join: %s", c.Query.DefaultJoin)
	}

	if c.Storage.PageSize != common.PageSize {
		return errors.Newf("page_size must be %d, got %d", common.PageSize, c.Storage.PageSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return errors.Newf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

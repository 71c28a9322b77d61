package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Query.WorkMemPages)
	assert.Equal(t, "snlj", cfg.Query.DefaultJoin)
	assert.Equal(t, 4096, cfg.Storage.PageSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, Default(), cfg)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		shouldError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"minimum work mem", func(c *Config) { c.Query.WorkMemPages = 3 }, false},
		{"work mem too small", func(c *Config) { c.Query.WorkMemPages = 2 }, true},
		{"unknown join", func(c *Config) { c.Query.DefaultJoin = "hash" }, true},
		{"upper case join", func(c *Config) { c.Query.DefaultJoin = "BNLJ" }, false},
		{"join alias", func(c *Config) { c.Query.DefaultJoin = "smj" }, false},
		{"join with underscore", func(c *Config) { c.Query.DefaultJoin = "sort_merge" }, false},
		{"empty join", func(c *Config) { c.Query.DefaultJoin = "" }, true},
		{"wrong page size", func(c *Config) { c.Storage.PageSize = 8192 }, true},
		{"invalid log level", func(c *Config) { c.Log.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moocbase.yaml")
	content := []byte(`
query:
  work_mem_pages: 8
  default_join: sortmerge
log:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Query.WorkMemPages)
	assert.Equal(t, "sortmerge", cfg.Query.DefaultJoin)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output, "unset keys keep their defaults")
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moocbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query:\n  work_mem_pages: 1\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MOOCBASE_QUERY_WORK_MEM_PAGES", "12")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Query.WorkMemPages)
}

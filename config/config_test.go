package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cruisekb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "cruise_collection", cfg.Store.Collection)
	assert.Equal(t, 50, cfg.Source.BatchSize)
	assert.Equal(t, "http://uat.center.cruises/cruise-", cfg.Search.LinkBase)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /var/lib/cruisekb
source:
  type: catalog
  catalog:
    base_url: https://catalog.example
    requests_per_second: 2.5
    timeout: 5s
pipeline:
  workers: 8
  batch_timeout: 90s
  stop_on_error: true
search:
  top_k: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/cruisekb", cfg.Store.Path)
	assert.Equal(t, "cruise_collection", cfg.Store.Collection, "unset keys keep defaults")
	assert.Equal(t, SourceCatalog, cfg.Source.Type)
	assert.Equal(t, "https://catalog.example", cfg.Source.Catalog.BaseURL)
	assert.Equal(t, 2.5, cfg.Source.Catalog.RequestsPerSecond)
	assert.Equal(t, 5*time.Second, cfg.Source.Catalog.Timeout)
	assert.Equal(t, 5, cfg.Source.Catalog.Burst)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.BatchTimeout)
	assert.True(t, cfg.Pipeline.StopOnError)
	assert.Equal(t, 10, cfg.Search.TopK)
}

func TestLoad_PathFromEnvironment(t *testing.T) {
	path := writeConfig(t, "store:\n  path: from-env\n")
	t.Setenv(ConfigPathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Store.Path)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "source:\n  dsn: postgres://file\n")
	t.Setenv(DatabaseDSNEnv, "postgres://env")
	t.Setenv(CatalogBaseURLEnv, "http://catalog.env")
	t.Setenv(LinkBaseURLEnv, "https://site.env/cruise-")
	t.Setenv(EmbeddingHostEnv, "http://embed:8080")
	t.Setenv(PipelineWorkersEnv, "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.Source.DSN)
	assert.Equal(t, "http://catalog.env", cfg.Source.Catalog.BaseURL)
	assert.Equal(t, "https://site.env/cruise-", cfg.Search.LinkBase)
	assert.Equal(t, "http://embed:8080", cfg.Embedding.Host)
	assert.Equal(t, "http://embed:8080/v1", cfg.AI().EmbeddingHost)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "store: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("bad worker count", func(t *testing.T) {
		t.Setenv(PipelineWorkersEnv, "many")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unknown source type", func(t *testing.T) {
		_, err := Load(writeConfig(t, "source:\n  type: ftp\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"sql without dsn", func(c *Config) { c.Source.DSN = "" }},
		{"catalog without url", func(c *Config) { c.Source.Type = SourceCatalog; c.Source.Catalog.BaseURL = "" }},
		{"zero batch size", func(c *Config) { c.Source.BatchSize = 0 }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"zero top k", func(c *Config) { c.Search.TopK = 0 }},
		{"no embedding model", func(c *Config) { c.Embedding.Model = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Default().Validate())
}

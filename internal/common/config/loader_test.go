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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  shopping:
    enabled: true
    base_url: http://shopping.local/search
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 12, cfg.Agent.MinResults)
	assert.Equal(t, "AU", cfg.Agent.DefaultRegion)
	assert.Equal(t, "AUD", cfg.Agent.DefaultCurrency)
	assert.Equal(t, MemoryBackendInProcess, cfg.Memory.Backend)
	assert.Equal(t, 5, cfg.Dialogues.HistoryLimit)
	assert.Equal(t, "google_shopping", cfg.Providers.Shopping.Engine)
	assert.Equal(t, "configs/tool-registry.json", cfg.Registry.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 24*time.Hour, GetDuration(cfg.Memory.TTL))
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("TEST_SHOPPING_URL", "http://from-env/search")
	path := writeConfig(t, `
providers:
  shopping:
    enabled: true
    base_url: ${TEST_SHOPPING_URL}
    engine: ${TEST_UNSET_ENGINE:bing_shopping}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env/search", cfg.Providers.Shopping.BaseURL)
	assert.Equal(t, "bing_shopping", cfg.Providers.Shopping.Engine)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "no provider",
			body:    "agent:\n  min_results: 12\n",
			wantErr: "at least one listing provider",
		},
		{
			name: "redis memory without address",
			body: `
providers:
  shopping: {enabled: true, base_url: http://x}
memory:
  backend: redis
`,
			wantErr: "database.redis.address",
		},
		{
			name: "unknown memory backend",
			body: `
providers:
  shopping: {enabled: true, base_url: http://x}
memory:
  backend: memcached
`,
			wantErr: "not supported",
		},
		{
			name: "catalog without elasticsearch",
			body: `
providers:
  catalog: {enabled: true}
`,
			wantErr: "elasticsearch",
		},
		{
			name: "dialogues without postgres",
			body: `
providers:
  shopping: {enabled: true, base_url: http://x}
dialogues:
  enabled: true
`,
			wantErr: "database.postgres.host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToolConfigHelpers(t *testing.T) {
	cfg := &Config{Tools: map[string]ToolConfig{
		"reco_generate": {Enabled: false, Timeout: 5000},
	}}

	assert.False(t, IsToolEnabled(cfg, "reco.generate"))
	assert.True(t, IsToolEnabled(cfg, "price.compare_full"))
	assert.Equal(t, 5000, GetToolConfig(cfg, "reco.generate").Timeout)
	assert.Equal(t, 30000, GetToolConfig(cfg, "price.compare_full").Timeout)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", p.GetDSN())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TABLECHAT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TABLECHAT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("TABLECHAT_DB_DRIVER", "duckdb")
	t.Setenv("TABLECHAT_LLM_PROVIDER", "ollama")
	t.Setenv("TABLECHAT_LLM_MODEL", "llama3")
	t.Setenv("TABLECHAT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Database.Driver)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigPrefixAppliedOnce(t *testing.T) {
	t.Setenv("TABLECHAT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	// A doubled prefix must be ignored; only TABLECHAT_<VAR> is read.
	t.Setenv("TABLECHAT_TABLECHAT_DB_DRIVER", "duckdb")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	content := `{
		"database": {"driver": "postgres", "dsn": "postgres://localhost:5432/tablechat"},
		"llm": {"provider": "openai", "model": "gpt-4o-mini"}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	t.Setenv("TABLECHAT_CONFIG", configPath)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost:5432/tablechat", cfg.Database.DSN)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	// Unset fields still get defaults.
	assert.Equal(t, 10, cfg.Database.MaxConnections)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad driver", "TABLECHAT_DB_DRIVER", "mysql"},
		{"bad provider", "TABLECHAT_LLM_PROVIDER", "bard"},
		{"bad log level", "TABLECHAT_LOG_LEVEL", "loud"},
		{"bad log format", "TABLECHAT_LOG_FORMAT", "xml"},
		{"bad timeout", "TABLECHAT_DB_QUERY_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TABLECHAT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestTimeoutDurations(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{QueryTimeout: "15s"},
		LLM:      LLMConfig{RequestTimeout: "90s"},
	}

	assert.Equal(t, 15*time.Second, cfg.QueryTimeoutDuration())
	assert.Equal(t, 90*time.Second, cfg.LLMTimeoutDuration())

	// Unparseable values fall back to safe defaults.
	cfg.Database.QueryTimeout = "bogus"
	cfg.LLM.RequestTimeout = "bogus"
	assert.Equal(t, 30*time.Second, cfg.QueryTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.LLMTimeoutDuration())
}

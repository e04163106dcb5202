package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database" envPrefix:"TABLECHAT_"`
	LLM      LLMConfig      `json:"llm"      envPrefix:"TABLECHAT_"`
	Server   ServerConfig   `json:"server"   envPrefix:"TABLECHAT_"`
	Logging  LoggingConfig  `json:"logging"  envPrefix:"TABLECHAT_"`
}

// DatabaseConfig selects and tunes the storage backend. Driver is one of
// sqlite, duckdb, or postgres; DSN is the driver-specific connection string.
type DatabaseConfig struct {
	Driver          string `json:"driver"             env:"DB_DRIVER"            envDefault:"sqlite"`
	DSN             string `json:"dsn"                env:"DB_DSN"               envDefault:"~/.local/share/tablechat/data.db"`
	MaxConnections  int    `json:"max_connections"    env:"DB_MAX_CONNECTIONS"   envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	QueryTimeout    string `json:"query_timeout"      env:"DB_QUERY_TIMEOUT"     envDefault:"30s"`
}

// LLMConfig configures the text-generation capability. An empty APIKey for
// remote providers means generation is unavailable and the deterministic
// fallback paths are used instead.
type LLMConfig struct {
	Provider       string `json:"provider"        env:"LLM_PROVIDER"        envDefault:"gemini"`
	Model          string `json:"model"           env:"LLM_MODEL"           envDefault:""`
	APIKey         string `json:"api_key"         env:"LLM_API_KEY"         envDefault:""`
	BaseURL        string `json:"base_url"        env:"LLM_BASE_URL"        envDefault:""`
	RequestTimeout string `json:"request_timeout" env:"LLM_REQUEST_TIMEOUT" envDefault:"60s"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Addr            string `json:"addr"              env:"SERVER_ADDR"              envDefault:":8080"`
	MaxUploadSizeMB int    `json:"max_upload_size_mb" env:"SERVER_MAX_UPLOAD_SIZE_MB" envDefault:"32"`
	ReadTimeout     string `json:"read_timeout"      env:"SERVER_READ_TIMEOUT"      envDefault:"30s"`
	WriteTimeout    string `json:"write_timeout"     env:"SERVER_WRITE_TIMEOUT"     envDefault:"120s"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:""`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	config := &Config{}

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Environment variables override the file and supply defaults. The
	// TABLECHAT_ prefix comes from the envPrefix struct tags alone.
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.Database.DSN = expandPath(config.Database.DSN)

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := 0; i < s.NumField(); i++ {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validDrivers := map[string]bool{
		"sqlite": true, "duckdb": true, "postgres": true,
	}
	if !validDrivers[strings.ToLower(config.Database.Driver)] {
		return fmt.Errorf(
			"invalid database driver: %s (must be sqlite, duckdb, or postgres)",
			config.Database.Driver,
		)
	}

	validProviders := map[string]bool{
		"gemini": true, "openai": true, "anthropic": true, "ollama": true, "": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid llm provider: %s (must be gemini, openai, anthropic, or ollama)",
			config.LLM.Provider,
		)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	for name, value := range map[string]string{
		"database query timeout": config.Database.QueryTimeout,
		"database conn lifetime": config.Database.ConnMaxLifetime,
		"llm request timeout":    config.LLM.RequestTimeout,
		"server read timeout":    config.Server.ReadTimeout,
		"server write timeout":   config.Server.WriteTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	return nil
}

// QueryTimeoutDuration returns the parsed SQL execution timeout.
func (c *Config) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Database.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// LLMTimeoutDuration returns the parsed per-call generation timeout.
func (c *Config) LLMTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.LLM.RequestTimeout)
	if err != nil {
		return time.Minute
	}

	return d
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("TABLECHAT_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "tablechat", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// EnsureDirectories creates the directories the configuration points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{}

	if strings.ToLower(c.Database.Driver) != "postgres" {
		dirs = append(dirs, filepath.Dir(c.Database.DSN))
	}

	if c.Logging.Output == "file" && c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(expandPath(c.Logging.File)))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

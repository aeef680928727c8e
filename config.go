package snowmcp

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the base configuration used by library mode via New().
// A zero-value Connection means credentials are loaded lazily from the
// environment on first use, never at construction time, so an MCP handshake
// can complete before credentials are verified.
type Config struct {
	Connection   ConnectionConfig  `json:"connection"`
	Query        QueryConfig       `json:"query"`
	ErrorPrompts []ErrorPromptRule `json:"error_prompts"`
	Masking      []MaskingRule     `json:"masking"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Server  ServerSettings `json:"server"`
	Logging LoggingConfig  `json:"logging"`
}

// ConnectionConfig holds Snowflake session parameters. Account, User, and
// Password are required; the rest set session defaults.
type ConnectionConfig struct {
	Account   string `json:"account"`
	User      string `json:"user"`
	Password  string `json:"-"`
	Warehouse string `json:"warehouse,omitempty"`
	Database  string `json:"database,omitempty"`
	Schema    string `json:"schema,omitempty"`
	Role      string `json:"role,omitempty"`
}

// QueryConfig holds query execution settings shared by all calls.
type QueryConfig struct {
	// DefaultTimeoutSeconds applies when a call does not override the timeout.
	DefaultTimeoutSeconds int `json:"default_timeout_seconds"`
	// MaxRows bounds the materialized result set per call.
	MaxRows int `json:"max_rows"`
	// UseCachedResults allows the warehouse result cache by default.
	// When false (the default), each call disables the cache for its duration
	// unless the call explicitly opts back in.
	UseCachedResults bool `json:"use_cached_results"`
}

// ServerSettings holds transport settings for CLI mode. Port 0 means stdio.
type ServerSettings struct {
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stderr, stdout, or file path
}

// ErrorPromptRule maps a warehouse error message pattern to a guidance
// message appended to the error for the calling agent.
type ErrorPromptRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// MaskingRule defines a regex-based field masking rule applied to result rows.
type MaskingRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description"`
}

const (
	defaultTimeoutSeconds = 30
	defaultMaxRows        = 10000
)

// ConnectionConfigFromEnv builds a ConnectionConfig from SNOWFLAKE_* variables,
// loading a .env file first if one is present. Required: SNOWFLAKE_ACCOUNT,
// SNOWFLAKE_USER, SNOWFLAKE_PASSWORD.
func ConnectionConfigFromEnv() (ConnectionConfig, error) {
	_ = godotenv.Load()

	cc := ConnectionConfig{
		Account:   os.Getenv("SNOWFLAKE_ACCOUNT"),
		User:      os.Getenv("SNOWFLAKE_USER"),
		Password:  os.Getenv("SNOWFLAKE_PASSWORD"),
		Warehouse: os.Getenv("SNOWFLAKE_WAREHOUSE"),
		Database:  os.Getenv("SNOWFLAKE_DATABASE"),
		Schema:    os.Getenv("SNOWFLAKE_SCHEMA"),
		Role:      os.Getenv("SNOWFLAKE_ROLE"),
	}
	for _, required := range []struct {
		name  string
		value string
	}{
		{"SNOWFLAKE_ACCOUNT", cc.Account},
		{"SNOWFLAKE_USER", cc.User},
		{"SNOWFLAKE_PASSWORD", cc.Password},
	} {
		if required.value == "" {
			return ConnectionConfig{}, fmt.Errorf("missing required environment variable: %s", required.name)
		}
	}
	return cc, nil
}

// QueryConfigFromEnv builds a QueryConfig from SNOWFLAKE_TIMEOUT and
// MAX_QUERY_ROWS, falling back to defaults (30s, 10000 rows, cache disabled).
func QueryConfigFromEnv() (QueryConfig, error) {
	_ = godotenv.Load()

	qc := QueryConfig{
		DefaultTimeoutSeconds: defaultTimeoutSeconds,
		MaxRows:               defaultMaxRows,
	}
	if v := os.Getenv("SNOWFLAKE_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return QueryConfig{}, fmt.Errorf("invalid SNOWFLAKE_TIMEOUT %q: must be a positive integer", v)
		}
		qc.DefaultTimeoutSeconds = n
	}
	if v := os.Getenv("MAX_QUERY_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return QueryConfig{}, fmt.Errorf("invalid MAX_QUERY_ROWS %q: must be a positive integer", v)
		}
		qc.MaxRows = n
	}
	return qc, nil
}

// applyQueryDefaults fills zero-valued QueryConfig fields.
func applyQueryDefaults(qc QueryConfig) QueryConfig {
	if qc.DefaultTimeoutSeconds == 0 {
		qc.DefaultTimeoutSeconds = defaultTimeoutSeconds
	}
	if qc.MaxRows == 0 {
		qc.MaxRows = defaultMaxRows
	}
	return qc
}

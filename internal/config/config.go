// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/j-veylop/claude-code-metrics/internal/translator"
)

// Sink names accepted by SINK.
const (
	SinkCloudWatch = "cloudwatch"
	SinkSQLite     = "sqlite"
	SinkConsole    = "console"
)

// Default values
const (
	defaultListenAddr = ":4318"
	defaultLogFormat  = "text"
)

// Config holds the application configuration.
type Config struct {
	// EnvFile is the .env file values were read from, empty when none was found.
	EnvFile            string
	Namespace          string
	IncludeServiceName bool
	ExtraDimensions    []translator.DimensionMapping
	Sink               string
	DatabasePath       string
	ListenAddr         string
	AWSRegion          string
	LogLevel           string
	LogFormat          string
}

// Load reads configuration from the first .env file found and environment
// variables. Environment variables take precedence over the file.
func Load() (*Config, error) {
	var envFile string
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			envFile = path
			break
		}
	}
	return LoadFile(envFile)
}

// LoadFile reads configuration from path and environment variables. An empty
// path reads the environment only.
func LoadFile(path string) (*Config, error) {
	env := environment{}
	if path != "" {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		env.file = values
	}

	includeServiceName, err := env.getBool("INCLUDE_SERVICE_NAME", true)
	if err != nil {
		return nil, err
	}

	extra, err := translator.ParseDimensionMappings(env.getString("EXTRA_DIMENSIONS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRA_DIMENSIONS: %w", err)
	}

	cfg := &Config{
		EnvFile:            path,
		Namespace:          env.getString("METRICS_NAMESPACE", translator.DefaultNamespace),
		IncludeServiceName: includeServiceName,
		ExtraDimensions:    extra,
		Sink:               strings.ToLower(env.getString("SINK", SinkCloudWatch)),
		DatabasePath:       env.getString("DATABASE_PATH", getDefaultDatabasePath()),
		ListenAddr:         env.getString("LISTEN_ADDR", defaultListenAddr),
		AWSRegion:          env.getString("AWS_REGION", ""),
		LogLevel:           env.getString("LOG_LEVEL", "info"),
		LogFormat:          env.getString("LOG_FORMAT", defaultLogFormat),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be corrected with a default.
func (c *Config) Validate() error {
	switch c.Sink {
	case SinkCloudWatch, SinkSQLite, SinkConsole:
	default:
		return fmt.Errorf("unknown SINK %q: want %s, %s or %s", c.Sink, SinkCloudWatch, SinkSQLite, SinkConsole)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("METRICS_NAMESPACE must not be blank")
	}
	if c.Sink == SinkSQLite && c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required for the sqlite sink")
	}
	return nil
}

// TranslatorConfig returns the translator settings described by c.
func (c *Config) TranslatorConfig() translator.Config {
	tc := translator.DefaultConfig()
	tc.Namespace = c.Namespace
	tc.Dimensions = translator.DimensionPolicy{
		IncludeServiceName: c.IncludeServiceName,
		Extra:              c.ExtraDimensions,
	}
	return tc
}

// environment resolves keys from the process environment, then the env file.
type environment struct {
	file map[string]string
}

func (e environment) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return e.file[key]
}

// getString retrieves a string value or returns the default.
func (e environment) getString(key, defaultValue string) string {
	if value := strings.TrimSpace(e.lookup(key)); value != "" {
		return value
	}
	return defaultValue
}

// getBool retrieves a boolean value or returns the default.
// Accepts the forms understood by strconv.ParseBool.
func (e environment) getBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(e.lookup(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "claude-code-metrics", ".env"))
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "metrics.db"
	}
	return filepath.Join(home, ".config", "claude-code-metrics", "metrics.db")
}

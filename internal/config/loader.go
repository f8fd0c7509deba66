package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultConfigFile is read when no --config flag is given and the file exists.
const DefaultConfigFile = "pebble-apps.yaml"

// Environment variables that override the file.
const (
	EnvDatabaseURL = "PEBBLE_DATABASE_URL"
	EnvHTTPAddr    = "PEBBLE_HTTP_ADDR"
	EnvLogLevel    = "PEBBLE_LOG_LEVEL"
	EnvLogFormat   = "PEBBLE_LOG_FORMAT"
	EnvRedisURL    = "PEBBLE_REDIS_URL"
	EnvCORSOrigins = "PEBBLE_CORS_ORIGINS"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger  *slog.Logger
	envFile string
	lookup  func(string) (string, bool)
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, envFile: ".env", lookup: os.LookupEnv}
}

// Load builds the configuration:
// 1. defaults
// 2. the YAML file at path, or DefaultConfigFile when path is empty and it exists
// 3. .env, which never overrides variables already set in the process
// 4. PEBBLE_* environment variables
//
// CLI flags are applied by the caller afterwards, then Validate runs.
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	fileConfig, err := LoadFromFile(path)
	switch {
	case err == nil:
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config = fileConfig
	case !explicit && errors.Is(err, fs.ErrNotExist):
		l.logger.Debug("No config file found", slog.String("path", path))
	default:
		return nil, err
	}

	if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Failed to load env file", slog.String("path", l.envFile), slog.String("error", err.Error()))
	}

	if err := l.applyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) applyEnv(c *Config) error {
	if v, ok := l.lookup(EnvDatabaseURL); ok && v != "" {
		c.Database.URL = v
	}
	if v, ok := l.lookup(EnvHTTPAddr); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := l.lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := l.lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	if v, ok := l.lookup(EnvRedisURL); ok {
		c.Redis.URL = v
	}
	if v, ok := l.lookup(EnvCORSOrigins); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) == 0 {
			return fmt.Errorf("%s is set but lists no origins", EnvCORSOrigins)
		}
		c.HTTP.CORSOrigins = origins
	}
	return nil
}

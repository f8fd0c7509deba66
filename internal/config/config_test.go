package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.Redis.QuizGenerationCooldown)
	assert.Empty(t, cfg.Redis.URL, "rate limiting is off without redis")
	assert.False(t, cfg.Migrations.AutoApply)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "missing database url", modify: func(c *Config) { c.Database.URL = "" }, wantErr: true},
		{name: "min above max", modify: func(c *Config) { c.Database.MinConns = 20 }, wantErr: true},
		{name: "missing http addr", modify: func(c *Config) { c.HTTP.Addr = "" }, wantErr: true},
		{name: "unknown log level", modify: func(c *Config) { c.Log.Level = "trace" }, wantErr: true},
		{name: "unknown log format", modify: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "negative cooldown", modify: func(c *Config) { c.Redis.QuizGenerationCooldown = -time.Second }, wantErr: true},
		{name: "zero cooldown disables limit", modify: func(c *Config) { c.Redis.QuizGenerationCooldown = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pebble-apps.yaml")
	content := `
database:
  url: postgres://app@db:5432/apps
http:
  addr: ":9090"
  read_timeout: 5s
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://app@db:5432/apps", cfg.Database.URL)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.HTTP.CORSOrigins = []string{"https://apps.example.com"}

	require.NoError(t, cfg.SaveToFile(path))
	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func testLoader(t *testing.T, env map[string]string) *Loader {
	t.Helper()
	l := NewLoader(nil)
	l.envFile = filepath.Join(t.TempDir(), ".env")
	l.lookup = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return l
}

func TestLoader_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":7000\"\nlog:\n  level: debug\n"), 0o644))

	l := testLoader(t, map[string]string{
		EnvHTTPAddr:    ":7100",
		EnvCORSOrigins: "https://a.example.com, https://b.example.com",
		EnvRedisURL:    "redis://localhost:6379/0",
	})

	cfg, err := l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.HTTP.Addr, "env overrides file")
	assert.Equal(t, "debug", cfg.Log.Level, "file overrides default")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoader_MissingFile(t *testing.T) {
	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := testLoader(t, nil).Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("implicit default file is optional", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := testLoader(t, nil).Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})
}

func TestLoader_EmptyCORSOrigins(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := testLoader(t, map[string]string{EnvCORSOrigins: " , "}).Load("")
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, "api_base_url: https://api.example.com\ntimeout: 5s\nsession_dir: /tmp/sessions\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Equal(t, "/tmp/sessions", cfg.SessionDir)
		assert.Equal(t, uint(3), cfg.MaxTries)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, "api_base_url: https://api.example.com\n")
		t.Setenv("CERTIFYCHAIN_API_URL", "https://staging.example.com")
		t.Setenv("CERTIFYCHAIN_MAX_TRIES", "5")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://staging.example.com", cfg.APIBaseURL)
		assert.Equal(t, uint(5), cfg.MaxTries)
	})

	t.Run("default file in home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".certifychain"), 0o700))
		require.NoError(t, os.WriteFile(filepath.Join(home, ".certifychain", "config.yaml"), []byte("cache_dir: /tmp/cache\n"), 0o600))

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "timeout: [\n"))
		assert.Error(t, err)
	})

	t.Run("invalid env value", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("CERTIFYCHAIN_TIMEOUT", "soon")

		_, err := Load("")
		assert.ErrorContains(t, err, "parse env")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"relative api url", func(c *Config) { c.APIBaseURL = "/api" }},
		{"non http api url", func(c *Config) { c.APIBaseURL = "ftp://example.com" }},
		{"bad google url", func(c *Config) { c.GoogleAuthURL = "example.com/login" }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"zero tries", func(c *Config) { c.MaxTries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.GoogleAuthURL = ""
	assert.NoError(t, cfg.Validate())
}

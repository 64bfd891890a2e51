// Package config loads CLI settings from defaults, an optional YAML file and
// CERTIFYCHAIN_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the CLI.
type Config struct {
	// APIBaseURL is the root of the CertifyChain API.
	APIBaseURL string `yaml:"api_base_url" env:"CERTIFYCHAIN_API_URL"`

	// GoogleAuthURL starts the Google login flow; the API redirects back to
	// CallbackAddr when it completes.
	GoogleAuthURL string `yaml:"google_auth_url" env:"CERTIFYCHAIN_GOOGLE_AUTH_URL"`
	CallbackAddr  string `yaml:"callback_addr" env:"CERTIFYCHAIN_CALLBACK_ADDR"`

	SessionDir string        `yaml:"session_dir" env:"CERTIFYCHAIN_SESSION_DIR"`
	CacheDir   string        `yaml:"cache_dir" env:"CERTIFYCHAIN_CACHE_DIR"`
	Timeout    time.Duration `yaml:"timeout" env:"CERTIFYCHAIN_TIMEOUT"`
	MaxTries   uint          `yaml:"max_tries" env:"CERTIFYCHAIN_MAX_TRIES"`
}

// Default returns the settings used when nothing is configured. Empty
// directories mean the package defaults of their consumers.
func Default() Config {
	return Config{
		APIBaseURL:    "http://localhost:8000",
		GoogleAuthURL: "http://localhost:8000/api/login/google-oauth2/",
		CallbackAddr:  "localhost:8080",
		Timeout:       30 * time.Second,
		MaxTries:      3,
	}
}

// DefaultPath returns ~/.certifychain/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".certifychain", "config.yaml"), nil
}

// Load reads path over the defaults and applies environment overrides. An
// empty path uses DefaultPath; a missing default file is not an error, a
// missing explicit one is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if err := absoluteHTTPURL("api_base_url", c.APIBaseURL); err != nil {
		return err
	}
	if c.GoogleAuthURL != "" {
		if err := absoluteHTTPURL("google_auth_url", c.GoogleAuthURL); err != nil {
			return err
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s: must not be negative", c.Timeout)
	}
	if c.MaxTries == 0 {
		return errors.New("invalid max_tries: must be at least 1")
	}
	return nil
}

func absoluteHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute http(s) URL", name, raw)
	}
	return nil
}

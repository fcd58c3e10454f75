package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
)

const (
	defaultPort      = 8080
	defaultBodyLimit = 1 << 20 // 1 MiB
)

var knownProviders = []string{
	provider.NameOpenAI,
	provider.NameAnthropic,
	provider.NameGoogle,
	provider.NameOllama,
}

// Config represents the host configuration parsed from YAML.
type Config struct {
	Server    ServerConfig                `yaml:"server"`
	HTTP      HTTPConfig                  `yaml:"http"`
	Providers map[string]ProviderDefaults `yaml:"providers"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port      int   `yaml:"port"`
	BodyLimit int64 `yaml:"body_limit"`
}

// HTTPConfig tunes the upstream HTTP client.
type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ProviderDefaults fill request fields the caller left empty.
type ProviderDefaults struct {
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *uint32  `yaml:"max_tokens"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:      defaultPort,
			BodyLimit: defaultBodyLimit,
		},
		HTTP: HTTPConfig{
			Timeout:     60 * time.Second,
			DialTimeout: 10 * time.Second,
		},
	}
}

// Load reads YAML configuration from disk over the defaults and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("server.body_limit must be positive, got %d", c.Server.BodyLimit)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.DialTimeout < 0 {
		return fmt.Errorf("http.dial_timeout must not be negative, got %s", c.HTTP.DialTimeout)
	}

	for name, defaults := range c.Providers {
		if !slices.Contains(knownProviders, name) {
			return fmt.Errorf("providers.%s: unknown provider, must be one of %s", name, strings.Join(knownProviders, ", "))
		}
		if err := validateBaseURL(name, defaults.BaseURL); err != nil {
			return err
		}
	}

	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("providers.%s: base_url %q is not a valid URL: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("providers.%s: base_url %q must use http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("providers.%s: base_url %q must include a host", name, raw)
	}
	return nil
}

// Apply fills the empty fields of req from the defaults configured for its provider.
func (c Config) Apply(req models.Config) models.Config {
	defaults, ok := c.Providers[req.Provider]
	if !ok {
		return req
	}

	out := req
	if out.APIKey == "" {
		out.APIKey = defaults.APIKey
	}
	if out.BaseURL == "" {
		out.BaseURL = defaults.BaseURL
	}
	if out.Model == "" {
		out.Model = defaults.Model
	}
	if out.Temperature == nil {
		out.Temperature = defaults.Temperature
	}
	if out.MaxTokens == nil {
		out.MaxTokens = defaults.MaxTokens
	}
	return out
}

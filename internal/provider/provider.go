package provider

import (
	"context"
	"strings"

	"chatbridge/internal/models"
)

// Provider identifiers accepted by the dispatcher.
const (
	NameOpenAI    = "openai"
	NameAnthropic = "anthropic"
	NameGoogle    = "google"
	NameOllama    = "ollama"
)

// Provider translates the generic schema to one upstream API and back.
type Provider interface {
	Name() string
	Info() Info
	Chat(ctx context.Context, cfg models.Config, messages []models.Message) (*models.Response, error)
}

// Info describes a provider for hosts: defaults, credential needs and known models.
type Info struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	DefaultModel   string   `json:"default_model"`
	DefaultBaseURL string   `json:"default_base_url"`
	RequiresAPIKey bool     `json:"requires_api_key"`
	APIKeyEnv      string   `json:"api_key_env,omitempty"`
	Models         []string `json:"models"`
}

// ResolveModel returns cfg.Model, or the provider default when unset.
func (i Info) ResolveModel(cfg models.Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return i.DefaultModel
}

// ResolveBaseURL returns cfg.BaseURL, or the provider default when unset,
// without a trailing slash.
func (i Info) ResolveBaseURL(cfg models.Config) string {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = i.DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ResolveAPIKey returns cfg.APIKey, failing with ErrMissingCredential when the
// provider requires one and none was supplied.
func (i Info) ResolveAPIKey(cfg models.Config) (string, error) {
	if cfg.APIKey == "" && i.RequiresAPIKey {
		return "", missingCredential(i.DisplayName)
	}
	return cfg.APIKey, nil
}

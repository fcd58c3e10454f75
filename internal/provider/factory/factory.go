package factory

import (
	"errors"
	"fmt"

	"chatbridge/internal/config"
	anthropicProvider "chatbridge/internal/provider/anthropic"
	googleProvider "chatbridge/internal/provider/google"
	ollamaProvider "chatbridge/internal/provider/ollama"
	openaiProvider "chatbridge/internal/provider/openai"
	"chatbridge/internal/router"
	"chatbridge/internal/transport"
)

// NewRouter builds a pooled HTTP client from cfg and wires every adapter to it.
func NewRouter(cfg config.Config) (*router.Router, error) {
	client := transport.NewHTTPClient(transport.ClientOptions{
		Timeout:     cfg.HTTP.Timeout,
		DialTimeout: cfg.HTTP.DialTimeout,
	})
	return NewRouterWithClient(client)
}

// NewRouterWithClient wires every adapter to the supplied transport.
func NewRouterWithClient(client transport.Doer) (*router.Router, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	openAI, err := openaiProvider.New(client)
	if err != nil {
		return nil, fmt.Errorf("initialise openai provider: %w", err)
	}
	anthropic, err := anthropicProvider.New(client)
	if err != nil {
		return nil, fmt.Errorf("initialise anthropic provider: %w", err)
	}
	google, err := googleProvider.New(client)
	if err != nil {
		return nil, fmt.Errorf("initialise google provider: %w", err)
	}
	ollama, err := ollamaProvider.New(client)
	if err != nil {
		return nil, fmt.Errorf("initialise ollama provider: %w", err)
	}

	return router.New(router.Adapters{
		OpenAI:    openAI,
		Anthropic: anthropic,
		Google:    google,
		Ollama:    ollama,
	})
}

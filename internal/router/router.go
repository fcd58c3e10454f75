package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
)

// Adapters holds one adapter per supported provider.
type Adapters struct {
	OpenAI    provider.Provider
	Anthropic provider.Provider
	Google    provider.Provider
	Ollama    provider.Provider
}

// Router dispatches generic chat requests to the adapter named by the config.
// It holds no per-call state and is safe for concurrent use.
type Router struct {
	adapters Adapters
}

// New constructs a router over the given adapters. All four are required.
func New(adapters Adapters) (*Router, error) {
	if adapters.OpenAI == nil || adapters.Anthropic == nil || adapters.Google == nil || adapters.Ollama == nil {
		return nil, errors.New("router requires an adapter for every provider")
	}
	return &Router{adapters: adapters}, nil
}

// Dispatch forwards cfg and messages unchanged to the selected adapter.
// Unknown providers fail before any network activity.
func (r *Router) Dispatch(ctx context.Context, cfg models.Config, messages []models.Message) (*models.Response, error) {
	adapter, err := r.lookup(cfg.Provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := adapter.Chat(ctx, cfg, messages)
	if err != nil {
		slog.DebugContext(ctx, "dispatch failed",
			"config", cfg,
			"messages", len(messages),
			"kind", provider.KindOf(err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	slog.DebugContext(ctx, "dispatch completed",
		"config", cfg,
		"messages", len(messages),
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// Providers lists the catalogue entries of every adapter in a fixed order.
func (r *Router) Providers() []provider.Info {
	return []provider.Info{
		r.adapters.OpenAI.Info(),
		r.adapters.Anthropic.Info(),
		r.adapters.Google.Info(),
		r.adapters.Ollama.Info(),
	}
}

// Lookup returns the catalogue entry for name.
func (r *Router) Lookup(name string) (provider.Info, error) {
	adapter, err := r.lookup(name)
	if err != nil {
		return provider.Info{}, err
	}
	return adapter.Info(), nil
}

func (r *Router) lookup(name string) (provider.Provider, error) {
	switch name {
	case provider.NameOpenAI:
		return r.adapters.OpenAI, nil
	case provider.NameAnthropic:
		return r.adapters.Anthropic, nil
	case provider.NameGoogle:
		return r.adapters.Google, nil
	case provider.NameOllama:
		return r.adapters.Ollama, nil
	default:
		return nil, fmt.Errorf("dispatch: %w", provider.Unsupported(name))
	}
}

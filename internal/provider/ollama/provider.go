package ollama

import (
	"context"
	"errors"
	"slices"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/transport"
)

const (
	DefaultModel   = "llama3.2"
	DefaultBaseURL = "http://localhost:11434"

	displayName = "Ollama"
	chatPath    = "/api/chat"
)

var info = provider.Info{
	Name:           provider.NameOllama,
	DisplayName:    displayName,
	DefaultModel:   DefaultModel,
	DefaultBaseURL: DefaultBaseURL,
	RequiresAPIKey: false,
	Models:         []string{"llama3.2", "llama3.1", "llama3", "mistral", "mixtral", "codellama", "phi3", "qwen2.5"},
}

// Provider talks to a local Ollama server. No authentication is sent.
type Provider struct {
	client transport.Doer
}

// New constructs an Ollama provider instance.
func New(client transport.Doer) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string {
	return provider.NameOllama
}

func (p *Provider) Info() provider.Info {
	out := info
	out.Models = slices.Clone(info.Models)
	return out
}

func (p *Provider) Chat(ctx context.Context, cfg models.Config, messages []models.Message) (*models.Response, error) {
	model := info.ResolveModel(cfg)

	req := transport.Request{
		URL:  info.ResolveBaseURL(cfg) + chatPath,
		Body: buildChatPayload(model, cfg, messages),
	}

	var providerResp chatResponse
	if err := provider.Exchange(ctx, p.client, displayName, req, &providerResp); err != nil {
		return nil, err
	}

	return providerResp.toUnified(model)
}

type chatPayload struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Options  *options        `json:"options,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *uint32  `json:"num_predict,omitempty"`
}

func buildChatPayload(model string, cfg models.Config, msgs []models.Message) chatPayload {
	messages := make([]ollamaMessage, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, ollamaMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	payload := chatPayload{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
	if cfg.Temperature != nil || cfg.MaxTokens != nil {
		payload.Options = &options{
			Temperature: cfg.Temperature,
			NumPredict:  cfg.MaxTokens,
		}
	}
	return payload
}

type chatResponse struct {
	Message *ollamaMessage `json:"message"`
}

// toUnified reports the requested model; Ollama usage counters are not mapped.
func (r chatResponse) toUnified(requestedModel string) (*models.Response, error) {
	if r.Message == nil {
		return nil, provider.EmptyResponse(displayName)
	}
	return &models.Response{
		Content: r.Message.Content,
		Model:   requestedModel,
	}, nil
}

package anthropic

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/transport"
)

const (
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultBaseURL   = "https://api.anthropic.com/v1"
	DefaultMaxTokens = 4096

	displayName  = "Anthropic"
	messagesPath = "/messages"
	apiVersion   = "2023-06-01"
)

var info = provider.Info{
	Name:           provider.NameAnthropic,
	DisplayName:    displayName,
	DefaultModel:   DefaultModel,
	DefaultBaseURL: DefaultBaseURL,
	RequiresAPIKey: true,
	APIKeyEnv:      "ANTHROPIC_API_KEY",
	Models: []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	},
}

// Provider implements Anthropic Messages API interactions.
type Provider struct {
	client transport.Doer
}

// New constructs an Anthropic provider instance.
func New(client transport.Doer) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string {
	return provider.NameAnthropic
}

func (p *Provider) Info() provider.Info {
	out := info
	out.Models = slices.Clone(info.Models)
	return out
}

func (p *Provider) Chat(ctx context.Context, cfg models.Config, messages []models.Message) (*models.Response, error) {
	apiKey, err := info.ResolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	model := info.ResolveModel(cfg)

	req := transport.Request{
		URL: info.ResolveBaseURL(cfg) + messagesPath,
		Headers: map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": apiVersion,
		},
		Body: buildMessagePayload(model, cfg, messages),
	}

	var providerResp messageResponse
	if err := provider.Exchange(ctx, p.client, displayName, req, &providerResp); err != nil {
		return nil, err
	}

	return providerResp.toUnified(model)
}

type messagePayload struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   uint32    `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildMessagePayload drops system messages; they are not forwarded anywhere.
// Every role other than assistant is sent as user.
func buildMessagePayload(model string, cfg models.Config, msgs []models.Message) messagePayload {
	messages := make([]message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == models.RoleSystem {
			continue
		}
		role := models.RoleUser
		if msg.Role == models.RoleAssistant {
			role = models.RoleAssistant
		}
		messages = append(messages, message{
			Role:    role,
			Content: msg.Content,
		})
	}

	maxTokens := uint32(DefaultMaxTokens)
	if cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}

	return messagePayload{
		Model:       model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   maxTokens,
	}
}

type messageResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   *usageBlock    `json:"usage"`
}

type contentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

type usageBlock struct {
	InputTokens  uint32 `json:"input_tokens"`
	OutputTokens uint32 `json:"output_tokens"`
}

func (r messageResponse) toUnified(requestedModel string) (*models.Response, error) {
	if len(r.Content) == 0 {
		return nil, provider.EmptyResponse(displayName)
	}
	first := r.Content[0]
	if first.Text == nil {
		return nil, fmt.Errorf("%w: %s content block of type %q has no text", provider.ErrMalformedResponse, displayName, first.Type)
	}

	resp := &models.Response{
		Content: *first.Text,
		Model:   r.Model,
	}
	if resp.Model == "" {
		resp.Model = requestedModel
	}
	if r.Usage != nil {
		// Anthropic reports no total; it is always derived.
		resp.Usage = models.NewUsage(r.Usage.InputTokens, r.Usage.OutputTokens, nil)
	}
	return resp, nil
}

package openai

import (
	"context"
	"errors"
	"slices"

	goopenai "github.com/sashabaranov/go-openai"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/transport"
)

const (
	DefaultModel   = "gpt-4o"
	DefaultBaseURL = "https://api.openai.com/v1"

	displayName = "OpenAI"
	chatPath    = "/chat/completions"
)

var info = provider.Info{
	Name:           provider.NameOpenAI,
	DisplayName:    displayName,
	DefaultModel:   DefaultModel,
	DefaultBaseURL: DefaultBaseURL,
	RequiresAPIKey: true,
	APIKeyEnv:      "OPENAI_API_KEY",
	Models:         []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"},
}

// Provider implements the Provider interface for OpenAI-compatible APIs.
type Provider struct {
	client transport.Doer
}

// New creates a new OpenAI provider.
func New(client transport.Doer) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string {
	return provider.NameOpenAI
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
		URL:     info.ResolveBaseURL(cfg) + chatPath,
		Headers: map[string]string{"Authorization": "Bearer " + apiKey},
		Body:    buildChatPayload(model, cfg, messages),
	}

	var providerResp chatResponse
	if err := provider.Exchange(ctx, p.client, displayName, req, &providerResp); err != nil {
		return nil, err
	}

	return providerResp.toUnified(model)
}

type chatPayload struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *uint32         `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildChatPayload(model string, cfg models.Config, msgs []models.Message) chatPayload {
	messages := make([]openAIMessage, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, openAIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return chatPayload{
		Model:       model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Stream:      false,
	}
}

type chatResponse struct {
	Model   string                          `json:"model"`
	Choices []goopenai.ChatCompletionChoice `json:"choices"`
	Usage   *usageBlock                     `json:"usage"`
}

// usageBlock keeps total_tokens optional so an absent total can be derived.
type usageBlock struct {
	PromptTokens     uint32  `json:"prompt_tokens"`
	CompletionTokens uint32  `json:"completion_tokens"`
	TotalTokens      *uint32 `json:"total_tokens"`
}

func (r chatResponse) toUnified(requestedModel string) (*models.Response, error) {
	if len(r.Choices) == 0 {
		return nil, provider.EmptyResponse(displayName)
	}

	resp := &models.Response{
		Content: r.Choices[0].Message.Content,
		Model:   r.Model,
	}
	if resp.Model == "" {
		resp.Model = requestedModel
	}
	if r.Usage != nil {
		resp.Usage = models.NewUsage(r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.TotalTokens)
	}
	return resp, nil
}

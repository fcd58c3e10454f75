// Package google adapts the generic chat schema to the Gemini generateContent API.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/transport"
)

const (
	DefaultModel   = "gemini-2.0-flash-exp"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	displayName = "Google"
	roleModel   = "model"
)

var info = provider.Info{
	Name:           provider.NameGoogle,
	DisplayName:    displayName,
	DefaultModel:   DefaultModel,
	DefaultBaseURL: DefaultBaseURL,
	RequiresAPIKey: true,
	APIKeyEnv:      "GEMINI_API_KEY",
	Models:         []string{"gemini-2.0-flash-exp", "gemini-1.5-pro", "gemini-1.5-flash", "gemini-1.0-pro"},
}

// Provider implements the Gemini REST API.
type Provider struct {
	client transport.Doer
}

// New constructs a Google provider instance.
func New(client transport.Doer) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string {
	return provider.NameGoogle
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

	// The key travels as a query parameter, not a header.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", info.ResolveBaseURL(cfg), model, url.QueryEscape(apiKey))

	req := transport.Request{
		URL:  endpoint,
		Body: buildGenerateRequest(cfg, messages),
	}

	var providerResp generateResponse
	if err := provider.Exchange(ctx, p.client, displayName, req, &providerResp); err != nil {
		return nil, err
	}

	return providerResp.toUnified(model)
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generation_config,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *uint32  `json:"max_output_tokens,omitempty"`
}

// buildGenerateRequest drops system messages and maps assistant to model.
func buildGenerateRequest(cfg models.Config, msgs []models.Message) generateRequest {
	contents := make([]content, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == models.RoleSystem {
			continue
		}
		role := models.RoleUser
		if msg.Role == models.RoleAssistant {
			role = roleModel
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: msg.Content}},
		})
	}

	req := generateRequest{Contents: contents}
	if cfg.Temperature != nil || cfg.MaxTokens != nil {
		req.GenerationConfig = &generationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		}
	}
	return req
}

type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
}

type usageMetadata struct {
	PromptTokenCount     uint32  `json:"promptTokenCount"`
	CandidatesTokenCount uint32  `json:"candidatesTokenCount"`
	TotalTokenCount      *uint32 `json:"totalTokenCount"`
}

func (r generateResponse) toUnified(requestedModel string) (*models.Response, error) {
	if len(r.Candidates) == 0 {
		return nil, provider.EmptyResponse(displayName)
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no content in %s response", provider.ErrEmptyResponse, displayName)
	}

	resp := &models.Response{
		Content: parts[0].Text,
		Model:   requestedModel,
	}
	if u := r.UsageMetadata; u != nil {
		resp.Usage = models.NewUsage(u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount)
	}
	return resp, nil
}

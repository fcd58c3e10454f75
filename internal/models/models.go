package models

import "log/slog"

// Conventional message roles. Roles are free-form; adapters decide how to treat others.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config carries the request-level settings for one dispatch.
// Empty strings mean "not supplied"; nil pointers likewise.
type Config struct {
	Provider    string   `json:"provider" yaml:"provider"`
	APIKey      string   `json:"api_key,omitempty" yaml:"api_key"`
	Model       string   `json:"model,omitempty" yaml:"model"`
	BaseURL     string   `json:"base_url,omitempty" yaml:"base_url"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature"`
	MaxTokens   *uint32  `json:"max_tokens,omitempty" yaml:"max_tokens"`
}

// LogValue implements slog.LogValuer. The API key is never emitted.
func (c Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("provider", c.Provider),
		slog.Bool("api_key_set", c.APIKey != ""),
	}
	if c.Model != "" {
		attrs = append(attrs, slog.String("model", c.Model))
	}
	if c.BaseURL != "" {
		attrs = append(attrs, slog.String("base_url", c.BaseURL))
	}
	if c.Temperature != nil {
		attrs = append(attrs, slog.Float64("temperature", *c.Temperature))
	}
	if c.MaxTokens != nil {
		attrs = append(attrs, slog.Uint64("max_tokens", uint64(*c.MaxTokens)))
	}
	return slog.GroupValue(attrs...)
}

// Message represents a single conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the normalized result of a dispatch.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

// NewUsage builds a Usage record. When the provider does not report a total
// independently, total is nil and the sum of prompt and completion is used.
func NewUsage(prompt, completion uint32, total *uint32) *Usage {
	u := &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
	if total != nil {
		u.TotalTokens = *total
	}
	return u
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Uint32 returns a pointer to v.
func Uint32(v uint32) *uint32 {
	return &v
}

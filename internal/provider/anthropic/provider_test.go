package anthropic

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/provider/providertest"
)

const successBody = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-sonnet-20241022",
	"content": [{"type": "text", "text": "Bonjour"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

func newProvider(t *testing.T, status int, body string) (*Provider, *providertest.Server) {
	t.Helper()
	server := providertest.NewServer(t, status, body)
	p, err := New(server.Client())
	require.NoError(t, err)
	return p, server
}

func TestChat_SendsDocumentedRequest(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	resp, err := p.Chat(context.Background(), models.Config{
		Provider: provider.NameAnthropic,
		APIKey:   "ak-test",
		BaseURL:  server.URL,
	}, []models.Message{{Role: "user", Content: "hello"}})
	require.NoError(t, err)

	call := server.OnlyCall(t)
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/messages", call.Path)
	assert.Equal(t, "ak-test", call.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", call.Header.Get("anthropic-version"))
	assert.Equal(t, "application/json", call.Header.Get("Content-Type"))
	assert.Empty(t, call.Header.Get("Authorization"))

	assert.Equal(t, DefaultModel, call.Body["model"])
	assert.Equal(t, 4096.0, call.Body["max_tokens"])
	assert.NotContains(t, call.Body, "temperature")
	assert.NotContains(t, call.Body, "system")

	assert.Equal(t, "Bonjour", resp.Content)
	assert.Equal(t, "claude-3-5-sonnet-20241022", resp.Model)
}

func TestChat_DropsSystemMessages(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	_, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, []models.Message{
		{Role: "system", Content: "you are terse"},
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)

	msgs := server.OnlyCall(t).Messages(t, "messages")
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0]["role"])
	assert.Equal(t, "hello", msgs[0]["content"])
}

func TestChat_CoercesRoles(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	_, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, []models.Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "tool", Content: "result"},
		{Role: "User", Content: "q2"},
	})
	require.NoError(t, err)

	msgs := server.OnlyCall(t).Messages(t, "messages")
	require.Len(t, msgs, 4)
	roles := []any{msgs[0]["role"], msgs[1]["role"], msgs[2]["role"], msgs[3]["role"]}
	assert.Equal(t, []any{"user", "assistant", "user", "user"}, roles)
	assert.Equal(t, "result", msgs[2]["content"])
}

func TestChat_ForwardsOptions(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	_, err := p.Chat(context.Background(), models.Config{
		APIKey:      "k",
		BaseURL:     server.URL,
		Model:       "claude-3-opus-20240229",
		Temperature: models.Float64(0.5),
		MaxTokens:   models.Uint32(100),
	}, []models.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	call := server.OnlyCall(t)
	assert.Equal(t, "claude-3-opus-20240229", call.Body["model"])
	assert.Equal(t, 0.5, call.Body["temperature"])
	assert.Equal(t, 100.0, call.Body["max_tokens"])
}

func TestChat_DerivesTotalTokens(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	resp, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, []models.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	require.NotNil(t, resp.Usage)
	assert.Equal(t, uint32(10), resp.Usage.PromptTokens)
	assert.Equal(t, uint32(5), resp.Usage.CompletionTokens)
	assert.Equal(t, uint32(15), resp.Usage.TotalTokens)
}

func TestChat_MissingAPIKey(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	_, err := p.Chat(context.Background(), models.Config{BaseURL: server.URL}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrMissingCredential)
	assert.Contains(t, err.Error(), "Anthropic API key is required")
	assert.Empty(t, server.Calls())
}

func TestChat_HTTPError(t *testing.T) {
	p, server := newProvider(t, http.StatusUnauthorized, `{"error":"bad key"}`)

	_, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrProviderHTTP)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestChat_EmptyContent(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, `{"content": [], "model": "claude"}`)

	_, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
	assert.Contains(t, err.Error(), "Anthropic")
}

func TestChat_FirstBlockWithoutText(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, `{"content": [{"type":"tool_use","id":"toolu_1","name":"lookup","input":{}}]}`)

	_, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrMalformedResponse)
	assert.Contains(t, err.Error(), "tool_use")
}

func TestChat_EmptyTextIsKept(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, `{"content": [{"type":"text","text":""}]}`)

	resp, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content)
}

func TestChat_MissingModelAndUsage(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, `{"content": [{"type":"text","text":"ok"}]}`)

	resp, err := p.Chat(context.Background(), models.Config{APIKey: "k", BaseURL: server.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.Nil(t, resp.Usage)
}

package ollama

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
	"model": "llama3.2:latest",
	"created_at": "2024-10-01T12:00:00Z",
	"message": {"role": "assistant", "content": "Howdy"},
	"done": true,
	"prompt_eval_count": 12,
	"eval_count": 4
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
		Provider: provider.NameOllama,
		BaseURL:  server.URL,
	}, []models.Message{
		{Role: "system", Content: "be kind"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)

	call := server.OnlyCall(t)
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/api/chat", call.Path)
	assert.Empty(t, call.Header.Get("Authorization"))
	assert.Equal(t, "application/json", call.Header.Get("Content-Type"))
	assert.Equal(t, "llama3.2", call.Body["model"])
	assert.Equal(t, false, call.Body["stream"])
	assert.NotContains(t, call.Body, "options")

	msgs := call.Messages(t, "messages")
	require.Len(t, msgs, 2, "system messages are forwarded unchanged")
	assert.Equal(t, "system", msgs[0]["role"])
	assert.Equal(t, "be kind", msgs[0]["content"])

	assert.Equal(t, "Howdy", resp.Content)
	assert.Equal(t, "llama3.2", resp.Model, "requested model is reported")
	assert.Nil(t, resp.Usage)
}

func TestChat_IgnoresAPIKey(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	_, err := p.Chat(context.Background(), models.Config{BaseURL: server.URL, APIKey: "unused"}, nil)
	require.NoError(t, err)

	call := server.OnlyCall(t)
	assert.Empty(t, call.Header.Get("Authorization"))
	assert.NotContains(t, call.RawQuery, "unused")
}

func TestChat_OptionsOnlyWhenSupplied(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	_, err := p.Chat(context.Background(), models.Config{
		BaseURL:   server.URL,
		Model:     "mistral",
		MaxTokens: models.Uint32(32),
	}, []models.Message{{Role: "user", Content: "x"}})
	require.NoError(t, err)

	call := server.OnlyCall(t)
	assert.Equal(t, "mistral", call.Body["model"])
	assert.Equal(t, map[string]any{"num_predict": 32.0}, call.Body["options"])
}

func TestChat_TemperatureOption(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, successBody)

	_, err := p.Chat(context.Background(), models.Config{BaseURL: server.URL, Temperature: models.Float64(0.9)}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"temperature": 0.9}, server.OnlyCall(t).Body["options"])
}

func TestChat_MissingMessage(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, `{"done": true}`)

	_, err := p.Chat(context.Background(), models.Config{BaseURL: server.URL}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestChat_HTTPError(t *testing.T) {
	p, server := newProvider(t, http.StatusNotFound, `{"error":"model 'nope' not found"}`)

	_, err := p.Chat(context.Background(), models.Config{BaseURL: server.URL, Model: "nope"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrProviderHTTP)
	assert.Contains(t, err.Error(), "Ollama API error (404 Not Found)")
	assert.Contains(t, err.Error(), "model 'nope' not found")
}

func TestChat_MalformedBody(t *testing.T) {
	p, server := newProvider(t, http.StatusOK, `<html>`)

	_, err := p.Chat(context.Background(), models.Config{BaseURL: server.URL}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrMalformedResponse)
}

func TestInfo_NoCredentialRequired(t *testing.T) {
	p, _ := newProvider(t, http.StatusOK, successBody)

	info := p.Info()
	assert.False(t, info.RequiresAPIKey)
	assert.Empty(t, info.APIKeyEnv)
	assert.Equal(t, DefaultBaseURL, info.DefaultBaseURL)
}

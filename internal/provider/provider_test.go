package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/models"
	"chatbridge/internal/transport"
)

var testInfo = Info{
	Name:           "acme",
	DisplayName:    "Acme",
	DefaultModel:   "acme-1",
	DefaultBaseURL: "https://acme.example/v1",
	RequiresAPIKey: true,
}

func TestInfo_ResolveDefaults(t *testing.T) {
	assert.Equal(t, "acme-1", testInfo.ResolveModel(models.Config{}))
	assert.Equal(t, "acme-2", testInfo.ResolveModel(models.Config{Model: "acme-2"}))
	assert.Equal(t, "https://acme.example/v1", testInfo.ResolveBaseURL(models.Config{}))
	assert.Equal(t, "http://proxy", testInfo.ResolveBaseURL(models.Config{BaseURL: "http://proxy/"}))
}

func TestInfo_ResolveAPIKey(t *testing.T) {
	_, err := testInfo.ResolveAPIKey(models.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "Acme API key is required")

	key, err := testInfo.ResolveAPIKey(models.Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "k", key)

	optional := testInfo
	optional.RequiresAPIKey = false
	key, err = optional.ResolveAPIKey(models.Config{})
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestHTTPError_MessageCarriesStatusAndBody(t *testing.T) {
	err := error(&HTTPError{Provider: "OpenAI", StatusCode: 401, Status: "401 Unauthorized", Body: `{"error":"bad key"}`})

	assert.Equal(t, `OpenAI API error (401 Unauthorized): {"error":"bad key"}`, err.Error())
	assert.ErrorIs(t, err, ErrProviderHTTP)

	var httpErr *HTTPError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &httpErr)
	assert.Equal(t, 401, httpErr.StatusCode)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "unsupported", err: Unsupported("bogus"), want: KindUnsupportedProvider},
		{name: "missing credential", err: missingCredential("OpenAI"), want: KindMissingCredential},
		{name: "transport", err: fmt.Errorf("%w: boom", ErrTransport), want: KindTransport},
		{name: "http", err: &HTTPError{StatusCode: 500}, want: KindProviderHTTP},
		{name: "malformed", err: fmt.Errorf("%w: x", ErrMalformedResponse), want: KindMalformedResponse},
		{name: "empty", err: EmptyResponse("Google"), want: KindEmptyResponse},
		{name: "other", err: errors.New("other"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestUnsupported_CarriesName(t *testing.T) {
	err := Unsupported("bogus")

	assert.ErrorIs(t, err, ErrUnsupportedProvider)
	assert.Contains(t, err.Error(), "bogus")
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("%w: %w", ErrTransport, context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("nope")))
}

func TestExchange(t *testing.T) {
	type payload struct {
		Text string `json:"text"`
	}

	t.Run("success decodes body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"text":"hello"}`)
		}))
		defer server.Close()

		var out payload
		err := Exchange(context.Background(), server.Client(), "Acme", transport.Request{URL: server.URL, Body: struct{}{}}, &out)
		require.NoError(t, err)
		assert.Equal(t, "hello", out.Text)
	})

	t.Run("non-2xx keeps raw body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"bad key"}`)
		}))
		defer server.Close()

		var out payload
		err := Exchange(context.Background(), server.Client(), "Acme", transport.Request{URL: server.URL, Body: struct{}{}}, &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderHTTP)
		assert.Contains(t, err.Error(), "401")
		assert.Contains(t, err.Error(), "bad key")
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}))
		defer server.Close()

		var out payload
		err := Exchange(context.Background(), server.Client(), "Acme", transport.Request{URL: server.URL, Body: struct{}{}}, &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		var out payload
		err := Exchange(context.Background(), http.DefaultClient, "Acme", transport.Request{URL: url, Body: struct{}{}}, &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, KindTransport, KindOf(err))
	})

	t.Run("unencodable payload is not a transport failure", func(t *testing.T) {
		var out payload
		err := Exchange(context.Background(), http.DefaultClient, "Acme", transport.Request{
			URL:  "http://localhost",
			Body: map[string]float64{"temperature": math.Inf(1)},
		}, &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.NotErrorIs(t, err, ErrTransport)
		assert.Equal(t, KindInvalidRequest, KindOf(err))
	})
}

// Package transport issues JSON POST requests to upstream providers.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatbridge/internal/version"
)

const (
	contentTypeJSON = "application/json"

	DefaultTimeout         = 60 * time.Second
	DefaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// ErrEncodePayload is returned when the request body cannot be marshalled.
var ErrEncodePayload = errors.New("encode payload")

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one JSON POST.
type Request struct {
	URL     string
	Headers map[string]string
	Body    any
}

// Result is the raw outcome of a completed exchange.
type Result struct {
	StatusCode int
	Body       string
}

// OK reports whether the status is in the 2xx range.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Status renders the status code with its reason phrase, e.g. "401 Unauthorized".
func (r Result) Status() string {
	if text := http.StatusText(r.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", r.StatusCode, text)
	}
	return fmt.Sprintf("%d", r.StatusCode)
}

// ClientOptions tunes the HTTP client built by NewHTTPClient.
type ClientOptions struct {
	Timeout     time.Duration
	DialTimeout time.Duration
}

// NewHTTPClient returns a pooled client. A zero Timeout disables the overall deadline.
func NewHTTPClient(opts ClientOptions) *http.Client {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
}

// Post marshals req.Body, sends it and reads the whole response body as text.
// A non-2xx status is not an error here; callers inspect Result.
func Post(ctx context.Context, client Doer, req Request) (Result, error) {
	if client == nil {
		return Result{}, errors.New("http client must not be nil")
	}

	body, err := json.Marshal(req.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrEncodePayload, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("construct request: %w", redact(err))
	}

	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", version.Get().UserAgent())
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return Result{}, redact(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response body: %w", err)
	}

	return Result{
		StatusCode: httpResp.StatusCode,
		Body:       string(data),
	}, nil
}

// redact strips the query string from URLs embedded in errors; Google carries
// the API key there. The URL may not parse, so it is cut at the first '?'.
func redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	stripped, _, found := strings.Cut(urlErr.URL, "?")
	if !found {
		return err
	}
	return &url.Error{Op: urlErr.Op, URL: stripped, Err: urlErr.Err}
}

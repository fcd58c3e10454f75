package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedProvider indicates the provider identifier is not recognised.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingCredential indicates a required API key was not supplied.
	ErrMissingCredential = errors.New("missing credential")

	// ErrTransport indicates the HTTP exchange itself could not complete.
	ErrTransport = errors.New("transport failure")

	// ErrProviderHTTP indicates the upstream answered with a non-success status.
	ErrProviderHTTP = errors.New("provider http error")

	// ErrMalformedResponse indicates the response body did not match the expected shape.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrEmptyResponse indicates the response held no usable candidate.
	ErrEmptyResponse = errors.New("empty provider response")

	// ErrInvalidRequest indicates the request could not be encoded for the upstream.
	ErrInvalidRequest = errors.New("invalid request")
)

// Error kinds reported by KindOf.
const (
	KindUnsupportedProvider = "unsupported_provider"
	KindMissingCredential   = "missing_credential"
	KindTransport           = "transport_failure"
	KindProviderHTTP        = "provider_http_error"
	KindMalformedResponse   = "malformed_response"
	KindEmptyResponse       = "empty_response"
	KindInvalidRequest      = "invalid_request_error"
	KindUnknown             = "unknown"
)

// HTTPError is returned when the upstream completes with a non-2xx status.
// Body holds the raw, unparsed response text.
type HTTPError struct {
	Provider   string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("%s API error (%s): %s", e.Provider, status, e.Body)
}

func (e *HTTPError) Unwrap() error {
	return ErrProviderHTTP
}

// Unsupported builds the error returned for an unknown provider identifier.
func Unsupported(name string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
}

func missingCredential(displayName string) error {
	return fmt.Errorf("%w: %s API key is required", ErrMissingCredential, displayName)
}

// EmptyResponse builds the error returned when no candidate is present.
func EmptyResponse(displayName string) error {
	return fmt.Errorf("%w: no response from %s", ErrEmptyResponse, displayName)
}

// KindOf classifies err into one of the Kind constants.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedProvider):
		return KindUnsupportedProvider
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrProviderHTTP):
		return KindProviderHTTP
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}

// IsTimeout reports whether err stems from an expired deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

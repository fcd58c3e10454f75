package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chatbridge/internal/transport"
)

// Exchange performs the single POST of a chat call and decodes a successful
// body into out. The body is read in full before any parsing so that non-2xx
// payloads surface verbatim in *HTTPError.
func Exchange(ctx context.Context, client transport.Doer, displayName string, req transport.Request, out any) error {
	res, err := transport.Post(ctx, client, req)
	if errors.Is(err, transport.ErrEncodePayload) {
		return fmt.Errorf("%w: %s request: %w", ErrInvalidRequest, displayName, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s request failed: %w", ErrTransport, displayName, err)
	}

	if !res.OK() {
		return &HTTPError{
			Provider:   displayName,
			StatusCode: res.StatusCode,
			Status:     res.Status(),
			Body:       res.Body,
		}
	}

	if err := json.Unmarshal([]byte(res.Body), out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrMalformedResponse, displayName, err)
	}
	return nil
}

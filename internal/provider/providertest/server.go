// Package providertest provides a recording upstream for adapter tests.
package providertest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Call is one request received by the Server.
type Call struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	RawBody  []byte
	Body     map[string]any
}

// Server answers every request with a fixed status and body and records it.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []Call
	status int
	body   string
}

// NewServer starts a Server that is closed when the test ends.
func NewServer(t testing.TB, status int, body string) *Server {
	t.Helper()

	s := &Server{status: status, body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	call := Call{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		RawBody:  raw,
	}
	_ = json.Unmarshal(raw, &call.Body)

	s.mu.Lock()
	s.calls = append(s.calls, call)
	status, body := s.status, s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

// Calls returns a copy of the recorded calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// OnlyCall fails the test unless exactly one call was recorded, and returns it.
func (s *Server) OnlyCall(t testing.TB) Call {
	t.Helper()

	calls := s.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", len(calls))
	}
	return calls[0]
}

// Messages returns body[key] decoded as a list of JSON objects.
func (c Call) Messages(t testing.TB, key string) []map[string]any {
	t.Helper()

	raw, ok := c.Body[key].([]any)
	if !ok {
		t.Fatalf("request body field %q is not a list: %s", key, c.RawBody)
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("request body field %q holds a non-object entry: %s", key, c.RawBody)
		}
		out = append(out, obj)
	}
	return out
}

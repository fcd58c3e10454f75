package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chatbridge/internal/config"
	"chatbridge/internal/models"
	"chatbridge/internal/provider"
)

const (
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

// Dispatcher is the operation surface the server exposes.
type Dispatcher interface {
	Dispatch(ctx context.Context, cfg models.Config, messages []models.Message) (*models.Response, error)
	Providers() []provider.Info
}

type Server struct {
	cfg        config.Config
	dispatcher Dispatcher
	app        *echo.Echo
	address    string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, dispatcher Dispatcher) (*Server, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		app:        e,
		address:    fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	// No write timeout: a dispatch lasts as long as the upstream takes.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/providers", s.handleProviders)
	s.app.POST("/v1/dispatch", s.handleDispatch)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"providers": s.dispatcher.Providers()})
}

type dispatchRequest struct {
	Config   models.Config    `json:"config"`
	Messages []models.Message `json:"messages"`
}

func (s *Server) handleDispatch(c echo.Context) error {
	var req dispatchRequest
	if err := decodeRequestBody(c, &req, s.cfg.Server.BodyLimit); err != nil {
		return err
	}

	if strings.TrimSpace(req.Config.Provider) == "" {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "config.provider is required",
			Type:    "invalid_request_error",
		}
	}

	ctx := c.Request().Context()
	cfg := s.cfg.Apply(req.Config)

	resp, err := s.dispatcher.Dispatch(ctx, cfg, req.Messages)
	if err != nil {
		return toHTTPError(err)
	}
	if resp == nil {
		return requestError{
			Status:  http.StatusBadGateway,
			Message: "upstream provider returned an empty response",
			Type:    provider.KindEmptyResponse,
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func decodeRequestBody[T any](c echo.Context, target *T, limit int64) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		case errors.As(err, &tooLarge):
			return requestError{
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, fmt.Sprint(he.Message), "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

// toHTTPError maps a dispatch error onto the response status and error type.
func toHTTPError(err error) error {
	kind := provider.KindOf(err)
	reqErr := requestError{
		Status:  http.StatusBadGateway,
		Message: err.Error(),
		Type:    kind,
	}

	switch kind {
	case provider.KindUnsupportedProvider, provider.KindMissingCredential, provider.KindInvalidRequest:
		reqErr.Status = http.StatusBadRequest
	case provider.KindProviderHTTP:
		var httpErr *provider.HTTPError
		if errors.As(err, &httpErr) {
			reqErr.Code = strconv.Itoa(httpErr.StatusCode)
		}
	case provider.KindTransport:
		if provider.IsTimeout(err) {
			reqErr.Status = http.StatusGatewayTimeout
		}
	case provider.KindUnknown:
		slog.Error("dispatch failed with unclassified error", "err", err)
		reqErr.Status = http.StatusInternalServerError
		reqErr.Message = "internal server error"
		reqErr.Type = "server_error"
	}

	return reqErr
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("chatbridge ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /v1/providers")
	fmt.Println("  POST /v1/dispatch")
	fmt.Printf("Example:\n  curl http://%s:%d/v1/dispatch -H 'Content-Type: application/json' -d '{\"config\":{\"provider\":\"ollama\"},\"messages\":[{\"role\":\"user\",\"content\":\"hello\"}]}'\n\n", host, port)
}

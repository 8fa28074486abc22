// Package server owns the HTTP listener lifecycle, routing, and the
// cross-cutting middleware.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// HTTPServer manages the HTTP server lifecycle.
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
}

// NewHTTPServer creates the server for the given handler and address.
func NewHTTPServer(handler http.Handler, addr string, logger *slog.Logger) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "http"),
	}
}

// Start blocks serving requests until Stop is called or the listener fails.
func (h *HTTPServer) Start() error {
	h.logger.Info("http server starting", "addr", h.server.Addr)

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully drains and stops the server.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("http server stopping", "addr", h.server.Addr)

	if err := h.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// HealthHandler answers load balancer health checks.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

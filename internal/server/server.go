// Package server exposes the HTTP + WebSocket API surface: threshold CRUD,
// the notification feed, and bot lifecycle endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"alphawatch/internal/domain"
	"alphawatch/internal/server/handler"
	"alphawatch/internal/server/middleware"
	"alphawatch/internal/server/ws"
)

// rate limit applied per client IP when a limiter is configured.
const (
	rateLimitRequests = 120
	rateLimitWindow   = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Thresholds    *handler.ThresholdHandler
	Notifications *handler.NotificationHandler
	Bots          *handler.BotHandler
	Contacts      *handler.ContactHandler
}

// Server is the headless HTTP + WebSocket API server for the alert engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Threshold endpoints.
	mux.HandleFunc("GET /api/thresholds", handlers.Thresholds.ListThresholds)
	mux.HandleFunc("POST /api/thresholds", handlers.Thresholds.CreateThreshold)
	mux.HandleFunc("GET /api/thresholds/{id}", handlers.Thresholds.GetThreshold)
	mux.HandleFunc("PUT /api/thresholds/{id}", handlers.Thresholds.UpdateThreshold)
	mux.HandleFunc("DELETE /api/thresholds/{id}", handlers.Thresholds.DeleteThreshold)

	// Notification endpoints.
	mux.HandleFunc("GET /api/notifications", handlers.Notifications.ListNotifications)
	mux.HandleFunc("GET /api/notifications/{id}", handlers.Notifications.GetNotification)
	mux.HandleFunc("POST /api/notifications/{id}/read", handlers.Notifications.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", handlers.Notifications.DeleteNotification)

	// Bot lifecycle endpoints.
	mux.HandleFunc("GET /api/bots", handlers.Bots.ListBots)
	mux.HandleFunc("POST /api/bots", handlers.Bots.CreateBot)
	mux.HandleFunc("GET /api/bots/{id}", handlers.Bots.GetBot)
	mux.HandleFunc("DELETE /api/bots/{id}", handlers.Bots.DeleteBot)
	mux.HandleFunc("POST /api/bots/{id}/start", handlers.Bots.StartBot)
	mux.HandleFunc("POST /api/bots/{id}/pause", handlers.Bots.PauseBot)
	mux.HandleFunc("POST /api/bots/{id}/stop", handlers.Bots.StopBot)
	mux.HandleFunc("POST /api/bots/{id}/heartbeat", handlers.Bots.Heartbeat)

	// Contact registration for outbound channels.
	mux.HandleFunc("PUT /api/users/{id}/contacts", handlers.Contacts.UpsertContacts)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when a limiter is available.
	if limiter != nil {
		h = middleware.RateLimit(limiter, rateLimitRequests, rateLimitWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

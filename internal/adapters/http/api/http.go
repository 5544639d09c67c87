// Package api exposes the canvas event feed over HTTP and websockets.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/ginput/internal/domain/dedupe"
	"github.com/okian/ginput/internal/domain/model"
	"github.com/okian/ginput/pkg/logger"
	"github.com/okian/ginput/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue posts an event to the canvas. Returns false on backpressure.
	Enqueue(ctx context.Context, ev model.Event) bool
}

// StatsProvider reports service statistics for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server wires HTTP routes for the event feed.
type Server struct {
	deps     Dependencies
	stats    StatsProvider
	sessions Sessions
	logger   logger.Logger

	maxBodyBytes int64
	wsIdle       time.Duration
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		stats:        stats,
		logger:       logger.NewNop(),
		maxBodyBytes: defaultMaxBodyBytes,
		wsIdle:       defaultWSIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.handlePostEvent, "events"))
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.sessions != nil {
		mux.HandleFunc("POST /sessions", MetricsMiddleware(s.handleStartSession, "sessions"))
		mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.handleGetSession, "sessions"))
	}
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, newErrorResponse(status, code, err))
}

func newErrorResponse(status int, code string, err error) errorResponse {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	return errorResponse{Code: code, Message: msg}
}

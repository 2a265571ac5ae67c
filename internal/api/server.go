package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chainlens/internal/account"
	"chainlens/internal/convert"
	"chainlens/internal/history"
	"chainlens/internal/storage"
	"chainlens/internal/ticker"
)

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and the
// account/price analytics REST APIs
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	port       int

	repository storage.Repository
	client     account.Client
	converter  *convert.Converter
	replayer   *history.Replayer
	aggregator *ticker.Aggregator
	gold       *ticker.Gold
}

// NewServer creates a new API server instance over the analytics stack
func NewServer(port int, repository storage.Repository, client account.Client, converter *convert.Converter, replayer *history.Replayer, aggregator *ticker.Aggregator, gold *ticker.Gold) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		port:       port,
		repository: repository,
		client:     client,
		converter:  converter,
		replayer:   replayer,
		aggregator: aggregator,
		gold:       gold,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Analytics endpoints
	s.mux.HandleFunc("/accounts/", s.handleAccountRoutes)
	s.mux.HandleFunc("/price/", s.handlePrice)
	s.mux.HandleFunc("/gold", s.handleGold)
}

// handleAccountRoutes routes account sub-endpoints
func (s *Server) handleAccountRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/accounts/")
	parts := strings.Split(path, "/")

	if parts[0] == "" {
		s.sendError(w, "Account name required", http.StatusBadRequest)
		return
	}

	// GET /accounts/{name}
	if len(parts) == 1 {
		s.handleAccountSummary(w, r, parts[0])
		return
	}

	// GET /accounts/{name}/history
	if len(parts) == 2 && parts[1] == "history" {
		s.handleAccountHistory(w, r, parts[0])
		return
	}

	// GET /accounts/{name}/curation
	if len(parts) == 2 && parts[1] == "curation" {
		s.handleAccountCuration(w, r, parts[0])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/accounts/", "/price/", "/gold"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}

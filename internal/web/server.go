// Package web serves the mind dashboard: a JSON API over the per-agent
// aggregates, an SSE stream of mind events, and a small HTML view of the
// current learnings and dreams.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openclaw/mind/internal/config"
	"github.com/openclaw/mind/internal/hub"
	"github.com/openclaw/mind/internal/manager"
)

// Server is the HTTP server for the mind dashboard.
type Server struct {
	cfg    *config.Config
	mgr    *manager.Manager
	hub    *hub.Hub
	mux    *http.ServeMux
	server *http.Server
}

// New creates a dashboard server. hub may be nil to disable SSE.
func New(cfg *config.Config, mgr *manager.Manager, h *hub.Hub) *Server {
	s := &Server{
		cfg: cfg,
		mgr: mgr,
		hub: h,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.DashboardPort),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/agents/{agent}/dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /api/v1/agents/{agent}/learnings", s.handleLearnings)
	s.mux.HandleFunc("POST /api/v1/agents/{agent}/learnings/{id}/approve", s.handleApprove)
	s.mux.HandleFunc("POST /api/v1/agents/{agent}/learnings/{id}/reject", s.handleReject)
	s.mux.HandleFunc("GET /api/v1/agents/{agent}/cron", s.handleCron)
	s.mux.HandleFunc("GET /api/v1/agents/{agent}/events", s.handleEvents)
	s.mux.HandleFunc("GET /agents/{agent}", s.handlePage)
}

// Start begins serving HTTP requests. It blocks until the server is shut down.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

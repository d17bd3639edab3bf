// Package server provides the local console: one generation session exposed over
// JSON, Server-Sent Events and an HTML results fragment.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonathan/coldmail/internal/composer"
	"github.com/jonathan/coldmail/internal/logger"
	"github.com/jonathan/coldmail/internal/render"
	"github.com/jonathan/coldmail/internal/session"
	"github.com/jonathan/coldmail/internal/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Server represents the console HTTP server
type Server struct {
	httpServer *http.Server
	controller *session.Controller
	composer   *composer.Composer
	clipboard  render.Clipboard
	logger     *zap.Logger
	now        func() time.Time

	// submitMu serializes submissions so the composer callback's result can be read back.
	submitMu   sync.Mutex
	submission *session.Submission

	viewMu   sync.Mutex
	viewer   *render.Viewer
	viewerID string
}

// Config holds server configuration
type Config struct {
	Port       int
	Controller *session.Controller
	Clipboard  render.Clipboard
	Logger     *zap.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("session controller is required")
	}

	s := &Server{
		controller: cfg.Controller,
		clipboard:  cfg.Clipboard,
		logger:     logger.OrNop(cfg.Logger),
		now:        time.Now,
	}
	s.composer = composer.New(s.onComposerSubmit, s.controller.Reset)

	// Request contexts derive from baseCtx, which is cancelled when shutdown begins
	// so open event streams end instead of holding Shutdown until its deadline.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: the events stream stays open.
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	s.httpServer.RegisterOnShutdown(cancelBase)

	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/composer", s.handleGetComposer)
	mux.HandleFunc("PUT /api/composer", s.handleUpdateComposer)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session/submit", s.handleSubmit)
	mux.HandleFunc("POST /api/session/reset", s.handleReset)
	mux.HandleFunc("GET /api/session/events", s.handleEvents)
	mux.HandleFunc("GET /api/session/view", s.handleView)
	mux.HandleFunc("GET /api/session/export", s.handleExport)
	mux.HandleFunc("GET /api/session/emails/{index}/download", s.handleDownloadEmail)
	mux.HandleFunc("POST /api/session/emails/{index}/toggle", s.handleToggleEmail)
	mux.HandleFunc("POST /api/session/emails/{index}/copy", s.handleCopyEmail)

	return s.withLogging(s.withCORS(mux))
}

// Start listens on the configured port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. The session controller is
// closed on the way out.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("console server starting", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down console server")
		defer s.controller.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("console server stopped")
	return nil
}

// onComposerSubmit is the composer's submit callback.
func (s *Server) onComposerSubmit(req types.GenerationRequest) {
	s.submission = s.controller.Submit(context.Background(), req)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFrom writes err with the status HTTPStatus maps it to.
func (s *Server) errorFrom(w http.ResponseWriter, err error) {
	s.errorResponse(w, HTTPStatus(err), err.Error())
}

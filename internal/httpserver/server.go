// Package httpserver exposes the health and manual-trigger endpoints of the
// long-running funnel service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/scheduler"
)

// Server serves the funnel service's HTTP surface.
type Server struct {
	sched      *scheduler.Scheduler
	logger     *zap.Logger
	httpServer *http.Server
}

// New creates a Server listening on the given port.
func New(port int, sched *scheduler.Scheduler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		sched:  sched,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /manual/run", s.handleTriggerRun)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening. It blocks until the server is shut down or an
// error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "recruit-pilot",
	})
}

// handleTriggerRun kicks off a funnel run outside the cron cadence. The run
// itself happens in the background.
func (s *Server) handleTriggerRun(w http.ResponseWriter, _ *http.Request) {
	if s.sched == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler is not running")
		return
	}

	started := make(chan bool, 1)
	go func() {
		started <- s.sched.Trigger(context.Background())
	}()

	select {
	case ok := <-started:
		if !ok {
			writeError(w, http.StatusConflict, "a run is already in flight")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "completed"})
	case <-time.After(100 * time.Millisecond):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func withLogging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

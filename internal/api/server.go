// Package api exposes the operational HTTP interface: health and
// readiness probes, Prometheus metrics, and job status/trigger
// endpoints backed by the scheduler's in-memory status board.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/docsync"
	"github.com/docfoundry/docfoundry/internal/metrics"
	"github.com/docfoundry/docfoundry/internal/scheduler"
)

// Pinger reports whether a downstream dependency is reachable. The
// readiness probe uses it to gate traffic until the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	requestTimeout = 60 * time.Second
	triggerTimeout = 5 * time.Minute
	readyTimeout   = 2 * time.Second
)

// Server wires HTTP handlers to the scheduler.
type Server struct {
	router chi.Router
	sched  *scheduler.Scheduler
	pinger Pinger
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The pinger
// may be nil, in which case readiness always succeeds.
func NewServer(sched *scheduler.Scheduler, pinger Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sched:  sched,
		pinger: pinger,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Get("/running", s.runningJobs)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Post("/trigger", s.triggerJob)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("readiness probe failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listJobs(w http.ResponseWriter, _ *http.Request) {
	board := s.sched.Board()
	jobs := make([]docsync.JobStatus, 0, len(scheduler.JobNames))
	for _, name := range scheduler.JobNames {
		if st, ok := board.Get(name); ok {
			jobs = append(jobs, st)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) runningJobs(w http.ResponseWriter, _ *http.Request) {
	var running []docsync.JobStatus
	for _, st := range s.sched.Board().All() {
		if st.State == docsync.JobStateRunning {
			running = append(running, st)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": running,
		"any":     len(running) > 0,
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, ok := s.sched.Board().Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": st})
}

// triggerJob runs the named job synchronously. A 409 means the same
// job was already running and this trigger was skipped, which callers
// should treat as success-shaped.
func (s *Server) triggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	ctx, cancel := context.WithTimeout(r.Context(), triggerTimeout)
	defer cancel()

	state, err := s.sched.Trigger(ctx, name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	st, _ := s.sched.Board().Get(name)
	payload := map[string]any{"state": state, "job": st}
	if state == docsync.JobStateSkipped {
		writeJSON(w, http.StatusConflict, payload)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package api exposes the HTTP interface for the reference hub.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apc-golf/refhub/internal/config"
	"github.com/apc-golf/refhub/internal/metrics"
	"github.com/apc-golf/refhub/internal/refs"
	"github.com/apc-golf/refhub/internal/storybook"
	"github.com/apc-golf/refhub/internal/worker"
)

// BatchRunner triggers capture batches on demand.
type BatchRunner interface {
	RunBatch(ctx context.Context, limit int) (worker.Result, error)
}

// Server wires HTTP handlers to the store, worker, and generators.
type Server struct {
	router    chi.Router
	store     refs.Store
	runner    BatchRunner
	blob      refs.BlobStore
	storybook *storybook.Generator
	clock     refs.Clock
	cfg       config.Config
	log       *zap.Logger
}

// Deps collects the Server's collaborators.
type Deps struct {
	Store     refs.Store
	Runner    BatchRunner
	Blob      refs.BlobStore
	Storybook *storybook.Generator
	Clock     refs.Clock
	Logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cfg config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:     deps.Store,
		runner:    deps.Runner,
		blob:      deps.Blob,
		storybook: deps.Storybook,
		clock:     deps.Clock,
		cfg:       cfg,
		log:       log,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoverMiddleware(log))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Password != "" {
			r.Use(passwordMiddleware(cfg.Auth.Password))
		}
		r.Route("/references", func(r chi.Router) {
			r.Post("/", s.enqueueReferences)
			r.Get("/", s.listReferences)
			r.Patch("/tags", s.updateTags)
			r.Post("/retry", s.retryFailed)
			r.Get("/stats", s.stats)
		})
		r.Post("/queue/process", s.processQueue)
		r.Get("/export/csv", s.exportCSV)
		r.Get("/export/xlsx", s.exportXLSX)
		r.Get("/archive", s.archive)
		r.Post("/uploads", s.uploadAssets)
		r.Post("/storybooks", s.createStorybook)
		r.Post("/cardnews", s.createCardnews)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Stats(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func loggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			log.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func passwordMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-App-Password")
			if got == "" {
				got = r.URL.Query().Get("password")
			}
			if got != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
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

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

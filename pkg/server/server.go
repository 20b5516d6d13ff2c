// Package server exposes statement generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pario-ai/sqlpilot/pkg/backend"
	"github.com/pario-ai/sqlpilot/pkg/budget"
	"github.com/pario-ai/sqlpilot/pkg/generator"
	"github.com/pario-ai/sqlpilot/pkg/history"
	"github.com/pario-ai/sqlpilot/pkg/limiter"
	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/observability"
	"github.com/pario-ai/sqlpilot/pkg/optimizer"
	"github.com/pario-ai/sqlpilot/pkg/prompt"
	"github.com/pario-ai/sqlpilot/pkg/schema"
	"github.com/pario-ai/sqlpilot/pkg/tracker"
)

const maxBodyBytes = 1 << 20

// Runner executes a statement against the target database.
type Runner interface {
	Run(ctx context.Context, statement string) (*models.ResultSet, error)
}

// Options holds the optional collaborators of a Server.
type Options struct {
	Listen         string
	DefaultDialect string
	Schema         *schema.Provider
	Tracker        tracker.Tracker
	Executor       Runner
	Limiter        *limiter.Store
	Stats          limiter.StatsStore
	KeyHeader      string
	Logger         *slog.Logger
}

// Server is the sqlpilot HTTP API.
type Server struct {
	gen     *generator.Service
	opts    Options
	logger  *slog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server around gen.
func New(gen *generator.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultDialect == "" {
		opts.DefaultDialect = string(models.DialectMySQL)
	}
	s := &Server{
		gen:    gen,
		opts:   opts,
		logger: opts.Logger,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /v1/explain", s.handleExplain)
	s.mux.HandleFunc("GET /v1/schema", s.handleSchema)
	s.mux.HandleFunc("POST /v1/schema/refresh", s.handleSchemaRefresh)
	s.mux.HandleFunc("GET /v1/cache", s.handleCacheStats)
	s.mux.HandleFunc("DELETE /v1/cache", s.handleCacheClear)
	s.mux.HandleFunc("GET /v1/usage", s.handleUsage)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = s.mux
	if opts.Limiter != nil {
		h = limiter.Middleware(limiter.Options{
			Store:     opts.Limiter,
			Stats:     opts.Stats,
			KeyHeader: opts.KeyHeader,
			Logger:    s.logger,
			Reject: func(w http.ResponseWriter, _ *http.Request, _ time.Duration) {
				writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			},
		})(h)
	}
	h = observability.MetricsMiddleware(h)
	h = observability.LoggingMiddleware(s.logger)(h)
	s.handler = requestID(h)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.opts.Limiter != nil {
		s.opts.Limiter.StartJanitor(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sqlpilot listening", "addr", s.opts.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(history.WithRequestID(r.Context(), id)))
	})
}

// writeError maps err onto a status code and error type.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var be *backend.Error
	switch {
	case errors.Is(err, prompt.ErrUnsupportedDialect), errors.Is(err, generator.ErrEmptyInput):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, optimizer.ErrUnsafeStatement):
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.Is(err, budget.ErrBudgetExceeded):
		writeJSONError(w, http.StatusTooManyRequests, "budget_exceeded", err.Error())
	case errors.As(err, &be):
		s.logger.WarnContext(r.Context(), "backend failure", "provider", be.Provider, "status", be.StatusCode, "error", be.Err)
		writeJSONError(w, http.StatusBadGateway, "backend_error", err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeJSONError(w http.ResponseWriter, code int, typ, message string) {
	writeJSON(w, code, errorBody{Error: errorDetail{Message: message, Type: typ, Code: code}})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

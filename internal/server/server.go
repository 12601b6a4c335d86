// Package server provides the HTTP API for generating and rendering math animations.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/mathmotion/internal/db"
	"github.com/jonathan/mathmotion/internal/logger"
	"github.com/jonathan/mathmotion/internal/pipeline"
	"github.com/jonathan/mathmotion/internal/render"
	"github.com/jonathan/mathmotion/internal/server/middleware"
	"github.com/jonathan/mathmotion/internal/server/ratelimit"
	"github.com/jonathan/mathmotion/internal/types"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Runner executes pipeline operations.
type Runner interface {
	Generate(ctx context.Context, req types.GenerationRequest) (*pipeline.GenerateResult, error)
	Render(ctx context.Context, in pipeline.RenderInput) (*pipeline.Result, error)
}

// Store reads video records.
type Store interface {
	GetVideo(ctx context.Context, id string) (*types.VideoRecord, error)
	ListVideos(ctx context.Context, filter db.ListFilter) ([]types.VideoRecord, error)
	Ping(ctx context.Context) error
}

// ToolChecker reports whether the render tools are usable.
type ToolChecker interface {
	Check(ctx context.Context) []render.CheckResult
}

// Config holds server configuration
type Config struct {
	Port int
	// WriteTimeout must exceed the render timeout so /render can answer.
	WriteTimeout    time.Duration
	SessionRequired bool
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Pipeline    Runner
	Store       Store
	Tools       ToolChecker
	Sessions    middleware.TokenVerifier
	RateLimiter *ratelimit.Limiter
	Logger      *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	pipeline    Runner
	store       Store
	tools       ToolChecker
	rateLimiter *ratelimit.Limiter
	log         *slog.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 300 * time.Second
	}

	s := &Server{
		pipeline:    deps.Pipeline,
		store:       deps.Store,
		tools:       deps.Tools,
		rateLimiter: deps.RateLimiter,
		log:         deps.Logger,
	}

	session := middleware.Session(deps.Sessions, cfg.SessionRequired)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /render", s.handleRender)
	mux.HandleFunc("POST /render/stream", s.handleRenderStream)
	mux.Handle("GET /video/{id}", session(http.HandlerFunc(s.handleGetVideo)))
	mux.Handle("GET /video/{id}/status", session(http.HandlerFunc(s.handleVideoStatus)))
	mux.Handle("GET /videos", session(http.HandlerFunc(s.handleListVideos)))
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = s.withRequestID(s.withRateLimit(s.withLogging(s.withCORS(mux))))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.log.Info("server stopped")
	return nil
}

// withRequestID attaches a request id to the context and response.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request once it finishes.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.FromContext(r.Context(), s.log).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLog is the request's logger, tagged with the session subject on session-checked routes.
func (s *Server) requestLog(r *http.Request) *slog.Logger {
	log := logger.FromContext(r.Context(), s.log)
	if sub, ok := middleware.SubjectFromContext(r.Context()); ok && sub != "" {
		log = log.With("subject", sub)
	}
	return log
}

// statusRecorder captures the response status and keeps streaming working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("error encoding JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID uses the peer IP; forwarded headers are not trusted.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"success": false,
		"error":   "Rate limit exceeded. Please try again later.",
		"limit":   info.Limit,
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	}

	logger.FromContext(r.Context(), s.log).Warn("rate limit exceeded",
		"client", extractClientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

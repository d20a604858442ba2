// Package web serves a dashboard over HTTP: the rendered report and a small
// JSON API mirroring the MCP tools.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/report"
	"operator-dashboard/src/store"
)

const (
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 30 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	RequestTimeout = 30 * time.Second

	// RequestsPerMinute is the per client rate limit.
	RequestsPerMinute = 120
)

// Server serves one dashboard store. The store is read on every request.
type Server struct {
	store     store.Store
	operator  operator.Config
	codec     contracts.Codec
	logger    logger.Logger
	rateLimit int
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit sets the per client requests per minute. Zero or less
// disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimit = perMinute }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server over st.
func NewServer(st store.Store, op operator.Config, opts ...Option) *Server {
	s := &Server{
		store:     st,
		operator:  op,
		codec:     contracts.NewCodec(op),
		logger:    logger.NewSilentLogger(),
		rateLimit: RequestsPerMinute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router creates and configures the HTTP router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				s.logger.Debug("[Web] %s %s %d %dms", r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds())
			}()
			next.ServeHTTP(ww, r)
		})
	})

	if s.rateLimit > 0 {
		r.Use(NewRateLimitMiddleware(s.rateLimit, s.logger))
	}

	r.Get("/", s.HandleReport)
	r.Get("/health", s.HandleHealth)
	r.Route("/api/versions", func(r chi.Router) {
		r.Get("/", s.HandleListVersions)
		r.Get("/{bucket}", s.HandleVersionHistory)
		r.Get("/{bucket}/matrix", s.HandleReleaseMatrix)
	})

	return r
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[Web] Serving %s dashboard on %s", s.operator.Label(), addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReport renders the HTML report.
func (s *Server) HandleReport(w http.ResponseWriter, r *http.Request) {
	d, ok := s.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, d, s.operator, s.now()); err != nil {
		s.logger.Error("[Web] %v", err)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// HandleListVersions returns one summary per platform version.
func (s *Server) HandleListVersions(w http.ResponseWriter, r *http.Request) {
	d, ok := s.load(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"operator": s.operator.Name,
		"versions": report.Summarize(d, s.operator, s.now()),
	})
}

// HandleVersionHistory returns the persisted history of one version.
func (s *Server) HandleVersionHistory(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	data, err := s.codec.MarshalHistory(h)
	if err != nil {
		s.logger.Error("[Web] Failed to encode history: %v", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to encode history"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// HandleReleaseMatrix returns the release matrix of one version.
func (s *Server) HandleReleaseMatrix(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"operator": s.operator.Name,
		"bucket":   chi.URLParam(r, "bucket"),
		"rows":     report.Matrix(h),
	})
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (contracts.Dashboard, bool) {
	d, err := s.store.Load(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "dashboard not found"})
		return nil, false
	}
	if err != nil {
		s.logger.Error("[Web] Failed to load dashboard: %v", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load dashboard"})
		return nil, false
	}
	return d, true
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (contracts.VersionHistory, bool) {
	d, ok := s.load(w, r)
	if !ok {
		return contracts.VersionHistory{}, false
	}
	bucket := chi.URLParam(r, "bucket")
	h, found := d[bucket]
	if !found {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "version not found: " + bucket})
		return contracts.VersionHistory{}, false
	}
	return h, true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("[Web] Failed to write response: %v", err)
	}
}

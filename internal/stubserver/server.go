// Package stubserver is a local REST backend whose surface is exactly the
// dispatch route table. It exists for development and integration testing:
// the dispatcher can run in HTTP mode against it, or in native mode against
// the Invoker it exposes, with both transports sharing one fixture set.
package stubserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/uabidotfun/antigravity-manager/internal/invoke"
	"github.com/uabidotfun/antigravity-manager/internal/log"
)

// Config holds stub server configuration.
type Config struct {
	Listen string
	// APIKey guards the API when non-empty. Both acceptors take it: the
	// Authorization bearer header and X-Api-Key.
	APIKey string
}

// Server is the stub HTTP backend.
type Server struct {
	config    Config
	fixtures  *Fixtures
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a stub server over the given fixtures.
func New(config Config, fixtures *Fixtures) *Server {
	if fixtures == nil {
		fixtures = NewFixtures()
	}
	return &Server{
		config:    config,
		fixtures:  fixtures,
		logger:    log.WithComponent("stubserver"),
		startedAt: time.Now(),
	}
}

// Fixtures returns the backing dataset.
func (s *Server) Fixtures() *Fixtures {
	return s.fixtures
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	router, err := s.Routes()
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("stub backend starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("stub backend shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Routes builds the router from the dispatch route table so the stub can
// never drift from the surface the dispatcher expects. A table entry
// without a handler is a programming error surfaced at startup.
func (s *Server) Routes() (*chi.Mux, error) {
	handlers := s.handlerTable()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	var missing []string
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		for command, rt := range invoke.Routes() {
			h, ok := handlers[command]
			if !ok {
				missing = append(missing, command)
				continue
			}
			r.Method(rt.Method, chiPattern(rt.Template), h)
		}
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("route table entries without stub handlers: %s",
			strings.Join(missing, ", "))
	}

	return r, nil
}

// chiPattern converts a ":name" route template into chi's "{name}" form.
func chiPattern(template string) string {
	parts := strings.Split(template, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"accounts":       len(s.fixtures.ListAccounts()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"reverseDesignAi/internal/audit"
	"reverseDesignAi/internal/design"
	"reverseDesignAi/internal/logging"
	"reverseDesignAi/internal/workspace"
)

// Handlers groups the route handlers the server mounts.
type Handlers struct {
	Design    design.Handler
	Workspace workspace.Handler
	Audit     audit.Handler
	Metrics   http.Handler
}

// NewRouter builds the chi router with middleware and every route.
func NewRouter(logger *zap.Logger, h Handlers) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if h.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/reverse-design", h.Design.Routes)
		r.Route("/sessions", h.Workspace.Routes)
		r.Get("/audit", h.Audit.Recent)
	})
	return router
}

// New constructs the HTTP server around the router.
func New(port string, logger *zap.Logger, h Handlers) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(logger, h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// No write deadline: event streams stay open and a multi-segment
		// generation is bounded by the LLM client timeout instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server ready", zap.String("addr", srv.Addr))
	return srv
}

// Run listens on srv.Addr and serves until ctx is done, see Serve.
func Run(ctx context.Context, srv *http.Server, grace time.Duration, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, srv, ln, grace, logger)
}

// Serve serves on ln until ctx is done, then shuts down gracefully and
// returns only after in-flight requests finish or grace expires.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration, logger *zap.Logger) error {
	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			logger.Error("server shutdown error", zap.Error(err))
			_ = srv.Close()
		}
		drained <- err
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	// Serve returns as soon as Shutdown starts; wait for handlers to drain.
	return <-drained
}

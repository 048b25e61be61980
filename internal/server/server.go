package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/config"
	"github.com/streamrand/streamrand/internal/entropy"
	apperrors "github.com/streamrand/streamrand/internal/errors"
	"github.com/streamrand/streamrand/internal/observability"
	"github.com/streamrand/streamrand/internal/server/handlers"
	servermw "github.com/streamrand/streamrand/internal/server/middleware"
)

// Dependencies are the services the HTTP server routes to.
type Dependencies struct {
	Source  handlers.ByteSource
	Guard   servermw.Authorizer
	Sampler entropy.Sampler
	Health  *handlers.HealthManager

	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	deps   Dependencies
}

// New creates a new HTTP server instance
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}

	r.Use(servermw.RequestID)             // 1. Request ID (early for correlation)
	r.Use(servermw.RequestMetrics)        // 2. Metrics (measure everything)
	r.Use(servermw.Recovery(HandleError)) // 3. Panic recovery

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	if deps.Health == nil {
		deps.Health = handlers.NewHealthManager(handlers.Version())
	}

	s := &Server{
		router: r,
		cfg:    cfg,
		deps:   deps,
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(s.cfg.IdleTimeout, 120*time.Second),
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port),
		zap.String("addr", addr),
		zap.Bool("trust_proxy_headers", s.deps.TrustProxyHeaders))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured server port
func (s *Server) Port() int {
	return s.cfg.Port
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

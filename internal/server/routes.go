package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/appid"
	"github.com/streamrand/streamrand/internal/observability"
	"github.com/streamrand/streamrand/internal/server/handlers"
	servermw "github.com/streamrand/streamrand/internal/server/middleware"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := s.deps.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	if s.deps.Source != nil && s.deps.Guard != nil {
		random := &handlers.RandomHandler{
			Source:  s.deps.Source,
			Sampler: s.deps.Sampler,
		}
		s.router.Route("/random", func(r chi.Router) {
			r.Use(servermw.Access(s.deps.Guard, HandleError))
			r.Get("/unsigned", random.Unsigned)
			r.Get("/signed", random.Signed)
			r.Get("/boolean", random.Boolean)
			r.Get("/color", random.Color)
		})
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes POST /admin/signal when <PREFIX>ADMIN_TOKEN is set.
func (s *Server) registerAdminEndpoint() {
	envPrefix := appid.EnvPrefix(context.Background())

	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}

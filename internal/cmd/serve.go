package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/access"
	"github.com/streamrand/streamrand/internal/config"
	"github.com/streamrand/streamrand/internal/core/store"
	"github.com/streamrand/streamrand/internal/entropy"
	errwrap "github.com/streamrand/streamrand/internal/errors"
	"github.com/streamrand/streamrand/internal/metrics"
	"github.com/streamrand/streamrand/internal/observability"
	"github.com/streamrand/streamrand/internal/server"
	"github.com/streamrand/streamrand/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return &handlers.DegradedError{Err: errwrap.NewInternalError("telemetry system not initialized")}
	}
	return nil
}

// catalogHealthChecker fails while no entropy source is loaded and reports
// degraded while the current source repeats itself.
type catalogHealthChecker struct {
	catalog  entropy.SourceLoader
	rotation interface{ Snapshot() entropy.RotationState }
}

func (c catalogHealthChecker) CheckHealth(ctx context.Context) error {
	if _, err := c.catalog.Load(); err != nil {
		return err
	}
	if c.rotation == nil {
		return nil
	}
	if state := c.rotation.Snapshot(); state.Stale {
		return &handlers.DegradedError{Err: fmt.Errorf("entropy source %d is repeating samples", state.Index)}
	}
	return nil
}

// limiterStack is the anonymous limiter plus whatever it needs to run.
type limiterStack struct {
	limiter access.Limiter
	sweeper func(ctx context.Context)
	health  handlers.HealthChecker
	close   func() error
}

// buildLimiter wires the configured limiter backend.
func buildLimiter(cfg *config.Config, db *store.Store) (*limiterStack, error) {
	window := cfg.LimiterWindow()
	sweep := cfg.Access.Limiter.SweepInterval

	switch strings.ToLower(strings.TrimSpace(cfg.Access.Limiter.Backend)) {
	case "", config.LimiterMemory:
		limiter := access.NewMemoryLimiter(window)
		return &limiterStack{
			limiter: limiter,
			sweeper: func(ctx context.Context) { limiter.RunSweeper(ctx, sweep) },
		}, nil

	case config.LimiterStore:
		limiter := &access.StoreLimiter{Store: db, Window: window}
		return &limiterStack{
			limiter: limiter,
			sweeper: func(ctx context.Context) { limiter.RunSweeper(ctx, sweep) },
		}, nil

	case config.LimiterRedis:
		opts, err := redis.ParseURL(cfg.Access.Limiter.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		return &limiterStack{
			limiter: access.NewRedisLimiter(client, cfg.Access.Limiter.Redis.KeyPrefix, window),
			health: handlers.HealthCheckerFunc(func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return &handlers.DegradedError{Err: err}
				}
				return nil
			}),
			close: client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported limiter backend: %s", cfg.Access.Limiter.Backend)
	}
}

// newFetcher applies the configured limits to an entropy fetcher.
func newFetcher(cfg config.EntropyConfig) *entropy.Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &entropy.Fetcher{
		Client:           &http.Client{Timeout: timeout},
		MaxManifestBytes: cfg.MaxManifestBytes,
		MaxSegmentBytes:  cfg.MaxSegmentBytes,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Requests without an API key are limited to one per client IP per window
(30s by default). Keys are checked against the store using the configured
pepper (access.key_pepper / STREAMRAND_ACCESS_KEY_PEPPER).

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload the config file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig(ctx)

		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		observability.InitServerLogger(identity.BinaryName, cfg.Logging, namespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		hasher, err := access.NewTokenHasher(cfg.Access.KeyPepper)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "access.key_pepper must be set")
		}

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "failed to open store")
		}

		limiters, err := buildLimiter(cfg, db)
		if err != nil {
			_ = db.Close()
			return errwrap.WrapConfigInvalid(ctx, err, "limiter initialization failed")
		}

		catalog := entropy.NewCatalog(cfg.Entropy.Sources, logger)
		loaded, err := catalog.Load()
		if err != nil {
			logger.Warn("No entropy sources loaded; /random will return 503",
				zap.Strings("paths", catalog.Paths()),
				zap.Error(err))
		}
		metrics.SetCatalogSources(len(loaded))

		rotation := entropy.NewRotation(catalog, newFetcher(cfg.Entropy),
			entropy.WithLogger(logger),
			entropy.WithObserver(metrics.SourceObserver{}),
		)

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("store", db)
		hm.RegisterChecker("catalog", catalogHealthChecker{catalog: catalog, rotation: rotation})
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		if limiters.health != nil {
			hm.RegisterChecker("limiter", limiters.health)
		}

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
		handlers.SetAppIdentity(identity)

		srv := server.New(cfg.Server, server.Dependencies{
			Source: rotation,
			Guard: &access.Guard{
				Store:     db,
				Hasher:    hasher,
				Limiter:   limiters.limiter,
				KeyHeader: cfg.Access.APIKeyHeader,
			},
			Health:            hm,
			TrustProxyHeaders: cfg.Access.TrustProxyHeaders,
		})

		logger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.Int("sources", len(loaded)),
			zap.String("limiter", cfg.Access.Limiter.Backend),
			zap.Duration("limiter_window", cfg.LimiterWindow()),
			zap.Int("metrics_port", cfg.Metrics.Port))

		bgCtx, stopBackground := context.WithCancel(context.Background())
		if limiters.sweeper != nil {
			go limiters.sweeper(bgCtx)
		}
		started := time.Now()
		metrics.SetServerStartTime(started)
		go reportUptime(bgCtx, started)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// LIFO: the last registered handler runs first.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			stopBackground()
			if err := observability.StopMetrics(); err != nil {
				logger.Warn("Metrics exporter stop failed", zap.Error(err))
			}
			if limiters.close != nil {
				_ = limiters.close()
			}
			if err := db.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "store close failed")
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			reloaded, err := config.Load(ctx)
			if err != nil {
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}
			// Listener, limiter and source settings take effect on restart.
			logger.Info("Configuration reloaded",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Int("sources", len(reloaded.Entropy.Sources)))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}

		return nil
	},
}

func reportUptime(ctx context.Context, started time.Time) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetServerUptime(time.Since(started))
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("limiter", config.LimiterMemory, "anonymous limiter backend: memory, redis, store")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("access.limiter.backend", serveCmd.Flags().Lookup("limiter"))
}

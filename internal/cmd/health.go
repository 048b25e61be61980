package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/access"
	"github.com/streamrand/streamrand/internal/entropy"
	errwrap "github.com/streamrand/streamrand/internal/errors"
	"github.com/streamrand/streamrand/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Check that the server could start with the current configuration:
the key pepper is set, the store opens and migrates, and at least one
entropy source loads. No source is fetched; use "sources check" for that.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing",
				errwrap.NewConfigInvalidError("Version information missing"))
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg := loadConfig(ctx)
		logger.Info("✅ Configuration valid", zap.String("limiter", cfg.Access.Limiter.Backend))

		if _, err := access.NewTokenHasher(cfg.Access.KeyPepper); err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "access.key_pepper is not set",
				errwrap.WrapConfigInvalid(ctx, err, "access.key_pepper is not set"))
		}
		logger.Info("✅ Key pepper set")

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Store unavailable",
				errwrap.WrapDatabaseError(ctx, err, "store unavailable"))
		}
		_ = db.Close()
		logger.Info("✅ Store reachable")

		sources, err := entropy.NewCatalog(cfg.Entropy.Sources, logger).Load()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "No entropy sources loaded",
				errwrap.WrapConfigInvalid(ctx, err, "no entropy sources loaded"))
		}
		logger.Info("✅ Entropy sources loaded", zap.Int("count", len(sources)))

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

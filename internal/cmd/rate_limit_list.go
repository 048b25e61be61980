package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamrand/streamrand/internal/core/store"
	"github.com/streamrand/streamrand/internal/output"
)

var (
	rateLimitListClient string
	rateLimitListPrefix string
	rateLimitListActive bool
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored limiter windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig(ctx)

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.RateLimitQuery{
			Client: strings.TrimSpace(rateLimitListClient),
			Prefix: strings.TrimSpace(rateLimitListPrefix),
		}
		if query.Client == "" && query.Prefix == "" {
			query.All = true
		}
		now := time.Now()
		if rateLimitListActive {
			query.ActiveAt = now
		}

		windows, err := db.ListRateLimits(ctx, query)
		if err != nil {
			return err
		}

		return writeReport(cmd, "rate-limit.list", func(f output.Formatter) (string, error) {
			return f.FormatRateLimits(windows, now)
		})
	},
}

func init() {
	addOutputFlags(rateLimitListCmd)
	rateLimitListCmd.Flags().StringVar(&rateLimitListClient, "client", "", "List a single client IP")
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List clients with matching prefix (e.g. 10.0.)")
	rateLimitListCmd.Flags().BoolVar(&rateLimitListActive, "active", false, "Only show windows that are still open")
}

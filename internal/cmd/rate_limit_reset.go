package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streamrand/streamrand/internal/core/store"
	"github.com/streamrand/streamrand/internal/output"
)

var (
	rateLimitResetAll    bool
	rateLimitResetClient string
	rateLimitResetPrefix string
	rateLimitResetYes    bool
	rateLimitResetDryRun bool
)

type rateLimitResetResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear stored limiter windows so clients may request again",
	Example: `  streamrand rate-limit reset --client 203.0.113.7
  streamrand rate-limit reset --prefix 10.0. --dry-run
  streamrand rate-limit reset --all --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		query := store.RateLimitQuery{
			All:    rateLimitResetAll,
			Client: strings.TrimSpace(rateLimitResetClient),
			Prefix: strings.TrimSpace(rateLimitResetPrefix),
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !rateLimitResetYes && !rateLimitResetDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		target, err := resolveReportTarget(cmd, "rate-limit.reset")
		if err != nil {
			return err
		}

		db, err := openStore(ctx, loadConfig(ctx).Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		result := rateLimitResetResult{DryRun: rateLimitResetDryRun}
		if result.Matched, err = db.CountRateLimits(ctx, query); err != nil {
			return err
		}
		if !result.DryRun {
			if result.Deleted, err = db.ResetRateLimits(ctx, query); err != nil {
				return err
			}
		}

		w, closeFn, err := target.open()
		if err != nil {
			return err
		}
		defer func() { _ = closeFn() }()

		return writeRateLimitResetResult(w, target.format, result)
	},
}

func writeRateLimitResetResult(w io.Writer, format output.Format, result rateLimitResetResult) error {
	if format == output.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var err error
	if result.DryRun {
		_, err = fmt.Fprintf(w, "Would clear %d limiter window(s)\n", result.Matched)
	} else {
		_, err = fmt.Fprintf(w, "Cleared %d/%d limiter window(s)\n", result.Deleted, result.Matched)
	}
	return err
}

func init() {
	addOutputFlags(rateLimitResetCmd)
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Clear every window")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetClient, "client", "", "Clear a single client IP (exact match)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Clear clients with matching prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm clearing every window")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Count matching windows without deleting")
}

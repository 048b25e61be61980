package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/entropy"
	"github.com/streamrand/streamrand/internal/observability"
	"github.com/streamrand/streamrand/internal/output"
)

var sourcesCheckParallel int

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Work with entropy source description files",
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch one segment from every configured source",
	Long: `Load the source description files (--source or entropy.sources) and fetch
one segment from each source, reporting its size or the error. Exits non-zero
when no source returns usable bytes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig(ctx)

		catalog := entropy.NewCatalog(cfg.Entropy.Sources, observability.CLILogger)
		probes, err := entropy.ProbeSources(ctx, catalog, newFetcher(cfg.Entropy), sourcesCheckParallel)
		if err != nil {
			return fmt.Errorf("load sources from %v: %w", catalog.Paths(), err)
		}

		if err := writeReport(cmd, "sources.check", func(f output.Formatter) (string, error) {
			return f.FormatProbes(probes)
		}); err != nil {
			return err
		}

		healthy := 0
		for _, p := range probes {
			if p.OK() {
				healthy++
			} else {
				observability.CLILogger.Debug("Source probe failed",
					zap.Int("index", p.Index),
					zap.String("source", p.URL),
					zap.String("error", p.Error))
			}
		}
		if healthy == 0 {
			return fmt.Errorf("none of %d source(s) returned usable bytes", len(probes))
		}
		return nil
	},
}

func init() {
	sourcesCheckCmd.Flags().IntVar(&sourcesCheckParallel, "parallel", 4, "maximum concurrent probes")
	addOutputFlags(sourcesCheckCmd)

	sourcesCmd.AddCommand(sourcesCheckCmd)
	rootCmd.AddCommand(sourcesCmd)
}

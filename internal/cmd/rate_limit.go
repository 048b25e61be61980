package cmd

import "github.com/spf13/cobra"

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect or clear anonymous limiter windows kept by the store backend",
	Long: `Inspect or clear anonymous limiter windows.

Only the "store" limiter backend persists windows; the memory backend lives
inside the serving process and redis windows expire through key TTLs.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}

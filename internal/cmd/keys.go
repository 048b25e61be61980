package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/access"
	"github.com/streamrand/streamrand/internal/core"
	"github.com/streamrand/streamrand/internal/core/store"
	"github.com/streamrand/streamrand/internal/observability"
	"github.com/streamrand/streamrand/internal/output"
)

var (
	keysIssueUser    int64
	keysIssuePaid    float64
	keysIssueSession string
	keysListUser     int64
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Issue and list API keys",
}

var keysIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new API key (the token is printed once)",
	Long: `Issue a new API key for a user.

The 100-character token is printed to stdout exactly once. Only its keyed
digest is stored, so a lost token cannot be recovered; issue a new one.
--session records the payment session that paid for the key and refuses
to issue a second key for the same session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig(ctx)

		hasher, err := access.NewTokenHasher(cfg.Access.KeyPepper)
		if err != nil {
			return fmt.Errorf("access.key_pepper must be set: %w", err)
		}

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		key := &core.APIKey{
			UserID:            keysIssueUser,
			PaidAmount:        keysIssuePaid,
			ExternalSessionID: keysIssueSession,
		}
		token, err := access.IssueKey(ctx, db, hasher, key)
		if errors.Is(err, store.ErrDuplicateSession) {
			return fmt.Errorf("%w (no new key issued)", err)
		}
		if err != nil {
			return err
		}

		observability.CLILogger.Info("Issued API key",
			zap.String("id", key.ID),
			zap.Int64("user_id", key.UserID),
			zap.Float64("paid_amount", key.PaidAmount))

		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issued API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig(ctx)

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		keys, err := db.ListKeys(ctx, keysListUser)
		if err != nil {
			return err
		}

		name := "keys"
		if keysListUser > 0 {
			name = fmt.Sprintf("keys.user-%d", keysListUser)
		}
		return writeReport(cmd, name, func(f output.Formatter) (string, error) {
			return f.FormatKeys(keys)
		})
	},
}

func init() {
	keysIssueCmd.Flags().Int64Var(&keysIssueUser, "user", 0, "owning user id (required)")
	keysIssueCmd.Flags().Float64Var(&keysIssuePaid, "paid", 0, "amount paid for the key")
	keysIssueCmd.Flags().StringVar(&keysIssueSession, "session", "", "external payment session id")
	_ = keysIssueCmd.MarkFlagRequired("user")

	keysListCmd.Flags().Int64Var(&keysListUser, "user", 0, "only keys owned by this user id")
	addOutputFlags(keysListCmd)

	keysCmd.AddCommand(keysIssueCmd)
	keysCmd.AddCommand(keysListCmd)
	rootCmd.AddCommand(keysCmd)
}

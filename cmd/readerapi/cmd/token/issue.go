package token

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd/cmdutil"
	"github.com/Shonkurieta/ebookreader/internal/config"
)

var userIDFlag int64

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a token for an existing account",
	Long:  `Signs a token with the configured key, embedding the account's current nickname and role.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if userIDFlag <= 0 {
			return fmt.Errorf("--user-id flag is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		bundle, err := cmdutil.NewIAMServiceBundle(cfg, cmdutil.NewLogger(cfg))
		if err != nil {
			return err
		}
		defer bundle.Close()

		res, err := bundle.Service.IssueToken(context.Background(), userIDFlag)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s (%s)\n", res.ExpiresAt.Format(time.RFC3339), res.User.Role)
		return nil
	},
}

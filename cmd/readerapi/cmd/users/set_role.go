package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd/cmdutil"
	"github.com/Shonkurieta/ebookreader/internal/config"
)

var setRoleCmd = &cobra.Command{
	Use:   "set-role",
	Short: "Change an account's role",
	Long: `Changes the stored role of an account. Outstanding tokens keep their
embedded role; servers with role refresh enabled apply the new role once
their cached record expires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if idFlag <= 0 {
			return fmt.Errorf("--id flag is required")
		}
		if newRoleFlag == "" {
			return fmt.Errorf("--role flag is required")
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

		user, err := bundle.Service.SetRole(context.Background(), idFlag, newRoleFlag)
		if err != nil {
			return fmt.Errorf("failed to set role: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "User %d (%s) now has role %s\n", user.ID, user.Nickname, user.Role)
		return nil
	},
}

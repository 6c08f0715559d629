package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd/cmdutil"
	"github.com/Shonkurieta/ebookreader/internal/auth"
	"github.com/Shonkurieta/ebookreader/internal/config"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Verify a token and print its claims",
	Long:  `Verifies the signature with the configured key and prints the claims. Does not contact the database.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		codec, err := cmdutil.NewCodec(cfg)
		if err != nil {
			return err
		}

		parsed, err := codec.Parse(args[0])
		if err != nil {
			return err
		}

		status := "usable"
		if err := auth.NewValidator().Check(parsed); err != nil {
			status = err.Error()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Token ID:     %s\n", parsed.ID)
		fmt.Fprintf(out, "Subject:      %s\n", parsed.Subject)
		fmt.Fprintf(out, "Principal ID: %d\n", parsed.PrincipalID)
		fmt.Fprintf(out, "Roles:        %s\n", strings.Join(parsed.Roles, ", "))
		fmt.Fprintf(out, "Issued at:    %s\n", parsed.IssuedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Expires at:   %s\n", parsed.ExpiresAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Status:       %s\n", status)
		return nil
	},
}

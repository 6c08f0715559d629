package token

import "github.com/spf13/cobra"

// TokenCmd groups offline token utilities.
var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue and inspect access tokens",
}

func init() {
	issueCmd.Flags().Int64Var(&userIDFlag, "user-id", 0, "Numeric id of the account to issue for")

	TokenCmd.AddCommand(issueCmd)
	TokenCmd.AddCommand(inspectCmd)
}

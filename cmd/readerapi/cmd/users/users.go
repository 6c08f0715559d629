package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage reader accounts",
	Long:  `Commands for managing accounts directly against the credential store, including bootstrapping the first administrator.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&usernameFlag, "username", "", "Nickname of the user")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().StringVar(&roleFlag, "role", "USER", "Role of the user (USER or ADMIN)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	setRoleCmd.Flags().Int64Var(&idFlag, "id", 0, "Numeric id of the user")
	setRoleCmd.Flags().StringVar(&newRoleFlag, "role", "", "New role (USER or ADMIN)")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(setRoleCmd)
	UsersCmd.AddCommand(listCmd)
}

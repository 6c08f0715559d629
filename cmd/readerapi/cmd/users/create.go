package users

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd/cmdutil"
	"github.com/Shonkurieta/ebookreader/internal/config"
	"github.com/Shonkurieta/ebookreader/internal/services/iam"
)

var (
	emailFlag    string
	usernameFlag string
	passwordFlag string
	roleFlag     string
	newRoleFlag  string
	stdinFlag    bool
	idFlag       int64
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long:  `Creates an account with a bcrypt-hashed password. Use --role ADMIN to bootstrap an administrator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if usernameFlag == "" {
			return fmt.Errorf("--username flag is required")
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
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

		user, err := bundle.Service.CreateUser(context.Background(), iam.CreateUserInput{
			Nickname: usernameFlag,
			Email:    emailFlag,
			Password: password,
			Role:     roleFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "User created successfully!")
		fmt.Fprintln(out, "----------------------------------------")
		fmt.Fprintf(out, "User ID: %d\n", user.ID)
		fmt.Fprintf(out, "Username: %s\n", user.Nickname)
		fmt.Fprintf(out, "Email: %s\n", user.Email)
		fmt.Fprintf(out, "Role: %s\n", user.Role)
		fmt.Fprintln(out, "----------------------------------------")
		return nil
	},
}

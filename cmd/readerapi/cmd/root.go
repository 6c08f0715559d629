package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd/token"
	"github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd/users"
	"github.com/Shonkurieta/ebookreader/internal/config"
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "readerapi",
	Short: "E-book reader API server",
	Long: `readerapi serves the e-book reader HTTP API: token issuance, the
authentication gate and the route-level access policy in front of the
user, administration and catalogue endpoints.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Database connection URL (env: READER_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: READER_SERVER_ADDR)")
	flags.String("metrics-addr", "", "Prometheus listener address (env: READER_METRICS_ADDR)")
	flags.Bool("debug", false, "Enable debug logging (env: READER_DEBUG)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(token.TokenCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

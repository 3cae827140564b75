package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/plannr/internal/config"
	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/store"
)

// rootCmd represents the base command for the plannr application
var rootCmd = &cobra.Command{
	Use:   "plannr",
	Short: "Turns course syllabi into calendar entries",
	Long: `plannr keeps a student's Google sign-in and pushes course deliverables
(homework, exams, quizzes, labs) into their Google Calendar as all-day
entries, or exports them as an .ics or .csv file.

Configuration is read from an optional YAML file (--config), then from
environment variables, then from flags that were set explicitly.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is the --config flag shared by all commands.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "plannr version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file. Can also use PLANNR_CONFIG env var.")
	flags.String("log-level", "info", "Log level: debug, info, warn or error. Can also use PLANNR_LOG_LEVEL env var.")
	flags.String("log-format", logging.FormatText, "Log format: text or json. Can also use PLANNR_LOG_FORMAT env var.")
	flags.String("db-driver", store.DriverSQLite, "Database driver: sqlite or pgx. Can also use PLANNR_DB_DRIVER env var.")
	flags.String("db-dsn", config.DefaultDatabaseDSN, "Database connection string. Can also use PLANNR_DB_DSN env var.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of plannr",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "plannr version %s\n", version)
		},
	}
}

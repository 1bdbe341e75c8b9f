// Package cli defines the cobra command tree for safe-estate.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/safe-estate/internal/config"
	"github.com/evcraddock/safe-estate/internal/db"
)

var (
	flagFormat string
	flagDB     string
	flagConfig string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "estate",
		Short:         "Run and administer the Safe Estate listing service",
		Long:          "Safe Estate lists properties from KYC-verified sellers and lets buyers search them and request visits. Run the API server or administer users and listing images from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.safe-estate/estate.db)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: ~/.safe-estate/config.yaml)")

	root.AddCommand(
		newServeCmd(),
		newCreateAdminCmd(),
		newUsersCmd(),
		newImagesCmd(),
		newCleanupCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database named by cfg.
func openDB(cfg *config.Config) (*sql.DB, error) {
	return db.Open(cfg.DBPath)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

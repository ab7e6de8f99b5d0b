package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/internal/iostore"
	"github.com/huangsam/gitnote/internal/outwriter"
	"github.com/huangsam/gitnote/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads minimal configuration needed for archive run operations.
// This is used by commands that need run history access without full shared setup.
func runsSetup() error {
	backend, connStr, err := storeSettings("archive-backend", "archive-db-connect")
	if err != nil {
		return err
	}

	// No entry store for run commands
	if err := iostore.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize archive store: %w", err)
	}

	cfg.ArchiveBackend = backend
	cfg.ArchiveDBConnect = connStr
	return outputSetup()
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// outputSetup fills the output settings of cfg for commands that skip sharedSetup.
func outputSetup() error {
	cfg.Output = schema.OutputMode(viper.GetString("output"))
	if !schema.ValidOutputModes[cfg.Output] {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}
	colors, err := contract.ParseBoolString(viper.GetString("color"))
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors
	cfg.Width = viper.GetInt("width")
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeSettings("archive-backend", "archive-db-connect")
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetArchiveDBFilePath()
	}

	cfg.ArchiveBackend = backend
	cfg.ArchiveDBConnect = connStr
	return nil
}

// runsCmd focused on archive run history.
//
// Note: Runs subcommands use minimal initialization (runsSetup) instead of
// the full sharedSetup. This avoids repository validation for simple store operations.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the history of archive runs",
	Long: `Manage the record of every compaction run made by 'archive' and 'daemon'.

Each run stores:
- Label, boundary and the published reference
- Start and end time, duration and status
- Commits created and entries folded, or the error message

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  list    - List recorded runs, newest first
  status  - Show run history statistics
  export  - Export runs to Parquet
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Show the latest runs
  gitnote runs list

  # Export for reporting
  gitnote runs export --output-file runs`,
}

// runsListCmd lists recorded runs.
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded archive runs, newest first",
	Long: `Print every recorded archive run with its outcome.

Examples:
  # Table output
  gitnote runs list

  # Machine-readable output
  gitnote runs list --output json`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runs, err := iostore.Manager.GetArchiveStore().GetAllRuns()
		if err != nil {
			contract.LogFatal("Failed to list archive runs", err)
		}
		if err := outwriter.NewOutWriter().WriteRuns(runs, cfg); err != nil {
			contract.LogFatal("Failed to write archive runs", err)
		}
	},
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all archive run history",
	Long: `Delete all recorded archive runs.

Archive branches and quarter tags in the repository are left untouched.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  gitnote runs export --output-file backup
  gitnote runs clear`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the file before removing it
		iostore.CloseStores()
		dbPath := cfg.ArchiveDBConnect
		if dbPath == "" {
			dbPath = contract.GetArchiveDBFilePath()
		}
		if err := iostore.ClearArchive(cfg.ArchiveBackend, dbPath, cfg.ArchiveDBConnect); err != nil {
			contract.LogFatal("Failed to clear archive runs", err)
		}
		fmt.Println("Archive runs cleared successfully.")
	},
}

// runsStatusCmd shows run history status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display archive run statistics and connection details",
	Long: `Show detailed information about the archive run history.

Displays:
- Backend type and connection status
- Total and failed runs
- Last and oldest run
- Commits created and entries folded across all runs

Examples:
  # Check run history status
  gitnote runs status`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetArchiveStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get archive status", err)
		}
		iostore.PrintArchiveStatus(os.Stdout, status)
	},
}

// runsExportCmd exports the run history to Parquet.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archive runs to Parquet",
	Long: `Export the archive run history to <output-file>.archive_runs.parquet.

Requires: --output-file parameter

Examples:
  # Export all runs
  gitnote runs export --output-file runs

  # Query with DuckDB
  duckdb -c "SELECT status, count(*) FROM read_parquet('runs.archive_runs.parquet') GROUP BY 1"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ExecuteArchiveExport(os.Stdout, iostore.Manager.GetArchiveStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export archive runs", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the archive store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the archive run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  gitnote runs migrate

  # Migrate to specific version
  gitnote runs migrate --target-version 1

  # Rollback to initial state
  gitnote runs migrate --target-version 0`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iostore.MigrateArchive(cfg.ArchiveBackend, cfg.ArchiveDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

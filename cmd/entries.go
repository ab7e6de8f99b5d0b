package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/internal/iostore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// entriesSetup loads minimal configuration needed for entry store operations.
// This is used by commands that need entry access without full shared setup.
func entriesSetup() error {
	backend, connStr, err := storeSettings("entry-backend", "entry-db-connect")
	if err != nil {
		return err
	}

	// No archive tracking for entry commands
	if err := iostore.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize entry store: %w", err)
	}

	cfg.EntryBackend = backend
	cfg.EntryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// entriesSetupWrapper wraps entriesSetup to provide PreRunE for entries commands.
func entriesSetupWrapper(_ *cobra.Command, _ []string) error {
	return entriesSetup()
}

// entriesCmd focused on entry store management.
//
// Note: Entries subcommands use minimal initialization (entriesSetup) instead of
// the full sharedSetup. This avoids repository validation and complex config
// processing for simple store operations.
var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage the entry store filled by sync",
	Long: `Manage the store holding the latest content of every group and article.

The store is filled by 'gitnote sync' and keeps, per path:
- Groups: config path, raw config, title and description from .group.toml
- Articles: group, name, content and the time of the last change
- Sync state: the last commit applied per repository

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show entry store statistics and connection info
  clear  - Remove all stored entries and sync state
  export - Export groups and articles to Parquet

Examples:
  # Check entry store status
  gitnote entries status

  # Export for analysis in pandas/DuckDB
  gitnote entries export --output-file notes`,
}

// entriesClearCmd clears the entry store.
var entriesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored entries and sync state",
	Long: `Delete all groups, articles and sync state from the configured backend.

Use this when:
- Repository history was rewritten and the synced commit is gone
- The store may be stale or corrupted
- Starting a fresh sync from the first commit

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the entry tables

Examples:
  # Clear SQLite store (default)
  gitnote entries clear

  # Clear MySQL store (set connection string via env variable)
  GITNOTE_ENTRY_BACKEND=mysql GITNOTE_ENTRY_DB_CONNECT="..." gitnote entries clear`,
	PreRunE: entriesSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the file before removing it
		iostore.CloseStores()
		dbPath := cfg.EntryDBConnect
		if dbPath == "" {
			dbPath = contract.GetEntryDBFilePath()
		}
		if err := iostore.ClearEntries(cfg.EntryBackend, dbPath, cfg.EntryDBConnect); err != nil {
			contract.LogFatal("Failed to clear entries", err)
		}
		fmt.Println("Entries cleared successfully.")
	},
}

// entriesStatusCmd shows entry store status.
var entriesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display entry store statistics and connection details",
	Long: `Show detailed information about the entry store.

Displays:
- Backend type and connection status
- Number of groups and articles
- Time of the newest change and the last synced commit
- Database size

Examples:
  # Check entry store status
  gitnote entries status`,
	PreRunE: entriesSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetEntryStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get entry status", err)
		}
		iostore.PrintEntryStatus(os.Stdout, status)
	},
}

// entriesExportCmd exports the entry store to Parquet files.
var entriesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export groups and articles to Parquet",
	Long: `Export all stored groups and articles to Parquet format for use with analytics tools.

Writes two files next to --output-file:
- <output-file>.groups.parquet
- <output-file>.articles.parquet

Requires: --output-file parameter

Examples:
  # Export all data
  gitnote entries export --output-file notes

  # Query with DuckDB
  duckdb -c "SELECT group_path, count(*) FROM read_parquet('notes.articles.parquet') GROUP BY 1"`,
	PreRunE: entriesSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ExecuteEntryExport(os.Stdout, iostore.Manager.GetEntryStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export entries", err)
		}
	},
}

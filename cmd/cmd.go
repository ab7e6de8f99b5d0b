// Package cmd defines the command-line interface for gitnote.
package cmd

import (
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the entries subcommands to the parent entries command
	entriesCmd.AddCommand(entriesClearCmd)
	entriesCmd.AddCommand(entriesStatusCmd)
	entriesCmd.AddCommand(entriesExportCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("repo", ".", "Path to the notes repository (bare or working tree)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error or none")
	rootCmd.PersistentFlags().String("entry-backend", string(schema.SQLiteBackend), "Entry store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("entry-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("archive-backend", string(schema.SQLiteBackend), "Archive run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("archive-db-connect", "", "Database connection string for archive run tracking (a SQLite path must differ from entry-db-connect)")
	rootCmd.PersistentFlags().String("ref-prefix", contract.DefaultRefPrefix, "Reference prefix of published archive branches")
	rootCmd.PersistentFlags().String("bucket", string(schema.DayBucket), "Archive bucket size: hour or day or month")
	rootCmd.PersistentFlags().String("timezone", contract.DefaultTimezone, "IANA time zone used to cut buckets")
	rootCmd.PersistentFlags().String("author-name", contract.DefaultAuthorName, "Author name of archive commits and quarter tags")
	rootCmd.PersistentFlags().String("author-email", contract.DefaultAuthorEmail, "Author email of archive commits and quarter tags")
	rootCmd.PersistentFlags().String("tip-ref", contract.DefaultTipRef, "Revision whose first-parent chain is synced and archived")
	rootCmd.PersistentFlags().String("temp-dir", "", "Parent directory of compaction working areas (default: system temp dir)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of extractCmd to Viper
	extractCmd.Flags().Bool("snapshot", false, "Diff trees directly instead of replaying every commit")
	if err := viper.BindPFlags(extractCmd.Flags()); err != nil {
		contract.LogFatal("Error binding extract flags", err)
	}

	// Bind all flags of daemonCmd to Viper
	daemonCmd.Flags().String("interval", contract.DefaultInterval, "Time between two quarter checks (at least 1m)")
	daemonCmd.Flags().String("metrics-addr", contract.DefaultMetricsAddr, "Listen address of /metrics, /healthz and /readyz (empty disables)")
	if err := viper.BindPFlags(daemonCmd.Flags()); err != nil {
		contract.LogFatal("Error binding daemon flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}

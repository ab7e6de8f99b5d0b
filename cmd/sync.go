package cmd

import (
	"github.com/huangsam/gitnote/core"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/spf13/cobra"
)

// syncCmd applies new history to the entry store.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply new changes to the entry store.",
	Long: `Replay every commit since the last sync up to --tip-ref and apply the changes
to the entry store.

The store keeps the latest content of every group and article, keyed by path.
Removed paths are deleted. The tip is recorded per repository so the next run
only reads new commits.

When the recorded commit is no longer on the first-parent chain (for example
after a force push), the two trees are diffed instead.

Examples:
  # Sync the current repository into the default SQLite store
  gitnote sync

  # Sync a bare repository into PostgreSQL
  GITNOTE_ENTRY_DB_CONNECT="host=localhost dbname=notes" gitnote sync --repo /srv/notes.git --entry-backend postgresql`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSync(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run sync", err)
		}
	},
}

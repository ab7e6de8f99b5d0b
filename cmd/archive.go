package cmd

import (
	"github.com/huangsam/gitnote/core"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/spf13/cobra"
)

// archiveCmd compacts history into an archive branch.
var archiveCmd = &cobra.Command{
	Use:   "archive <boundary> <label>",
	Short: "Compact history up to a boundary into an archive branch.",
	Long: `Replay the history up to <boundary>, group the changes into time buckets and
write one commit per bucket onto a fresh linear chain.

The chain is published as <ref-prefix><label> in a single reference update.
When the run fails, the reference keeps its previous value. The source history
is never modified.

Each non-empty bucket becomes one commit whose tree holds the full content of
every tracked path as of that bucket. Bucket boundaries are cut in --timezone.

Examples:
  # Archive everything up to a quarter tag, one commit per day
  gitnote archive archive/2025-Q1 2025-Q1

  # Coarser buckets
  gitnote archive main 2025 --bucket month`,
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteArchive(rootCtx, cfg, storeManager, args[0], args[1]); err != nil {
			contract.LogFatal("Cannot run archive", err)
		}
	},
}

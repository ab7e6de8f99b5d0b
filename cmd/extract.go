package cmd

import (
	"github.com/huangsam/gitnote/core"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/spf13/cobra"
)

// extractCmd lists the entries between two revisions.
var extractCmd = &cobra.Command{
	Use:   "extract [from] <to>",
	Short: "List article and group config changes between revisions.",
	Long: `Diff the history of a notes repository and list every classified change.

Only two kinds of paths are tracked:
- Articles: files ending in .md or .markdown
- Group configs: files named exactly .group.toml

Every other path is ignored. Renames show up as a removal plus an addition.

With one revision, the commit is diffed against its first parent.
With two revisions, every commit on the first-parent chain after <from> up to <to>
is replayed in order, so each change keeps the time of the commit that made it.
--snapshot diffs the trees directly instead (against the empty tree for one revision).

Examples:
  # Changes made by the last commit
  gitnote extract HEAD

  # Everything that happened since a tag
  gitnote extract v1.0 main --output json

  # Full content of the current tree
  gitnote extract HEAD --snapshot`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		from, to := "", args[0]
		if len(args) == 2 {
			from, to = args[0], args[1]
		}
		if err := core.ExecuteExtract(rootCtx, cfg, from, to); err != nil {
			contract.LogFatal("Cannot run extract", err)
		}
	},
}

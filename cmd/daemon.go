package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/gitnote/core"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/spf13/cobra"
)

// daemonCmd archives every completed quarter in the background.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Archive every completed calendar quarter automatically.",
	Long: `Run until interrupted, checking once at startup and then every --interval.

For the most recently completed quarter, the daemon:
- Tags the last first-parent commit of --tip-ref before the quarter end as archive/<YYYY>-Q<N>
- Compacts the history up to that tag under <ref-prefix><YYYY>-Q<N>

A quarter whose archive branch already exists is skipped. A failed run is
retried at the next check.

Prometheus metrics plus /healthz and /readyz are served on --metrics-addr.

Examples:
  # Check daily and expose metrics on :9464
  gitnote daemon --repo /srv/notes.git

  # Check hourly without a metrics server
  gitnote daemon --interval 1h --metrics-addr ""`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := core.ExecuteDaemon(ctx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run daemon", err)
		}
	},
}

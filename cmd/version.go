package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// gitModule is the module path reported as the Git implementation.
const gitModule = "github.com/go-git/go-git/v5"

// gitLibraryVersion returns the go-git version linked into the binary.
func gitLibraryVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path == gitModule {
			return dep.Version
		}
	}
	return "unknown"
}

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of gitnote.",
	Long: `Display version information including build details.

Shows:
- Release version, commit hash and build timestamp
- Go runtime version and platform
- Version of the embedded Git implementation (no git binary is needed)

Include this output when reporting bugs.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("gitnote CLI\n")
		cmd.Printf("  Version:  %s\n", version)
		cmd.Printf("  Commit:   %s\n", commit)
		cmd.Printf("  Built:    %s\n", date)
		cmd.Printf("  Runtime:  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		cmd.Printf("  Git:      go-git %s\n", gitLibraryVersion())
	},
}

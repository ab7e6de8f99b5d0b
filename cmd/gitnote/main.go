// Command gitnote extracts, syncs and archives the history of a Git-backed notes repository.
package main

import (
	"github.com/huangsam/gitnote/cmd"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/internal/iostore"
)

func main() {
	cmd.SetStoreManager(iostore.Manager)

	err := cmd.Execute()

	// LogFatal exits without running defers
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iostore.CloseStores()

	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}

package schema

import (
	"fmt"
	"time"
)

// ArchivedInfo is the result of one compaction run.
type ArchivedInfo struct {
	RefName        string        `json:"ref_name"`
	Label          string        `json:"label"`
	Boundary       string        `json:"boundary"`
	TipCommit      string        `json:"tip_commit"` // empty when no commit was created
	CommitsCreated int           `json:"commits_created"`
	EntriesFolded  int           `json:"entries_folded"`
	Articles       int           `json:"articles"`
	Configs        int           `json:"configs"`
	Removals       int           `json:"removals"`
	Duration       time.Duration `json:"duration"`
	FinishedAt     time.Time     `json:"finished_at"`
}

// Published reports whether the run moved the archive reference.
func (ai ArchivedInfo) Published() bool {
	return ai.CommitsCreated > 0
}

// Summary renders a short multi-line report of the run.
func (ai ArchivedInfo) Summary() string {
	return fmt.Sprintf("[ARCHIVE SUMMARY] Archive completed successfully in %.3fs\n"+
		"[branch]    => %s\n"+
		"[commits]   => %d\n"+
		"[entries]   => %d files, %d configs, %d removals\n"+
		"[datetime]  => %s\n",
		ai.Duration.Seconds(),
		ai.RefName,
		ai.CommitsCreated,
		ai.Articles,
		ai.Configs,
		ai.Removals,
		ai.FinishedAt.Format("2006-01-02 15:04:05"),
	)
}

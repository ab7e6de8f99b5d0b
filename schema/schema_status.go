package schema

import "time"

// EntryStatus represents the status of the entry store.
type EntryStatus struct {
	Backend        string    `json:"backend"`
	Connected      bool      `json:"connected"`
	TotalGroups    int       `json:"total_groups"`
	TotalArticles  int       `json:"total_articles"`
	LastChangeTime time.Time `json:"last_change_time"`
	LastSynced     string    `json:"last_synced"`
	TableSizeBytes int64     `json:"table_size_bytes"`
}

// ArchiveStatus represents the status of the archive run store.
type ArchiveStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	FailedRuns    int              `json:"failed_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunLabel  string           `json:"last_run_label"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalCommits  int              `json:"total_commits"`
	TotalEntries  int              `json:"total_entries"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

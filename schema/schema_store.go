package schema

import "time"

// GroupRecord represents a row from the gitnote_groups table.
type GroupRecord struct {
	GroupPath   string    `json:"group_path"`
	ConfigPath  string    `json:"config_path"`
	RawConfig   string    `json:"raw_config"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ArticleRecord represents a row from the gitnote_articles table.
type ArticleRecord struct {
	Path      string    `json:"path"`
	GroupPath string    `json:"group_path"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	ChangedAt time.Time `json:"changed_at"`
}

// SyncState records how far a repository has been applied to the entry store.
type SyncState struct {
	RepoKey    string
	LastCommit string
	SyncedAt   time.Time
}

// ArchiveRunRecord represents a row from the gitnote_archive_runs table.
type ArchiveRunRecord struct {
	RunID          int64
	Label          string
	RefName        string
	Boundary       string
	StartTime      time.Time
	EndTime        *time.Time
	DurationMs     *int64
	CommitsCreated int32
	EntriesFolded  int32
	Status         RunStatus
	ErrorMessage   *string
}

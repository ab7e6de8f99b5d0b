// Package contract provides interfaces and shared utilities for gitnote's internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/gitnote/schema"
)

// StoreManager defines the interface for managing persistence stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetEntryStore() EntryStore
	GetArchiveStore() ArchiveStore
}

// EntryStore keeps the latest known state of groups and articles.
type EntryStore interface {
	// ApplyChangeSet upserts changed groups and articles and deletes removed ones.
	ApplyChangeSet(changes schema.ChangeSet) error

	// ListGroups returns every known group ordered by path.
	ListGroups() ([]schema.GroupRecord, error)

	// ListArticles returns the articles of one group ordered by path. The root group is "".
	ListArticles(group string) ([]schema.ArticleRecord, error)

	// ListAllArticles returns every article ordered by path.
	ListAllArticles() ([]schema.ArticleRecord, error)

	// GetSyncState returns the last commit applied for a repository, nil when never synced.
	GetSyncState(repoKey string) (*schema.SyncState, error)

	// SetSyncState records the last commit applied for a repository.
	SetSyncState(state schema.SyncState) error

	// GetStatus returns status information about the entry store
	GetStatus() (schema.EntryStatus, error)

	// Close closes the underlying connection
	Close() error
}

// ArchiveStore tracks compaction runs.
type ArchiveStore interface {
	// BeginRun records a started run and returns its unique ID
	BeginRun(label, boundary string, startTime time.Time) (int64, error)

	// EndRun marks the run as succeeded with its outcome
	EndRun(runID int64, info *schema.ArchivedInfo) error

	// FailRun marks the run as failed with the error message
	FailRun(runID int64, endTime time.Time, runErr error) error

	// GetAllRuns returns every recorded run, newest first
	GetAllRuns() ([]schema.ArchiveRunRecord, error)

	// GetStatus returns status information about the archive store
	GetStatus() (schema.ArchiveStatus, error)

	// Close closes the underlying connection
	Close() error
}

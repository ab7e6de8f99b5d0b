package iostore

import (
	"errors"
	"testing"
	"time"

	"github.com/huangsam/gitnote/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryArchiveStore(t *testing.T) *ArchiveStoreImpl {
	t.Helper()
	store, err := NewArchiveStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*ArchiveStoreImpl)
}

func TestArchiveStore_RunLifecycle(t *testing.T) {
	store := newMemoryArchiveStore(t)
	start := time.Date(2025, 4, 10, 6, 0, 0, 0, time.UTC)

	okID, err := store.BeginRun("2025-Q1", "archive/2025-Q1", start)
	require.NoError(t, err)
	assert.Greater(t, okID, int64(0))

	require.NoError(t, store.EndRun(okID, &schema.ArchivedInfo{
		RefName:        "refs/heads/archived/2025-Q1",
		Label:          "2025-Q1",
		CommitsCreated: 3,
		EntriesFolded:  7,
		Duration:       1500 * time.Millisecond,
		FinishedAt:     start.Add(1500 * time.Millisecond),
	}))

	failID, err := store.BeginRun("2025-Q2", "HEAD", start.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.FailRun(failID, start.Add(time.Hour+250*time.Millisecond), errors.New("disk full")))

	runningID, err := store.BeginRun("2025-Q3", "HEAD", start.Add(2*time.Hour))
	require.NoError(t, err)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)

	running := runs[0]
	assert.Equal(t, runningID, running.RunID)
	assert.Equal(t, schema.RunRunning, running.Status)
	assert.Nil(t, running.EndTime)
	assert.Nil(t, running.DurationMs)
	assert.Nil(t, running.ErrorMessage)
	assert.Empty(t, running.RefName)

	failed := runs[1]
	assert.Equal(t, failID, failed.RunID)
	assert.Equal(t, schema.RunFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "disk full", *failed.ErrorMessage)
	require.NotNil(t, failed.DurationMs)
	assert.Equal(t, int64(250), *failed.DurationMs)
	assert.Equal(t, int32(0), failed.CommitsCreated)

	ok := runs[2]
	assert.Equal(t, okID, ok.RunID)
	assert.Equal(t, schema.RunSucceeded, ok.Status)
	assert.Equal(t, "2025-Q1", ok.Label)
	assert.Equal(t, "archive/2025-Q1", ok.Boundary)
	assert.Equal(t, "refs/heads/archived/2025-Q1", ok.RefName)
	assert.True(t, start.Equal(ok.StartTime))
	require.NotNil(t, ok.EndTime)
	assert.True(t, start.Add(1500*time.Millisecond).Equal(*ok.EndTime))
	require.NotNil(t, ok.DurationMs)
	assert.Equal(t, int64(1500), *ok.DurationMs)
	assert.Equal(t, int32(3), ok.CommitsCreated)
	assert.Equal(t, int32(7), ok.EntriesFolded)
	assert.Nil(t, ok.ErrorMessage)
}

func TestArchiveStore_GetStatus(t *testing.T) {
	store := newMemoryArchiveStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalRuns)
	assert.Equal(t, int64(0), status.TableSizes[archiveRunsTable])

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	id1, err := store.BeginRun("2024-Q4", "archive/2024-Q4", first)
	require.NoError(t, err)
	require.NoError(t, store.EndRun(id1, &schema.ArchivedInfo{CommitsCreated: 2, EntriesFolded: 5, FinishedAt: first}))

	id2, err := store.BeginRun("2025-Q1", "archive/2025-Q1", first.AddDate(0, 3, 0))
	require.NoError(t, err)
	require.NoError(t, store.FailRun(id2, first.AddDate(0, 3, 0), errors.New("boom")))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, 1, status.FailedRuns)
	assert.Equal(t, id2, status.LastRunID)
	assert.Equal(t, "2025-Q1", status.LastRunLabel)
	assert.True(t, first.AddDate(0, 3, 0).Equal(status.LastRunTime))
	assert.True(t, first.Equal(status.OldestRunTime))
	assert.Equal(t, 2, status.TotalCommits)
	assert.Equal(t, 5, status.TotalEntries)
	assert.Equal(t, int64(2), status.TableSizes[archiveRunsTable])
}

func TestArchiveStore_Errors(t *testing.T) {
	store := newMemoryArchiveStore(t)

	err := store.EndRun(1, nil)
	assert.Error(t, err)

	err = store.FailRun(999, time.Now(), errors.New("x"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get start_time for archive run 999")
}

func TestArchiveStore_NoneBackend(t *testing.T) {
	store, err := NewArchiveStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.BeginRun("x", "HEAD", time.Now())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), id)
	assert.NoError(t, store.EndRun(id, &schema.ArchivedInfo{}))
	assert.NoError(t, store.FailRun(id, time.Now(), errors.New("x")))

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Nil(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

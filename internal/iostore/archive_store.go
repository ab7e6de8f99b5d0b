package iostore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
)

// Table names for archive run tracking.
const (
	archiveRunsTable = "gitnote_archive_runs"
	migrationsTable  = "gitnote_schema_migrations"
)

// ArchiveStoreImpl implements the ArchiveStore interface.
type ArchiveStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.ArchiveStore = &ArchiveStoreImpl{} // Compile-time check

// NewArchiveStore creates a new ArchiveStore with the specified backend.
func NewArchiveStore(backend schema.DatabaseBackend, connStr string) (contract.ArchiveStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &ArchiveStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetArchiveDBFilePath())
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(getCreateArchiveRunsQuery(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", archiveRunsTable, err)
	}

	return &ArchiveStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// getCreateArchiveRunsQuery returns the CREATE TABLE query for gitnote_archive_runs.
// It matches the first embedded migration of each backend.
func getCreateArchiveRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(archiveRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				label VARCHAR(255) NOT NULL,
				ref_name VARCHAR(512) NOT NULL DEFAULT '',
				boundary VARCHAR(255) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				duration_ms BIGINT,
				commits_created INT NOT NULL DEFAULT 0,
				entries_folded INT NOT NULL DEFAULT 0,
				status VARCHAR(16) NOT NULL,
				error_message TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				label TEXT NOT NULL,
				ref_name TEXT NOT NULL DEFAULT '',
				boundary TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				duration_ms BIGINT,
				commits_created INT NOT NULL DEFAULT 0,
				entries_folded INT NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				error_message TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				label TEXT NOT NULL,
				ref_name TEXT NOT NULL DEFAULT '',
				boundary TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				duration_ms INTEGER,
				commits_created INTEGER NOT NULL DEFAULT 0,
				entries_folded INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				error_message TEXT
			);
		`, quotedTableName)
	}
}

// BeginRun records a running compaction and returns its unique ID.
func (as *ArchiveStoreImpl) BeginRun(label, boundary string, startTime time.Time) (int64, error) {
	if as.backend == schema.NoneBackend || as.db == nil {
		return 0, nil
	}

	quotedTableName := quoteTableName(archiveRunsTable, as.backend)

	var runID int64
	var err error
	switch as.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (label, boundary, start_time, status) VALUES ($1, $2, $3, $4) RETURNING run_id`, quotedTableName)
		err = as.db.QueryRow(query, label, boundary, startTime, string(schema.RunRunning)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (label, boundary, start_time, status) VALUES (?, ?, ?, ?)`, quotedTableName)
		var result sql.Result
		result, err = as.db.Exec(query, label, boundary, formatTime(startTime, as.backend), string(schema.RunRunning))
		if err != nil {
			return 0, fmt.Errorf("failed to insert archive run: %w", err)
		}
		runID, err = result.LastInsertId()
	}

	if err != nil {
		return 0, fmt.Errorf("failed to insert archive run: %w", err)
	}

	return runID, nil
}

// EndRun marks the run as succeeded with the compaction result.
func (as *ArchiveStoreImpl) EndRun(runID int64, info *schema.ArchivedInfo) error {
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil
	}
	if info == nil {
		return fmt.Errorf("no result given for archive run %d", runID)
	}

	query := rebind(fmt.Sprintf(`UPDATE %s SET ref_name = ?, end_time = ?, duration_ms = ?, commits_created = ?, entries_folded = ?, status = ? WHERE run_id = ?`,
		quoteTableName(archiveRunsTable, as.backend)), as.backend)
	args := []any{
		info.RefName,
		formatTime(info.FinishedAt, as.backend),
		info.Duration.Milliseconds(),
		info.CommitsCreated,
		info.EntriesFolded,
		string(schema.RunSucceeded),
		runID,
	}

	if _, err := as.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update archive run %d: %w", runID, err)
	}
	return nil
}

// FailRun marks the run as failed and keeps the error message.
func (as *ArchiveStoreImpl) FailRun(runID int64, endTime time.Time, runErr error) error {
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(archiveRunsTable, as.backend)

	// First, get the start_time to calculate duration
	var startTime timeScanner
	query := rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, quotedTableName), as.backend)
	if err := as.db.QueryRow(query, runID).Scan(&startTime); err != nil {
		return fmt.Errorf("failed to get start_time for archive run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime.Time).Milliseconds()

	var message *string
	if runErr != nil {
		msg := runErr.Error()
		message = &msg
	}

	update := rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, duration_ms = ?, status = ?, error_message = ? WHERE run_id = ?`, quotedTableName), as.backend)
	if _, err := as.db.Exec(update, formatTime(endTime, as.backend), durationMs, string(schema.RunFailed), message, runID); err != nil {
		return fmt.Errorf("failed to update archive run %d: %w", runID, err)
	}
	return nil
}

// Close closes the underlying connection.
func (as *ArchiveStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

// GetStatus returns status information about the archive store.
func (as *ArchiveStoreImpl) GetStatus() (schema.ArchiveStatus, error) {
	status := schema.ArchiveStatus{
		Backend:    string(as.backend),
		Connected:  as.db != nil,
		TableSizes: make(map[string]int64),
	}

	if as.backend == schema.NoneBackend || as.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(archiveRunsTable, as.backend)

	// Get total runs
	row := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	status.TableSizes[archiveRunsTable] = int64(status.TotalRuns)

	if status.TotalRuns == 0 {
		return status, nil
	}

	row = as.db.QueryRow(rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = ?", quotedTableName), as.backend), string(schema.RunFailed))
	if err := row.Scan(&status.FailedRuns); err != nil {
		return status, fmt.Errorf("failed to get failed runs: %w", err)
	}

	// Get last run info
	var lastRunTime timeScanner
	row = as.db.QueryRow(fmt.Sprintf("SELECT run_id, label, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedTableName))
	if err := row.Scan(&status.LastRunID, &status.LastRunLabel, &lastRunTime); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	status.LastRunTime = lastRunTime.Time

	// Get oldest run time
	var oldestRunTime timeScanner
	row = as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedTableName))
	if err := row.Scan(&oldestRunTime); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	status.OldestRunTime = oldestRunTime.Time

	row = as.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(commits_created), 0), COALESCE(SUM(entries_folded), 0) FROM %s", quotedTableName))
	if err := row.Scan(&status.TotalCommits, &status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get run totals: %w", err)
	}

	return status, nil
}

// GetAllRuns retrieves all archive runs, newest first.
func (as *ArchiveStoreImpl) GetAllRuns() ([]schema.ArchiveRunRecord, error) {
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, label, ref_name, boundary, start_time, end_time, duration_ms,
		commits_created, entries_folded, status, error_message FROM %s ORDER BY run_id DESC`,
		quoteTableName(archiveRunsTable, as.backend))

	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ArchiveRunRecord
	for rows.Next() {
		var record schema.ArchiveRunRecord
		var startTime, endTime timeScanner
		var status string
		if err := rows.Scan(&record.RunID, &record.Label, &record.RefName, &record.Boundary, &startTime, &endTime,
			&record.DurationMs, &record.CommitsCreated, &record.EntriesFolded, &status, &record.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan archive run: %w", err)
		}
		record.StartTime = startTime.Time
		record.EndTime = endTime.ptr()
		record.Status = schema.RunStatus(status)
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive runs: %w", err)
	}

	return results, nil
}

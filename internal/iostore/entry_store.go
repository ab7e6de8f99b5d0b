package iostore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/gitnote/core/content"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
	"github.com/pelletier/go-toml/v2"
)

// Table names for the entry store.
const (
	groupsTable    = "gitnote_groups"
	articlesTable  = "gitnote_articles"
	syncStateTable = "gitnote_sync_state"
)

var entryTables = []string{groupsTable, articlesTable, syncStateTable}

// groupConfig is the subset of a group configuration kept as columns.
type groupConfig struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// EntryStoreImpl implements the EntryStore interface.
type EntryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.EntryStore = &EntryStoreImpl{} // Compile-time check

// NewEntryStore creates a new EntryStore with the specified backend.
func NewEntryStore(backend schema.DatabaseBackend, connStr string) (contract.EntryStore, error) {
	if backend == schema.NoneBackend {
		return &EntryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetEntryDBFilePath())
	if err != nil {
		return nil, err
	}

	for _, query := range getCreateEntryTablesQueries(backend) {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create entry tables: %w", err)
		}
	}

	return &EntryStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// getCreateEntryTablesQueries returns the CREATE TABLE queries for the entry tables.
func getCreateEntryTablesQueries(backend schema.DatabaseBackend) []string {
	groups := quoteTableName(groupsTable, backend)
	articles := quoteTableName(articlesTable, backend)
	syncState := quoteTableName(syncStateTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					group_path VARCHAR(512) NOT NULL PRIMARY KEY,
					config_path VARCHAR(512) NOT NULL,
					raw_config MEDIUMTEXT NOT NULL,
					title VARCHAR(512),
					description TEXT,
					updated_at DATETIME(6) NOT NULL
				);
			`, groups),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					path VARCHAR(512) NOT NULL PRIMARY KEY,
					group_path VARCHAR(512) NOT NULL,
					name VARCHAR(255) NOT NULL,
					content LONGTEXT NOT NULL,
					changed_at DATETIME(6) NOT NULL,
					INDEX idx_articles_group (group_path)
				);
			`, articles),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					repo_key VARCHAR(512) NOT NULL PRIMARY KEY,
					last_commit CHAR(40) NOT NULL,
					synced_at DATETIME(6) NOT NULL
				);
			`, syncState),
		}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					group_path TEXT NOT NULL PRIMARY KEY,
					config_path TEXT NOT NULL,
					raw_config TEXT NOT NULL,
					title TEXT,
					description TEXT,
					updated_at TIMESTAMPTZ NOT NULL
				);
			`, groups),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					path TEXT NOT NULL PRIMARY KEY,
					group_path TEXT NOT NULL,
					name TEXT NOT NULL,
					content TEXT NOT NULL,
					changed_at TIMESTAMPTZ NOT NULL
				);
			`, articles),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_articles_group ON %s (group_path);`, articles),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					repo_key TEXT NOT NULL PRIMARY KEY,
					last_commit TEXT NOT NULL,
					synced_at TIMESTAMPTZ NOT NULL
				);
			`, syncState),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					group_path TEXT NOT NULL PRIMARY KEY,
					config_path TEXT NOT NULL,
					raw_config TEXT NOT NULL,
					title TEXT,
					description TEXT,
					updated_at TEXT NOT NULL
				);
			`, groups),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					path TEXT NOT NULL PRIMARY KEY,
					group_path TEXT NOT NULL,
					name TEXT NOT NULL,
					content TEXT NOT NULL,
					changed_at TEXT NOT NULL
				);
			`, articles),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_articles_group ON %s (group_path);`, articles),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					repo_key TEXT NOT NULL PRIMARY KEY,
					last_commit TEXT NOT NULL,
					synced_at TEXT NOT NULL
				);
			`, syncState),
		}
	}
}

// getGroupUpsertQuery returns the UPSERT query for group configurations.
func (es *EntryStoreImpl) getGroupUpsertQuery() string {
	quotedTableName := quoteTableName(groupsTable, es.backend)
	switch es.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (group_path, config_path, raw_config, title, description, updated_at) VALUES (?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE config_path = new.config_path, raw_config = new.raw_config, title = new.title, description = new.description, updated_at = new.updated_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (group_path, config_path, raw_config, title, description, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (group_path) DO UPDATE SET config_path = EXCLUDED.config_path, raw_config = EXCLUDED.raw_config, title = EXCLUDED.title, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (group_path, config_path, raw_config, title, description, updated_at) VALUES (?, ?, ?, ?, ?, ?)`, quotedTableName)
	}
}

// getArticleUpsertQuery returns the UPSERT query for articles.
func (es *EntryStoreImpl) getArticleUpsertQuery() string {
	quotedTableName := quoteTableName(articlesTable, es.backend)
	switch es.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (path, group_path, name, content, changed_at) VALUES (?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE group_path = new.group_path, name = new.name, content = new.content, changed_at = new.changed_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (path, group_path, name, content, changed_at) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (path) DO UPDATE SET group_path = EXCLUDED.group_path, name = EXCLUDED.name, content = EXCLUDED.content, changed_at = EXCLUDED.changed_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (path, group_path, name, content, changed_at) VALUES (?, ?, ?, ?, ?)`, quotedTableName)
	}
}

// getSyncUpsertQuery returns the UPSERT query for sync state.
func (es *EntryStoreImpl) getSyncUpsertQuery() string {
	quotedTableName := quoteTableName(syncStateTable, es.backend)
	switch es.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (repo_key, last_commit, synced_at) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE last_commit = new.last_commit, synced_at = new.synced_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (repo_key, last_commit, synced_at) VALUES ($1, $2, $3)
			ON CONFLICT (repo_key) DO UPDATE SET last_commit = EXCLUDED.last_commit, synced_at = EXCLUDED.synced_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (repo_key, last_commit, synced_at) VALUES (?, ?, ?)`, quotedTableName)
	}
}

// decodeGroupConfig extracts title and description from a group configuration.
// Undecodable or empty values come back as nil.
func decodeGroupConfig(raw string) (title, description *string) {
	var cfg groupConfig
	if err := toml.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, nil
	}
	if cfg.Title != "" {
		title = &cfg.Title
	}
	if cfg.Description != "" {
		description = &cfg.Description
	}
	return title, description
}

// ApplyChangeSet applies every entry of the change set in one transaction.
func (es *EntryStoreImpl) ApplyChangeSet(cs schema.ChangeSet) (err error) {
	if es.backend == schema.NoneBackend || es.db == nil || len(cs) == 0 {
		return nil
	}

	tx, err := es.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	groupUpsert := es.getGroupUpsertQuery()
	articleUpsert := es.getArticleUpsertQuery()
	deleteGroup := rebind(fmt.Sprintf("DELETE FROM %s WHERE group_path = ?", quoteTableName(groupsTable, es.backend)), es.backend)
	deleteArticle := rebind(fmt.Sprintf("DELETE FROM %s WHERE path = ?", quoteTableName(articlesTable, es.backend)), es.backend)

	for _, entry := range cs {
		switch e := entry.(type) {
		case schema.GroupConfigChanged:
			title, description := decodeGroupConfig(e.Content)
			_, err = tx.Exec(groupUpsert, e.Group, content.ConfigPath(e.Group), e.Content, title, description, formatTime(e.Timestamp, es.backend))
		case schema.ArticleChanged:
			_, err = tx.Exec(articleUpsert, e.Path, e.Group, e.Name, e.Content, formatTime(e.Timestamp, es.backend))
		case schema.Removed:
			if e.IsGroupConfig() {
				_, err = tx.Exec(deleteGroup, e.Group)
			} else {
				_, err = tx.Exec(deleteArticle, e.Path)
			}
		default:
			err = fmt.Errorf("unknown entry type %T", entry)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s for %s: %w", entry.Kind(), entry.EntryPath(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit change set: %w", err)
	}
	return nil
}

// ListGroups returns every stored group ordered by path.
func (es *EntryStoreImpl) ListGroups() ([]schema.GroupRecord, error) {
	if es.backend == schema.NoneBackend || es.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT group_path, config_path, raw_config, title, description, updated_at FROM %s ORDER BY group_path",
		quoteTableName(groupsTable, es.backend))
	rows, err := es.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.GroupRecord
	for rows.Next() {
		var record schema.GroupRecord
		var updatedAt timeScanner
		if err := rows.Scan(&record.GroupPath, &record.ConfigPath, &record.RawConfig, &record.Title, &record.Description, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		record.UpdatedAt = updatedAt.Time
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return results, nil
}

// ListArticles returns the articles of one group ordered by path.
func (es *EntryStoreImpl) ListArticles(group string) ([]schema.ArticleRecord, error) {
	if es.backend == schema.NoneBackend || es.db == nil {
		return nil, nil
	}

	query := rebind(fmt.Sprintf("SELECT path, group_path, name, content, changed_at FROM %s WHERE group_path = ? ORDER BY path",
		quoteTableName(articlesTable, es.backend)), es.backend)
	rows, err := es.db.Query(query, group)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles of group %q: %w", group, err)
	}
	return scanArticles(rows)
}

// ListAllArticles returns every article ordered by path.
func (es *EntryStoreImpl) ListAllArticles() ([]schema.ArticleRecord, error) {
	if es.backend == schema.NoneBackend || es.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT path, group_path, name, content, changed_at FROM %s ORDER BY path",
		quoteTableName(articlesTable, es.backend))
	rows, err := es.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	return scanArticles(rows)
}

func scanArticles(rows *sql.Rows) ([]schema.ArticleRecord, error) {
	defer func() { _ = rows.Close() }()

	var results []schema.ArticleRecord
	for rows.Next() {
		var record schema.ArticleRecord
		var changedAt timeScanner
		if err := rows.Scan(&record.Path, &record.GroupPath, &record.Name, &record.Content, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		record.ChangedAt = changedAt.Time
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return results, nil
}

// GetSyncState returns the sync state of a repository, or nil if it was never synced.
func (es *EntryStoreImpl) GetSyncState(repoKey string) (*schema.SyncState, error) {
	if es.backend == schema.NoneBackend || es.db == nil {
		return nil, nil
	}

	query := rebind(fmt.Sprintf("SELECT repo_key, last_commit, synced_at FROM %s WHERE repo_key = ?",
		quoteTableName(syncStateTable, es.backend)), es.backend)

	var state schema.SyncState
	var syncedAt timeScanner
	err := es.db.QueryRow(query, repoKey).Scan(&state.RepoKey, &state.LastCommit, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state for %s: %w", repoKey, err)
	}
	state.SyncedAt = syncedAt.Time
	return &state, nil
}

// SetSyncState records how far a repository has been applied.
func (es *EntryStoreImpl) SetSyncState(state schema.SyncState) error {
	if es.backend == schema.NoneBackend || es.db == nil {
		return nil
	}

	if _, err := es.db.Exec(es.getSyncUpsertQuery(), state.RepoKey, state.LastCommit, formatTime(state.SyncedAt, es.backend)); err != nil {
		return fmt.Errorf("failed to set sync state for %s: %w", state.RepoKey, err)
	}
	return nil
}

// Close closes the underlying DB connection.
func (es *EntryStoreImpl) Close() error {
	if es.db != nil {
		return es.db.Close()
	}
	return nil
}

// GetStatus returns status information about the entry store.
func (es *EntryStoreImpl) GetStatus() (schema.EntryStatus, error) {
	status := schema.EntryStatus{
		Backend:   string(es.backend),
		Connected: es.db != nil,
	}

	if es.backend == schema.NoneBackend || es.db == nil {
		return status, nil
	}

	row := es.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(groupsTable, es.backend)))
	if err := row.Scan(&status.TotalGroups); err != nil {
		return status, fmt.Errorf("failed to get total groups: %w", err)
	}

	row = es.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(articlesTable, es.backend)))
	if err := row.Scan(&status.TotalArticles); err != nil {
		return status, fmt.Errorf("failed to get total articles: %w", err)
	}

	if status.TotalArticles > 0 {
		var lastChange timeScanner
		row = es.db.QueryRow(fmt.Sprintf("SELECT MAX(changed_at) FROM %s", quoteTableName(articlesTable, es.backend)))
		if err := row.Scan(&lastChange); err != nil {
			return status, fmt.Errorf("failed to get last change time: %w", err)
		}
		status.LastChangeTime = lastChange.Time
	}

	var lastCommit string
	var syncedAt timeScanner
	row = es.db.QueryRow(fmt.Sprintf("SELECT last_commit, synced_at FROM %s ORDER BY synced_at DESC LIMIT 1", quoteTableName(syncStateTable, es.backend)))
	switch err := row.Scan(&lastCommit, &syncedAt); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return status, fmt.Errorf("failed to get last sync: %w", err)
	default:
		status.LastSynced = fmt.Sprintf("%s at %s", shortHash(lastCommit), syncedAt.Time.Format(time.DateTime))
	}

	status.TableSizeBytes = tableSizeBytes(es.db, es.backend, es.connStr, entryTables, status.TotalGroups+status.TotalArticles)
	return status, nil
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

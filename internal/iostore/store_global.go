package iostore

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetEntryDBFilePath returns the path to the SQLite DB file for entry storage.
func GetEntryDBFilePath() string {
	return contract.GetEntryDBFilePath()
}

// GetArchiveDBFilePath returns the path to the SQLite DB file for archive run storage.
func GetArchiveDBFilePath() string {
	return contract.GetArchiveDBFilePath()
}

// InitStores initializes the global manager with separate entry and archive stores.
// An empty backend leaves the corresponding store unset.
func InitStores(entryBackend schema.DatabaseBackend, entryConnStr string, archiveBackend schema.DatabaseBackend, archiveConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var entryStore contract.EntryStore
		if entryBackend != "" {
			entryStore, err = NewEntryStore(entryBackend, entryConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize entry store: %w", err)
				return
			}
		}

		var archiveStore contract.ArchiveStore
		if archiveBackend != "" {
			archiveStore, err = NewArchiveStore(archiveBackend, archiveConnStr)
			if err != nil {
				if entryStore != nil {
					_ = entryStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize archive store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.entries = entryStore
		Manager.archive = archiveStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.entries != nil {
			_ = Manager.entries.Close()
		}
		if Manager.archive != nil {
			_ = Manager.archive.Close()
		}
	})
}

// ClearEntries clears the entry data for the specified backend.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the entry tables.
func ClearEntries(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, entryTables)
}

// ClearArchive clears the archive run history for the specified backend.
// Migration bookkeeping is dropped along with the runs table.
func ClearArchive(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, []string{archiveRunsTable, migrationsTable})
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr string, tables []string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		for _, table := range tables {
			if err := clearSQLTable(driverFor(backend), connStr, quoteTableName(table, backend)); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(driverName, connStr, tableName string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}

	return nil
}

//go:build database

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// exerciseBackend syncs a notes repository, archives it and inspects both stores.
func exerciseBackend(t *testing.T, backend, connStr string) {
	repoDir := notesRepo(t)
	env := []string{
		"GITNOTE_ENTRY_BACKEND=" + backend,
		"GITNOTE_ENTRY_DB_CONNECT=" + connStr,
		"GITNOTE_ARCHIVE_BACKEND=" + backend,
		"GITNOTE_ARCHIVE_DB_CONNECT=" + connStr,
		"GITNOTE_LOG_LEVEL=none",
	}

	_, err := runGitnote(t, repoDir, env, "entries", "clear")
	require.NoError(t, err)
	_, err = runGitnote(t, repoDir, env, "runs", "clear")
	require.NoError(t, err)

	_, err = runGitnote(t, repoDir, env, "sync", "--tip-ref", "main")
	require.NoError(t, err)

	out, err := runGitnote(t, repoDir, env, "entries", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)

	_, err = runGitnote(t, repoDir, env, "archive", "main", "2025-Q1")
	require.NoError(t, err)

	out, err = runGitnote(t, repoDir, env, "runs", "list", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-Q1")
	assert.Contains(t, out, "succeeded")

	exportPrefix := filepath.Join(t.TempDir(), "notes")
	_, err = runGitnote(t, repoDir, env, "entries", "export", "--output-file", exportPrefix)
	require.NoError(t, err)
	assert.FileExists(t, exportPrefix+".articles.parquet")
}

// TestGitnoteWithMySQL tests the gitnote CLI with a MySQL backend.
func TestGitnoteWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "gitnote",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/gitnote?parseTime=true", host, port.Port())
	exerciseBackend(t, "mysql", connStr)
}

// TestGitnoteWithPostgres tests the gitnote CLI with a PostgreSQL backend.
func TestGitnoteWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	exerciseBackend(t, "postgresql", connStr)
}

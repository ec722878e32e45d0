package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTable(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	def := TableDef{
		Columns:    map[string]string{"id": "INTEGER", "status": "TEXT", "title": "TEXT"},
		PrimaryKey: "id",
		Indexes:    []string{"status", "missing_column"},
	}
	require.NoError(t, st.CreateTable(ctx, "tickets", def))

	// Idempotent.
	require.NoError(t, st.CreateTable(ctx, "tickets", def))

	info, err := st.Info(ctx, "tickets")
	require.NoError(t, err)
	assert.Len(t, info.Columns, 3)
	assert.Contains(t, info.Indexes, "idx_tickets_status")

	// Index on a column the table does not define is skipped.
	assert.NotContains(t, info.Indexes, "idx_tickets_missing_column")

	err = st.CreateTable(ctx, "empty", TableDef{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestCreateTablesFromSchemaFile(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	schema := `{
		"tables": {
			"tickets": {
				"columns": {"id": "INTEGER", "problem_no": "TEXT", "status": "TEXT"},
				"primary_key": "id",
				"indexes": ["problem_no"]
			},
			"audit": {
				"columns": {"id": "INTEGER", "note": "TEXT"}
			}
		}
	}`
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(schema), 0o644))

	require.NoError(t, st.CreateTablesFromSchemaFile(ctx, path))

	tables, err := st.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "tickets")
	assert.Contains(t, tables, "audit")
	assert.Contains(t, tables, "sync_log")

	err = st.CreateTablesFromSchemaFile(ctx, filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")

	st, err := Open(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = st.DB().ExecContext(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, "INSERT INTO items (name) VALUES ('keep')")
	require.NoError(t, err)

	backupDir := filepath.Join(dir, "backups")
	backupFile, err := st.Backup(ctx, backupDir, "")
	require.NoError(t, err)
	assert.DirExists(t, backupDir)
	assert.FileExists(t, backupFile)

	// Damage the live data, then restore.
	_, err = st.DB().ExecContext(ctx, "DELETE FROM items")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	require.NoError(t, RestoreDatabase(dbPath, backupFile))

	st, err = Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestBackupNamed(t *testing.T) {
	st := openTestStore(t)

	dir := t.TempDir()
	path, err := st.Backup(context.Background(), dir, "snapshot.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "snapshot.db"), path)
	assert.FileExists(t, path)
}

func TestInfoMissingTable(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Info(context.Background(), "absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestStats(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.DB().ExecContext(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, "INSERT INTO items DEFAULT VALUES")
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, "INSERT INTO items DEFAULT VALUES")
	require.NoError(t, err)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Tables["items"])
	assert.Equal(t, int64(0), stats.Tables["sync_log"])
	assert.Positive(t, stats.PageCount)
	assert.Positive(t, stats.PageSize)
	assert.Equal(t, stats.PageCount*stats.PageSize, stats.DatabaseSize)
}

func TestCheckIntegrityAndVacuum(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	ok, err := st.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, st.Vacuum(ctx))
}

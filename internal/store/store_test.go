package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenCreatesSchemaAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Opening again over the existing file must not fail.
	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	var name string
	err = st.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='sync_log'",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "sync_log", name)
	assert.Equal(t, path, st.Path())
}

func TestRecordAndLookupOperation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	entry := LogEntry{
		RequestID: "r1",
		ClientID:  "c1",
		Operation: "INSERT",
		Table:     "tickets",
		Timestamp: 1700000000.5,
		Status:    "SUCCESS",
	}
	require.NoError(t, st.RecordOperation(ctx, entry))

	got, err := st.LookupOperation(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.RequestID, got.RequestID)
	assert.Equal(t, entry.ClientID, got.ClientID)
	assert.Equal(t, entry.Operation, got.Operation)
	assert.Equal(t, entry.Table, got.Table)
	assert.Equal(t, entry.Status, got.Status)
	assert.Empty(t, got.ErrorMessage)

	missing, err := st.LookupOperation(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordOperationReplacesByRequestID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordOperation(ctx, LogEntry{
		RequestID: "r1", ClientID: "c1", Operation: "INSERT", Status: "ERROR", ErrorMessage: "boom",
	}))
	require.NoError(t, st.RecordOperation(ctx, LogEntry{
		RequestID: "r1", ClientID: "c1", Operation: "INSERT", Status: "SUCCESS",
	}))

	var count int
	require.NoError(t, st.DB().QueryRow(
		"SELECT COUNT(*) FROM sync_log WHERE request_id = 'r1'").Scan(&count))
	assert.Equal(t, 1, count)

	got, err := st.LookupOperation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestSeenRequest(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seen, err := st.SeenRequest(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, st.RecordOperation(ctx, LogEntry{
		RequestID: "r1", ClientID: "c1", Operation: "DELETE", Status: "ERROR", ErrorMessage: "no such table",
	}))

	// Failed requests count as seen too.
	seen, err = st.SeenRequest(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, seen)
}

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncsys/syncsys/internal/wire"
)

func TestTransactionCommit(t *testing.T) {
	e, st := newTestEngine(t)

	res := e.Execute(context.Background(), request(wire.OpTransaction, "",
		`{"operations":[
			{"type":"INSERT","table":"tickets","data":{"values":{"problem_no":"P-1","status":"open"}}},
			{"type":"INSERT","table":"tickets","data":{"values":{"problem_no":"P-2","status":"open"}}},
			{"type":"UPDATE","table":"tickets","data":{"values":{"status":"closed"},"where":{"problem_no":"P-1"}}}
		]}`))

	require.Equal(t, wire.StatusSuccess, res.Status)
	data := res.Data.(map[string]any)
	assert.Equal(t, true, data["transaction_success"])
	assert.Equal(t, 3, data["operations_count"])
	assert.Equal(t, int64(3), data["total_affected_rows"])

	results := data["results"].([]map[string]any)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0]["operation_index"])
	assert.Equal(t, wire.OpInsert, results[0]["type"])
	assert.Equal(t, "tickets", results[0]["table"])

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM tickets").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestTransactionRollbackOnFailure(t *testing.T) {
	e, st := newTestEngine(t)

	// Step 3 violates the UNIQUE constraint on problem_no; the inserts
	// from steps 1 and 2 must not survive.
	res := e.Execute(context.Background(), request(wire.OpTransaction, "",
		`{"operations":[
			{"type":"INSERT","table":"tickets","data":{"values":{"problem_no":"P-1"}}},
			{"type":"INSERT","table":"tickets","data":{"values":{"problem_no":"P-2"}}},
			{"type":"INSERT","table":"tickets","data":{"values":{"problem_no":"P-1"}}}
		]}`))

	require.Equal(t, wire.StatusError, res.Status)
	assert.Contains(t, res.Error, string(CodeTransaction))
	assert.Contains(t, res.Error, "operation 3")

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM tickets").Scan(&count))
	assert.Equal(t, 0, count, "partial transaction must not be visible")
}

func TestTransactionInvalidStepRollsBack(t *testing.T) {
	e, st := newTestEngine(t)

	// Step 2's payload fails validation (UPDATE without where).
	res := e.Execute(context.Background(), request(wire.OpTransaction, "",
		`{"operations":[
			{"type":"INSERT","table":"tickets","data":{"values":{"problem_no":"P-1"}}},
			{"type":"UPDATE","table":"tickets","data":{"values":{"status":"closed"}}}
		]}`))

	require.Equal(t, wire.StatusError, res.Status)
	assert.Contains(t, res.Error, "operation 2")

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM tickets").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestTransactionSelectStep(t *testing.T) {
	e, st := newTestEngine(t)
	_, err := st.DB().Exec(`INSERT INTO tickets (problem_no, status) VALUES ('P-1', 'open')`)
	require.NoError(t, err)

	res := e.Execute(context.Background(), request(wire.OpTransaction, "",
		`{"operations":[
			{"type":"UPDATE","table":"tickets","data":{"values":{"status":"closed"},"where":{"problem_no":"P-1"}}},
			{"type":"SELECT","table":"tickets","data":{"where":{"problem_no":"P-1"}}}
		]}`))

	require.Equal(t, wire.StatusSuccess, res.Status)
	data := res.Data.(map[string]any)

	// The SELECT step observes the UPDATE from step 1.
	results := data["results"].([]map[string]any)
	rows := results[1]["result"].([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "closed", rows[0]["status"])

	// SELECT steps contribute nothing to the affected total.
	assert.Equal(t, int64(1), data["total_affected_rows"])
}

func TestTransactionEmptyRefused(t *testing.T) {
	e, _ := newTestEngine(t)

	res := e.Execute(context.Background(), request(wire.OpTransaction, "", `{"operations":[]}`))
	require.Equal(t, wire.StatusError, res.Status)
	assert.Contains(t, res.Error, "non-empty operations")
}

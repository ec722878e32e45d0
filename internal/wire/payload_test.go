package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadSelect(t *testing.T) {
	p, err := DecodePayload(OpSelect, json.RawMessage(`{"columns":["id"],"where":{"status":"open"},"order_by":"id DESC","limit":5}`))
	require.NoError(t, err)

	sel, ok := p.(SelectPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, sel.Columns)
	assert.Equal(t, map[string]any{"status": "open"}, sel.Where)
	assert.Equal(t, "id DESC", sel.OrderBy)
	assert.Equal(t, 5, sel.Limit)

	// SELECT accepts an empty payload: select everything.
	p, err = DecodePayload(OpSelect, nil)
	require.NoError(t, err)
	sel = p.(SelectPayload)
	assert.Empty(t, sel.Where)
}

func TestDecodePayloadInsert(t *testing.T) {
	p, err := DecodePayload(OpInsert, json.RawMessage(`{"values":{"status":"open"}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "open"}, p.(InsertPayload).Values)

	_, err = DecodePayload(OpInsert, json.RawMessage(`{"values":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty values")

	_, err = DecodePayload(OpInsert, nil)
	require.Error(t, err)
}

func TestDecodePayloadUpdateRequiresWhere(t *testing.T) {
	_, err := DecodePayload(OpUpdate, json.RawMessage(`{"values":{"status":"closed"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty where")

	_, err = DecodePayload(OpUpdate, json.RawMessage(`{"where":{"id":1}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty values")

	p, err := DecodePayload(OpUpdate, json.RawMessage(`{"values":{"status":"closed"},"where":{"id":1}}`))
	require.NoError(t, err)
	up := p.(UpdatePayload)
	assert.Equal(t, "closed", up.Values["status"])
}

func TestDecodePayloadDeleteRequiresWhere(t *testing.T) {
	_, err := DecodePayload(OpDelete, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty where")

	p, err := DecodePayload(OpDelete, json.RawMessage(`{"where":{"id":1}}`))
	require.NoError(t, err)
	assert.Equal(t, float64(1), p.(DeletePayload).Where["id"])
}

func TestDecodePayloadSQL(t *testing.T) {
	_, err := DecodePayload(OpSQL, json.RawMessage(`{"sql":""}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty sql")

	p, err := DecodePayload(OpSQL, json.RawMessage(`{"sql":"SELECT 1","params":[2,"x"]}`))
	require.NoError(t, err)
	sp := p.(SQLPayload)
	assert.Equal(t, "SELECT 1", sp.SQL)
	assert.Len(t, sp.Params, 2)
}

func TestDecodePayloadTransaction(t *testing.T) {
	_, err := DecodePayload(OpTransaction, json.RawMessage(`{"operations":[]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty operations")

	// Nested TRANSACTION is not allowed.
	_, err = DecodePayload(OpTransaction, json.RawMessage(
		`{"operations":[{"type":"TRANSACTION","table":"t","data":{}}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation 1")
	assert.Contains(t, err.Error(), "unsupported operation type in transaction")

	_, err = DecodePayload(OpTransaction, json.RawMessage(
		`{"operations":[{"type":"INSERT","data":{"values":{"a":1}}}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing table")

	p, err := DecodePayload(OpTransaction, json.RawMessage(
		`{"operations":[
			{"type":"INSERT","table":"t","data":{"values":{"a":1}}},
			{"type":"UPDATE","table":"t","data":{"values":{"a":2},"where":{"a":1}}}
		]}`))
	require.NoError(t, err)
	assert.Len(t, p.(TransactionPayload).Operations, 2)
}

func TestDecodePayloadParseError(t *testing.T) {
	_, err := DecodePayload(OpInsert, json.RawMessage(`{"values": `))
	require.Error(t, err)

	_, err = DecodePayload(Operation("UPSERT"), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported operation type")
}

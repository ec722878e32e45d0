package wire

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{
		RequestID: "req-1",
		ClientID:  "client1",
		Operation: OpInsert,
		Table:     "tickets",
		Data:      json.RawMessage(`{"values":{"status":"open"}}`),
		Timestamp: 1700000000.5,
	}

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req.RequestID, decoded.RequestID)
	assert.Equal(t, req.ClientID, decoded.ClientID)
	assert.Equal(t, req.Operation, decoded.Operation)
	assert.Equal(t, req.Table, decoded.Table)
	assert.Equal(t, req.Timestamp, decoded.Timestamp)
	assert.JSONEq(t, string(req.Data), string(decoded.Data))
}

func TestEncodeRequestGolden(t *testing.T) {
	req := &Request{
		RequestID: "req-1",
		ClientID:  "client1",
		Operation: OpInsert,
		Table:     "tickets",
		Data:      json.RawMessage(`{"values":{"status":"open"}}`),
		Timestamp: 1700000000.5,
	}

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "insert_request", data)
}

func TestEncodeResponseGolden(t *testing.T) {
	resp := &Response{
		RequestID: "req-1",
		ClientID:  "client1",
		Result: Result{
			Status:    StatusSuccess,
			Data:      map[string]any{"rows_affected": 1},
			Timestamp: 1700000000.5,
		},
		ProcessedAt: 1700000001.25,
	}

	data, err := EncodeResponse(resp)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "success_response", data)
}

func TestDecodeRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "not json",
			input:   `{"request_id": `,
			wantErr: "decode request",
		},
		{
			name:    "missing request_id",
			input:   `{"client_id":"c1","operation":"SELECT","table":"t"}`,
			wantErr: "missing request_id",
		},
		{
			name:    "missing client_id",
			input:   `{"request_id":"r1","operation":"SELECT","table":"t"}`,
			wantErr: "missing client_id",
		},
		{
			name:    "unknown operation",
			input:   `{"request_id":"r1","client_id":"c1","operation":"UPSERT","table":"t"}`,
			wantErr: "unsupported operation type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeResponseValidation(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"request_id":"","client_id":"c1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing request_id")

	_, err = DecodeResponse([]byte(`{"request_id":"r1","client_id":"c1","result":{"status":"MAYBE"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid result status")

	resp, err := DecodeResponse([]byte(`{"request_id":"r1","client_id":"c1","result":{"status":"ERROR","error":"boom"}}`))
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Result.Status)
	assert.Equal(t, "boom", resp.Result.Error)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "c1_r1.json", FileName("c1", "r1"))
}

func TestParseFileName(t *testing.T) {
	clientID, requestID, ok := ParseFileName("c1_r1.json")
	require.True(t, ok)
	assert.Equal(t, "c1", clientID)
	assert.Equal(t, "r1", requestID)

	// Request IDs may contain underscores; the first one separates.
	clientID, requestID, ok = ParseFileName("abcd1234_batch_import_20240101120000_x.json")
	require.True(t, ok)
	assert.Equal(t, "abcd1234", clientID)
	assert.Equal(t, "batch_import_20240101120000_x", requestID)

	_, _, ok = ParseFileName("nounderscore.json")
	assert.False(t, ok)

	_, _, ok = ParseFileName("_r1.json")
	assert.False(t, ok)
}

func TestOperationValid(t *testing.T) {
	for _, op := range []Operation{OpSelect, OpInsert, OpUpdate, OpDelete, OpSQL, OpTransaction} {
		assert.True(t, op.Valid(), string(op))
	}
	assert.False(t, Operation("UPSERT").Valid())
	assert.False(t, Operation("").Valid())
}

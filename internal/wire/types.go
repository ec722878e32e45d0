package wire

import (
	"encoding/json"
	"time"
)

// Operation identifies the kind of work a request carries.
type Operation string

const (
	OpSelect      Operation = "SELECT"
	OpInsert      Operation = "INSERT"
	OpUpdate      Operation = "UPDATE"
	OpDelete      Operation = "DELETE"
	OpSQL         Operation = "SQL"
	OpTransaction Operation = "TRANSACTION"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OpSelect, OpInsert, OpUpdate, OpDelete, OpSQL, OpTransaction:
		return true
	}
	return false
}

// Status is the outcome of processing a request.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Request is one unit of work. It is created by a client, serialized
// to a file, and consumed exactly once by the processor. Never mutated
// after creation.
//
// Data is kept raw here; DecodePayload turns it into the typed union
// for the request's operation.
type Request struct {
	RequestID string          `json:"request_id"`
	ClientID  string          `json:"client_id"`
	Operation Operation       `json:"operation"`
	Table     string          `json:"table"`
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"`
}

// Result is the structured outcome embedded in a Response.
// Exactly one of Data or Error is meaningful, selected by Status.
type Result struct {
	Status    Status  `json:"status"`
	Data      any     `json:"data,omitempty"`
	Error     string  `json:"error,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

// Response is the result of processing exactly one Request.
// RequestID and ClientID are copied from the request for correlation.
type Response struct {
	RequestID   string  `json:"request_id"`
	ClientID    string  `json:"client_id"`
	Result      Result  `json:"result"`
	ProcessedAt float64 `json:"processed_at"`
}

// TxOperation is a sub-unit inside a TRANSACTION payload. It is not
// independently addressable; it exists only as an element of
// TransactionPayload.Operations.
type TxOperation struct {
	Type  Operation       `json:"type"`
	Table string          `json:"table"`
	Data  json.RawMessage `json:"data"`
}

// Now returns the current time as Unix seconds.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

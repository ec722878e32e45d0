package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syncsys/syncsys/internal/wire"
)

// TransactionBuilder accumulates sub-operations for one atomic
// transaction. Batch-import tooling stamps the request ID at build
// time so the same logical batch is refused if replayed.
type TransactionBuilder struct {
	ops []wire.TxOperation
	err error
}

// NewTransaction returns an empty builder.
func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{}
}

// AddInsert appends an INSERT step.
func (b *TransactionBuilder) AddInsert(table string, values map[string]any) *TransactionBuilder {
	b.add(wire.OpInsert, table, wire.InsertPayload{Values: values})
	return b
}

// AddUpdate appends an UPDATE step.
func (b *TransactionBuilder) AddUpdate(table string, values, where map[string]any) *TransactionBuilder {
	b.add(wire.OpUpdate, table, wire.UpdatePayload{Values: values, Where: where})
	return b
}

// AddDelete appends a DELETE step.
func (b *TransactionBuilder) AddDelete(table string, where map[string]any) *TransactionBuilder {
	b.add(wire.OpDelete, table, wire.DeletePayload{Where: where})
	return b
}

func (b *TransactionBuilder) add(op wire.Operation, table string, payload any) {
	if b.err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		b.err = fmt.Errorf("encode %s step %d: %w", op, len(b.ops)+1, err)
		return
	}
	b.ops = append(b.ops, wire.TxOperation{
		Type:  op,
		Table: table,
		Data:  data,
	})
}

// Len returns the number of accumulated steps.
func (b *TransactionBuilder) Len() int {
	return len(b.ops)
}

// Operations returns the accumulated steps, or the first build error.
func (b *TransactionBuilder) Operations() ([]wire.TxOperation, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.ops) == 0 {
		return nil, fmt.Errorf("transaction has no operations")
	}
	return b.ops, nil
}

// Execute runs the built transaction with the client's retry policy.
func (b *TransactionBuilder) Execute(c *Client) (*TxResult, error) {
	ops, err := b.Operations()
	if err != nil {
		return nil, err
	}
	return c.Transaction(ops)
}

// ExecuteBatch runs the built transaction under a batch-import request
// ID of the form batch_import_<stamp>_<uuid>, single attempt. The
// returned ID identifies the batch in the operation log.
func (b *TransactionBuilder) ExecuteBatch(c *Client) (string, *TxResult, error) {
	ops, err := b.Operations()
	if err != nil {
		return "", nil, err
	}
	requestID := BatchImportID()
	result, err := c.TransactionWithID(requestID, ops)
	return requestID, result, err
}

// BatchImportID builds a batch-import request identifier.
func BatchImportID() string {
	return fmt.Sprintf("batch_import_%s_%s", time.Now().Format("20060102150405"), uuid.NewString())
}

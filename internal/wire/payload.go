package wire

import (
	"encoding/json"
	"fmt"
)

// Payload is the typed union of operation-specific request data.
// One concrete payload type exists per Operation.
type Payload interface {
	isPayload()
}

// SelectPayload carries the parts of a SELECT statement. A nil Where
// selects all rows; a zero Limit means no LIMIT clause.
type SelectPayload struct {
	Columns []string       `json:"columns,omitempty"`
	Where   map[string]any `json:"where,omitempty"`
	OrderBy string         `json:"order_by,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

// InsertPayload carries the column/value map for an INSERT.
type InsertPayload struct {
	Values map[string]any `json:"values"`
}

// UpdatePayload carries SET values and WHERE conditions for an UPDATE.
type UpdatePayload struct {
	Values map[string]any `json:"values"`
	Where  map[string]any `json:"where"`
}

// DeletePayload carries WHERE conditions for a DELETE.
type DeletePayload struct {
	Where map[string]any `json:"where"`
}

// SQLPayload carries a raw statement with positional parameters.
type SQLPayload struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// TransactionPayload carries an ordered list of sub-operations that
// execute as a single atomic unit.
type TransactionPayload struct {
	Operations []TxOperation `json:"operations"`
}

func (SelectPayload) isPayload()      {}
func (InsertPayload) isPayload()      {}
func (UpdatePayload) isPayload()      {}
func (DeletePayload) isPayload()      {}
func (SQLPayload) isPayload()         {}
func (TransactionPayload) isPayload() {}

// DecodePayload parses raw request data into the typed payload for op.
// It validates presence of required fields so that code past the
// boundary never needs to re-check shape:
//
//   - INSERT requires a non-empty values map
//   - UPDATE requires non-empty values and where maps
//   - DELETE requires a non-empty where map
//   - SQL requires a non-empty statement
//   - TRANSACTION requires a non-empty operations list whose entries
//     are SELECT/INSERT/UPDATE/DELETE with a table and data
//
// The empty-WHERE guard on UPDATE/DELETE is deliberate: a request that
// omitted its conditions would otherwise match every row.
func DecodePayload(op Operation, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch op {
	case OpSelect:
		var p SelectPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode SELECT payload: %w", err)
		}
		return p, nil

	case OpInsert:
		var p InsertPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode INSERT payload: %w", err)
		}
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("INSERT requires a non-empty values map")
		}
		return p, nil

	case OpUpdate:
		var p UpdatePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode UPDATE payload: %w", err)
		}
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("UPDATE requires a non-empty values map")
		}
		if len(p.Where) == 0 {
			return nil, fmt.Errorf("UPDATE requires a non-empty where map")
		}
		return p, nil

	case OpDelete:
		var p DeletePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode DELETE payload: %w", err)
		}
		if len(p.Where) == 0 {
			return nil, fmt.Errorf("DELETE requires a non-empty where map")
		}
		return p, nil

	case OpSQL:
		var p SQLPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode SQL payload: %w", err)
		}
		if p.SQL == "" {
			return nil, fmt.Errorf("SQL requires a non-empty sql statement")
		}
		return p, nil

	case OpTransaction:
		var p TransactionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode TRANSACTION payload: %w", err)
		}
		if len(p.Operations) == 0 {
			return nil, fmt.Errorf("TRANSACTION requires a non-empty operations list")
		}
		for i, sub := range p.Operations {
			if err := validateTxOperation(sub); err != nil {
				return nil, fmt.Errorf("operation %d: %w", i+1, err)
			}
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported operation type: %q", op)
	}
}

// validateTxOperation checks the shape of a transaction sub-operation.
// Nested payload content is validated later, when the sub-operation's
// own payload is decoded.
func validateTxOperation(sub TxOperation) error {
	switch sub.Type {
	case OpSelect, OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("unsupported operation type in transaction: %q", sub.Type)
	}
	if sub.Table == "" {
		return fmt.Errorf("missing table")
	}
	if len(sub.Data) == 0 {
		return fmt.Errorf("missing data")
	}
	return nil
}

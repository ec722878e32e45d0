package engine

import (
	"context"
	"fmt"

	"github.com/syncsys/syncsys/internal/wire"
)

// executeTransaction runs an ordered list of sub-operations as one
// atomic unit. Sub-operations execute strictly in the order given,
// each through the same per-type executor the standalone operations
// use, against the open transaction.
//
// On any failure the transaction is rolled back and a single aggregate
// error names the step that failed and why. No partial commit is ever
// visible. The rollback's own error is swallowed: the underlying
// engine may already have rolled the transaction back.
func (e *Engine) executeTransaction(ctx context.Context, req *wire.Request, p wire.TransactionPayload) (map[string]any, error) {
	tx, err := e.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, newExecutionError(req.RequestID, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	results := make([]map[string]any, 0, len(p.Operations))
	var totalAffected int64

	for i, sub := range p.Operations {
		step := i + 1
		// Synthetic sub-request ID, used only in logs.
		subID := fmt.Sprintf("%s_op_%d", req.RequestID, step)
		e.logger.Debug("transaction sub-operation",
			"sub_request_id", subID,
			"type", sub.Type,
			"table", sub.Table,
		)

		payload, err := wire.DecodePayload(sub.Type, sub.Data)
		if err != nil {
			return nil, newTransactionError(req.RequestID, step, err)
		}

		var result any
		switch sp := payload.(type) {
		case wire.SelectPayload:
			result, err = executeSelect(ctx, tx, sub.Table, sp)
		case wire.InsertPayload:
			result, err = executeInsert(ctx, tx, sub.Table, sp)
		case wire.UpdatePayload:
			result, err = executeUpdate(ctx, tx, sub.Table, sp)
		case wire.DeletePayload:
			result, err = executeDelete(ctx, tx, sub.Table, sp)
		default:
			err = fmt.Errorf("unsupported operation type in transaction: %q", sub.Type)
		}
		if err != nil {
			return nil, newTransactionError(req.RequestID, step, err)
		}

		if m, ok := result.(map[string]any); ok {
			if n, ok := m["rows_affected"].(int64); ok {
				totalAffected += n
			}
		}

		results = append(results, map[string]any{
			"operation_index": step,
			"type":            sub.Type,
			"table":           sub.Table,
			"result":          result,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, newTransactionError(req.RequestID, len(p.Operations), fmt.Errorf("commit: %w", err))
	}
	committed = true

	return map[string]any{
		"transaction_success": true,
		"operations_count":    len(p.Operations),
		"total_affected_rows": totalAffected,
		"results":             results,
	}, nil
}

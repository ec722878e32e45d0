package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syncsys/syncsys/internal/store"
	"github.com/syncsys/syncsys/internal/wire"
)

// Engine executes decoded requests against the database.
type Engine struct {
	store  *store.Store
	logger *slog.Logger

	// mu serializes all database access. SQLite is single-writer and
	// two concurrent TRANSACTIONs must never interleave their
	// BEGIN/COMMIT windows.
	mu sync.Mutex
}

// New creates an engine over an open store.
func New(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  st,
		logger: logger.With("component", "engine"),
	}
}

// Execute runs one request and returns a structured result. It never
// returns an error and never panics across its boundary; all failures
// come back as a Result with status ERROR.
//
// The outcome, success or failure, is appended to the operation log
// keyed by request_id before Execute returns.
func (e *Engine) Execute(ctx context.Context, req *wire.Request) (result *wire.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during execution", "request_id", req.RequestID, "panic", r)
			result = errorResult(fmt.Sprintf("internal error: %v", r))
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.execute(ctx, req)

	entry := store.LogEntry{
		RequestID: req.RequestID,
		ClientID:  req.ClientID,
		Operation: string(req.Operation),
		Table:     req.Table,
		Timestamp: req.Timestamp,
		Status:    string(wire.StatusSuccess),
	}
	if err != nil {
		entry.Status = string(wire.StatusError)
		entry.ErrorMessage = err.Error()
	}
	if logErr := e.store.RecordOperation(ctx, entry); logErr != nil {
		// The operation itself already committed or failed; a log
		// write failure must not change the outcome the client sees.
		e.logger.Warn("operation log write failed", "request_id", req.RequestID, "error", logErr)
	}

	if err != nil {
		e.logger.Info("request failed", "request_id", req.RequestID, "operation", req.Operation, "error", err)
		return errorResult(err.Error())
	}

	e.logger.Debug("request executed", "request_id", req.RequestID, "operation", req.Operation)
	return &wire.Result{
		Status:    wire.StatusSuccess,
		Data:      data,
		Timestamp: wire.Now(),
	}
}

// execute decodes the payload and dispatches to the per-operation
// executor. All returned errors are *Error values.
func (e *Engine) execute(ctx context.Context, req *wire.Request) (any, error) {
	payload, err := wire.DecodePayload(req.Operation, req.Data)
	if err != nil {
		return nil, classifyDecodeError(req.RequestID, err)
	}

	db := e.store.DB()

	var data any
	switch p := payload.(type) {
	case wire.SelectPayload:
		data, err = executeSelect(ctx, db, req.Table, p)
	case wire.InsertPayload:
		data, err = executeInsert(ctx, db, req.Table, p)
	case wire.UpdatePayload:
		data, err = executeUpdate(ctx, db, req.Table, p)
	case wire.DeletePayload:
		data, err = executeDelete(ctx, db, req.Table, p)
	case wire.SQLPayload:
		data, err = executeSQL(ctx, db, p)
	case wire.TransactionPayload:
		return e.executeTransaction(ctx, req, p)
	default:
		return nil, newValidationError(req.RequestID, "unsupported operation type: %q", req.Operation)
	}
	if err != nil {
		return nil, newExecutionError(req.RequestID, err)
	}
	return data, nil
}

// classifyDecodeError maps payload decode failures onto the taxonomy:
// JSON-level failures are parse errors, shape failures are validation
// errors.
func classifyDecodeError(requestID string, err error) *Error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Code: CodeParse, Message: err.Error(), RequestID: requestID, Err: err}
	}
	return &Error{Code: CodeValidation, Message: err.Error(), RequestID: requestID, Err: err}
}

func errorResult(msg string) *wire.Result {
	return &wire.Result{
		Status:    wire.StatusError,
		Error:     msg,
		Timestamp: wire.Now(),
	}
}

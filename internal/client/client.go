package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syncsys/syncsys/internal/config"
	"github.com/syncsys/syncsys/internal/watcher"
	"github.com/syncsys/syncsys/internal/wire"
)

// Rows is an ordered list of column→value maps, as returned by SELECT
// and raw SQL queries.
type Rows []map[string]any

// ExecResult reports the outcome of an INSERT.
type ExecResult struct {
	InsertedID   int64
	RowsAffected int64
}

// TxResult reports the outcome of a committed TRANSACTION.
type TxResult struct {
	OperationsCount   int
	TotalAffectedRows int64
	Results           []map[string]any
}

// Client issues requests through the shared folder and correlates the
// responses back to callers. Safe for concurrent use.
type Client struct {
	cfg      *config.Config
	clientID string
	requests string
	logger   *slog.Logger

	watcher *watcher.Watcher

	mu      sync.Mutex
	pending map[string]chan *wire.Response
	started bool
	closed  bool
}

// New creates a client with a generated client ID.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return NewWithID(cfg, wire.NewClientID(), logger)
}

// NewWithID creates a client with an explicit client ID. The ID must
// be stable per client process and must not contain an underscore.
func NewWithID(cfg *config.Config, clientID string, logger *slog.Logger) (*Client, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID must not be empty")
	}
	if strings.Contains(clientID, "_") {
		return nil, fmt.Errorf("client ID %q must not contain an underscore", clientID)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.SharedFolder.Requests, 0o755); err != nil {
		return nil, fmt.Errorf("create requests folder: %w", err)
	}

	w, err := watcher.New(cfg.SharedFolder.Responses, watcher.Options{
		PollInterval: cfg.Client.PollInterval.Std(),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:      cfg,
		clientID: clientID,
		requests: cfg.SharedFolder.Requests,
		logger:   logger.With("component", "client", "client_id", clientID),
		watcher:  w,
		pending:  make(map[string]chan *wire.Response),
	}, nil
}

// ClientID returns the client's stable identifier.
func (c *Client) ClientID() string {
	return c.clientID
}

// Close stops the response watcher and waits for in-flight response
// handling to finish. Outstanding calls receive timeouts.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	if started {
		c.watcher.Stop()
	}
}

// Select queries rows from a table. The query's WHERE values are bound
// as parameters on the processor side.
func (c *Client) Select(table string, q wire.SelectPayload) (Rows, error) {
	result, err := c.do(wire.OpSelect, table, q)
	if err != nil {
		return nil, err
	}
	return toRows(result.Data)
}

// Insert adds one row and returns its engine-assigned identifier.
func (c *Client) Insert(table string, values map[string]any) (*ExecResult, error) {
	result, err := c.do(wire.OpInsert, table, wire.InsertPayload{Values: values})
	if err != nil {
		return nil, err
	}
	m, err := toMap(result.Data)
	if err != nil {
		return nil, err
	}
	return &ExecResult{
		InsertedID:   intField(m, "inserted_id"),
		RowsAffected: intField(m, "rows_affected"),
	}, nil
}

// Update modifies matching rows and returns the affected-row count.
// Matching zero rows is a success with a zero count.
func (c *Client) Update(table string, values, where map[string]any) (int64, error) {
	result, err := c.do(wire.OpUpdate, table, wire.UpdatePayload{Values: values, Where: where})
	if err != nil {
		return 0, err
	}
	m, err := toMap(result.Data)
	if err != nil {
		return 0, err
	}
	return intField(m, "rows_affected"), nil
}

// Delete removes matching rows and returns the affected-row count.
func (c *Client) Delete(table string, where map[string]any) (int64, error) {
	result, err := c.do(wire.OpDelete, table, wire.DeletePayload{Where: where})
	if err != nil {
		return 0, err
	}
	m, err := toMap(result.Data)
	if err != nil {
		return 0, err
	}
	return intField(m, "rows_affected"), nil
}

// ExecSQL runs a raw statement with positional parameters. SELECT
// statements return Rows; anything else returns a map with
// rows_affected and lastrowid.
func (c *Client) ExecSQL(stmt string, params ...any) (any, error) {
	result, err := c.do(wire.OpSQL, "", wire.SQLPayload{SQL: stmt, Params: params})
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Transaction executes an ordered list of sub-operations atomically.
func (c *Client) Transaction(ops []wire.TxOperation) (*TxResult, error) {
	result, err := c.do(wire.OpTransaction, "", wire.TransactionPayload{Operations: ops})
	if err != nil {
		return nil, err
	}
	return toTxResult(result.Data)
}

// TransactionWithID executes a transaction under a caller-chosen
// request ID (batch-import tooling stamps its own IDs). No retry: the
// processor refuses a request_id it has already logged, so a second
// attempt with the same ID could never succeed.
func (c *Client) TransactionWithID(requestID string, ops []wire.TxOperation) (*TxResult, error) {
	payload := wire.TransactionPayload{Operations: ops}
	result, err := c.call(wire.OpTransaction, "", payload, requestID)
	if err != nil {
		return nil, err
	}
	return toTxResult(result.Data)
}

// FindOne returns the first matching row, or nil if none match.
func (c *Client) FindOne(table string, where map[string]any, orderBy string) (map[string]any, error) {
	rows, err := c.Select(table, wire.SelectPayload{Where: where, OrderBy: orderBy, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FindAll returns every matching row.
func (c *Client) FindAll(table string, where map[string]any) (Rows, error) {
	return c.Select(table, wire.SelectPayload{Where: where})
}

// Count returns the number of matching rows.
func (c *Client) Count(table string, where map[string]any) (int64, error) {
	rows, err := c.FindAll(table, where)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Exists reports whether any row matches.
func (c *Client) Exists(table string, where map[string]any) (bool, error) {
	row, err := c.FindOne(table, where, "")
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

// do runs one operation with the configured retry policy. Each attempt
// sends a fresh request_id; a failed attempt (timeout or remote error)
// is retried after the fixed delay.
func (c *Client) do(op wire.Operation, table string, payload any) (*wire.Result, error) {
	attempts := c.cfg.Client.RetryAttempts
	var last error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.call(op, table, payload, wire.NewRequestID())
		if err == nil {
			return result, nil
		}
		last = err

		if attempt < attempts {
			c.logger.Debug("attempt failed, retrying",
				"operation", op, "attempt", attempt, "error", err)
			time.Sleep(c.cfg.Client.RetryDelay.Std())
		}
	}

	return nil, &RetryError{Attempts: attempts, Last: last}
}

// call performs a single request/response exchange. The pending entry
// is registered before the request file is written, eliminating the
// race where the response lands before the wait begins.
func (c *Client) call(op wire.Operation, table string, payload any, requestID string) (*wire.Result, error) {
	if err := c.ensureWatcher(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req := &wire.Request{
		RequestID: requestID,
		ClientID:  c.clientID,
		Operation: op,
		Table:     table,
		Data:      data,
		Timestamp: wire.Now(),
	}

	ch := c.register(requestID)
	defer c.unregister(requestID)

	if err := c.writeRequest(req); err != nil {
		return nil, err
	}

	timeout := c.cfg.Client.RequestTimeout.Std()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Result.Status != wire.StatusSuccess {
			return nil, &RemoteError{RequestID: requestID, Message: resp.Result.Error}
		}
		return &resp.Result, nil
	case <-timer.C:
		return nil, &TimeoutError{RequestID: requestID, Timeout: timeout}
	}
}

// ensureWatcher lazily starts the response watcher on first use, so a
// client that only builds requests never spins one up.
func (c *Client) ensureWatcher() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client is closed")
	}
	if c.started {
		return nil
	}
	if err := c.watcher.Start(c.onResponseFile); err != nil {
		return err
	}
	c.started = true
	return nil
}

func (c *Client) register(requestID string) chan *wire.Response {
	ch := make(chan *wire.Response, 1)
	c.mu.Lock()
	c.pending[requestID] = ch
	c.mu.Unlock()
	return ch
}

func (c *Client) unregister(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

// onResponseFile handles a detected response file. Files addressed to
// other clients are left alone; files addressed to this client are
// always deleted, pending waiter or not, so late responses to
// timed-out calls do not accumulate.
func (c *Client) onResponseFile(path string) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, c.clientID+"_") {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Error("read response file", "file", name, "error", err)
		return
	}

	resp, err := wire.DecodeResponse(data)
	if err != nil {
		// Malformed but addressed to us; keep it for inspection.
		c.logger.Error("malformed response file", "file", name, "error", err)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	c.mu.Unlock()

	if ok {
		// Buffered channel: delivery never blocks, and a duplicate
		// delivery for the same ID is simply dropped.
		select {
		case ch <- resp:
		default:
		}
	} else {
		c.logger.Debug("response with no pending call", "request_id", resp.RequestID)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Error("delete response file", "file", name, "error", err)
	}
}

// writeRequest publishes the request file, preferring temp-write plus
// rename and falling back to a direct write; the processor's
// completion check covers the non-atomic case.
func (c *Client) writeRequest(req *wire.Request) error {
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return err
	}

	target := filepath.Join(c.requests, wire.FileName(req.ClientID, req.RequestID))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err == nil {
		if err := os.Rename(tmp, target); err == nil {
			return nil
		}
		_ = os.Remove(tmp)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write request file: %w", err)
	}
	return nil
}

// toRows converts decoded JSON result data into Rows.
func toRows(data any) (Rows, error) {
	if data == nil {
		return Rows{}, nil
	}
	list, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result shape %T, want row list", data)
	}
	rows := make(Rows, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row shape %T at index %d", item, i)
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func toMap(data any) (map[string]any, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result shape %T, want object", data)
	}
	return m, nil
}

func toTxResult(data any) (*TxResult, error) {
	m, err := toMap(data)
	if err != nil {
		return nil, err
	}

	out := &TxResult{
		OperationsCount:   int(intField(m, "operations_count")),
		TotalAffectedRows: intField(m, "total_affected_rows"),
	}
	if list, ok := m["results"].([]any); ok {
		for _, item := range list {
			if rm, ok := item.(map[string]any); ok {
				out.Results = append(out.Results, rm)
			}
		}
	}
	return out, nil
}

// intField reads a numeric field that arrives as float64 after the
// JSON round trip (or as int64 when no round trip happened).
func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

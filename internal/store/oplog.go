package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LogEntry is one operation-log row.
type LogEntry struct {
	RequestID    string
	ClientID     string
	Operation    string
	Table        string
	Timestamp    float64
	Status       string
	ErrorMessage string
}

// RecordOperation appends a request outcome to the operation log.
// Uses INSERT OR REPLACE keyed by request_id: a duplicate request_id
// overwrites its own prior row rather than producing a second one.
func (s *Store) RecordOperation(ctx context.Context, entry LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_log
		(request_id, client_id, operation, table_name, timestamp, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RequestID,
		entry.ClientID,
		entry.Operation,
		entry.Table,
		entry.Timestamp,
		entry.Status,
		nullable(entry.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("record operation %s: %w", entry.RequestID, err)
	}
	return nil
}

// SeenRequest reports whether a request_id already has an operation-log
// row. The processor consults this before executing a file detected
// after a restart, so a request that was executed but whose file
// survived a crash is refused instead of re-run.
func (s *Store) SeenRequest(ctx context.Context, requestID string) (bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM sync_log WHERE request_id = ?", requestID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup request %s: %w", requestID, err)
	}
	return true, nil
}

// LookupOperation returns the logged entry for a request_id, or nil if
// the request was never logged.
func (s *Store) LookupOperation(ctx context.Context, requestID string) (*LogEntry, error) {
	var entry LogEntry
	var errMsg sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT request_id, client_id, operation, table_name, timestamp, status, error_message
		FROM sync_log WHERE request_id = ?
	`, requestID).Scan(
		&entry.RequestID,
		&entry.ClientID,
		&entry.Operation,
		&entry.Table,
		&entry.Timestamp,
		&entry.Status,
		&errMsg,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup operation %s: %w", requestID, err)
	}
	entry.ErrorMessage = errMsg.String
	return &entry, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/syncsys/syncsys/internal/wire"
)

// dbtx is the subset of *sql.DB and *sql.Tx the per-operation
// executors need. Transactions reuse the exact same builders by
// passing the open *sql.Tx here.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// sortedKeys returns map keys in a deterministic order so that built
// statements (and their bound parameter order) are stable.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// whereClause builds " WHERE k = ? AND ..." from a condition map.
// Returns the clause and the bound parameters; empty input yields an
// empty clause.
func whereClause(where map[string]any) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}
	keys := sortedKeys(where)
	conds := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, k := range keys {
		conds[i] = k + " = ?"
		params[i] = where[k]
	}
	return " WHERE " + strings.Join(conds, " AND "), params
}

func executeSelect(ctx context.Context, q dbtx, table string, p wire.SelectPayload) ([]map[string]any, error) {
	columns := "*"
	if len(p.Columns) > 0 {
		columns = strings.Join(p.Columns, ", ")
	}

	where, params := whereClause(p.Where)

	stmt := fmt.Sprintf("SELECT %s FROM %s%s", columns, table, where)
	if p.OrderBy != "" {
		stmt += " ORDER BY " + p.OrderBy
	}
	if p.Limit > 0 {
		stmt += " LIMIT ?"
		params = append(params, p.Limit)
	}

	rows, err := q.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

func executeInsert(ctx context.Context, q dbtx, table string, p wire.InsertPayload) (map[string]any, error) {
	keys := sortedKeys(p.Values)
	placeholders := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		params[i] = p.Values[k]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(keys, ", "), strings.Join(placeholders, ", "))

	res, err := q.ExecContext(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"inserted_id":   id,
		"rows_affected": affected,
	}, nil
}

func executeUpdate(ctx context.Context, q dbtx, table string, p wire.UpdatePayload) (map[string]any, error) {
	setKeys := sortedKeys(p.Values)
	sets := make([]string, len(setKeys))
	params := make([]any, 0, len(setKeys)+len(p.Where))
	for i, k := range setKeys {
		sets[i] = k + " = ?"
		params = append(params, p.Values[k])
	}

	where, whereParams := whereClause(p.Where)
	params = append(params, whereParams...)

	stmt := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)

	res, err := q.ExecContext(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	// Matching zero rows is a success, never an error.
	return map[string]any{"rows_affected": affected}, nil
}

func executeDelete(ctx context.Context, q dbtx, table string, p wire.DeletePayload) (map[string]any, error) {
	where, params := whereClause(p.Where)

	stmt := fmt.Sprintf("DELETE FROM %s%s", table, where)

	res, err := q.ExecContext(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	return map[string]any{"rows_affected": affected}, nil
}

// executeSQL runs a caller-supplied statement with positional
// parameters. A statement whose trimmed text begins with SELECT
// (case-insensitive) returns rows; anything else returns counts.
func executeSQL(ctx context.Context, q dbtx, p wire.SQLPayload) (any, error) {
	if isSelect(p.SQL) {
		rows, err := q.QueryContext(ctx, p.SQL, p.Params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRows(rows)
	}

	res, err := q.ExecContext(ctx, p.SQL, p.Params...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"rows_affected": affected,
		"lastrowid":     lastID,
	}, nil
}

func isSelect(stmt string) bool {
	trimmed := strings.TrimSpace(stmt)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "SELECT")
}

// scanRows converts a result set into an ordered list of column→value
// maps. SQLite hands text back as []byte; those are converted to
// string so the maps serialize as JSON strings.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, 8)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

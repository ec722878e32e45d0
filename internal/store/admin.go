package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TableDef describes one table in a schema file.
type TableDef struct {
	Columns    map[string]string `json:"columns"`
	PrimaryKey string            `json:"primary_key,omitempty"`
	Indexes    []string          `json:"indexes,omitempty"`
}

// SchemaFile is the JSON document accepted by CreateTablesFromSchemaFile.
type SchemaFile struct {
	Tables map[string]TableDef `json:"tables"`
}

// CreateTable creates a table if it does not exist, with optional
// primary key and single-column indexes. Column order in the CREATE
// statement is alphabetical; it is cosmetic only.
func (s *Store) CreateTable(ctx context.Context, name string, def TableDef) error {
	if len(def.Columns) == 0 {
		return fmt.Errorf("create table %s: no columns", name)
	}

	cols := make([]string, 0, len(def.Columns))
	for col := range def.Columns {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		d := quoteIdent(col) + " " + def.Columns[col]
		if col == def.PrimaryKey {
			d += " PRIMARY KEY"
		}
		defs = append(defs, d)
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(name), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	for _, col := range def.Indexes {
		if _, ok := def.Columns[col]; !ok {
			continue
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(fmt.Sprintf("idx_%s_%s", name, col)),
			quoteIdent(name), quoteIdent(col))
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", name, col, err)
		}
	}

	return nil
}

// CreateTablesFromSchemaFile creates every table described in a JSON
// schema file. Idempotent: existing tables are left untouched.
func (s *Store) CreateTablesFromSchemaFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}

	var schema SchemaFile
	if err := json.Unmarshal(data, &schema); err != nil {
		return fmt.Errorf("parse schema file %s: %w", path, err)
	}

	names := make([]string, 0, len(schema.Tables))
	for name := range schema.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.CreateTable(ctx, name, schema.Tables[name]); err != nil {
			return err
		}
	}
	return nil
}

// Backup writes a consistent snapshot of the live database into dir
// using VACUUM INTO and returns the backup file path. An empty name
// gets a timestamped default.
func (s *Store) Backup(ctx context.Context, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	if name == "" {
		name = fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405"))
	}

	target := filepath.Join(dir, name)
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", target); err != nil {
		return "", fmt.Errorf("backup database: %w", err)
	}
	return target, nil
}

// RestoreDatabase copies a backup file over dbPath. The store owning
// dbPath must be closed before calling this.
func RestoreDatabase(dbPath, backupFile string) error {
	src, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dbPath)
	if err != nil {
		return fmt.Errorf("open database for restore: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("restore database: %w", err)
	}
	return dst.Close()
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	Default    any    `json:"default"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableInfo describes a table's columns, indexes and row count.
type TableInfo struct {
	Columns  []ColumnInfo `json:"columns"`
	Indexes  []string     `json:"indexes"`
	RowCount int64        `json:"row_count"`
}

// Info returns structure and row count for one table.
func (s *Store) Info(ctx context.Context, table string) (*TableInfo, error) {
	info := &TableInfo{Indexes: []string{}}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			col     ColumnInfo
			notNull int
			pk      int
			dflt    any
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		col.Default = dflt
		info.Columns = append(info.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	if len(info.Columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}

	idxRows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("index list %s: %w", table, err)
	}
	defer idxRows.Close()

	for idxRows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := idxRows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, fmt.Errorf("index list %s: %w", table, err)
		}
		info.Indexes = append(info.Indexes, name)
	}
	if err := idxRows.Err(); err != nil {
		return nil, fmt.Errorf("index list %s: %w", table, err)
	}

	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table)),
	).Scan(&info.RowCount); err != nil {
		return nil, fmt.Errorf("row count %s: %w", table, err)
	}

	return info, nil
}

// ListTables returns the user tables in the database, sorted.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DatabaseStats summarizes database size and per-table row counts.
type DatabaseStats struct {
	Tables       map[string]int64 `json:"tables"`
	PageCount    int64            `json:"page_count"`
	PageSize     int64            `json:"page_size"`
	DatabaseSize int64            `json:"database_size"`
	FileSize     int64            `json:"file_size"`
}

// Stats collects row counts for every user table plus page and file
// size information.
func (s *Store) Stats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{Tables: make(map[string]int64)}

	tables, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		var count int64
		if err := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table)),
		).Scan(&count); err != nil {
			return nil, fmt.Errorf("row count %s: %w", table, err)
		}
		stats.Tables[table] = count
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("page size: %w", err)
	}
	stats.DatabaseSize = stats.PageCount * stats.PageSize

	if info, err := os.Stat(s.path); err == nil {
		stats.FileSize = info.Size()
	}

	return stats, nil
}

// CheckIntegrity runs PRAGMA integrity_check and reports whether the
// database passes.
func (s *Store) CheckIntegrity(ctx context.Context) (bool, error) {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return false, fmt.Errorf("integrity check: %w", err)
	}
	return result == "ok", nil
}

// Vacuum compacts the database file.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

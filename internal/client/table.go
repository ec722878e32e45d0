package client

import "github.com/syncsys/syncsys/internal/wire"

// Table binds a client to a single table so call sites read like ORM
// accessors instead of repeating the table name.
type Table struct {
	c    *Client
	name string
}

// Table returns a table-scoped view of the client.
func (c *Client) Table(name string) *Table {
	return &Table{c: c, name: name}
}

// Name returns the bound table name.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) Select(q wire.SelectPayload) (Rows, error) {
	return t.c.Select(t.name, q)
}

func (t *Table) Insert(values map[string]any) (*ExecResult, error) {
	return t.c.Insert(t.name, values)
}

func (t *Table) Update(values, where map[string]any) (int64, error) {
	return t.c.Update(t.name, values, where)
}

func (t *Table) Delete(where map[string]any) (int64, error) {
	return t.c.Delete(t.name, where)
}

func (t *Table) FindOne(where map[string]any, orderBy string) (map[string]any, error) {
	return t.c.FindOne(t.name, where, orderBy)
}

func (t *Table) FindAll(where map[string]any) (Rows, error) {
	return t.c.FindAll(t.name, where)
}

func (t *Table) Count(where map[string]any) (int64, error) {
	return t.c.Count(t.name, where)
}

func (t *Table) Exists(where map[string]any) (bool, error) {
	return t.c.Exists(t.name, where)
}

// Database groups table handles over one client, caching them so
// repeated lookups return the same *Table.
type Database struct {
	c      *Client
	tables map[string]*Table
}

// Database returns a table-handle cache over the client.
func (c *Client) Database() *Database {
	return &Database{c: c, tables: make(map[string]*Table)}
}

// Table returns the cached handle for name, creating it on first use.
// Not safe for concurrent use; share the underlying Client instead.
func (d *Database) Table(name string) *Table {
	t, ok := d.tables[name]
	if !ok {
		t = d.c.Table(name)
		d.tables[name] = t
	}
	return t
}

// Package databasetest provides an in-memory database.Conn that models
// tables, rows and foreign key enforcement closely enough to exercise the
// catalog reader, the migration runner and the teardown engine.
package databasetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samson-dev/samson-db/database"
)

// FK is a single-column foreign key owned by a table.
type FK struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
}

type table struct {
	name string
	fks  []FK
	rows []map[string]any
}

// Query is a recorded read.
type Query struct {
	SQL  string
	Args []any
}

// Conn is the fake connection. The zero value is not usable; call New.
type Conn struct {
	mu sync.Mutex

	dialect database.Dialect
	schema  string
	tables  map[string]*table

	execFailures    map[string]error
	catalogFailures map[string]error

	// OnQueryMaps answers QueryMaps calls. When nil QueryMaps fails.
	OnQueryMaps func(sql string, args []any) ([]map[string]any, error)
	// PingErr is returned by Ping.
	PingErr error

	statements []string
	queries    []Query
	closed     bool
}

var _ database.Conn = (*Conn)(nil)

// New returns an empty postgres-flavored fake for schema.
func New(schema string) *Conn {
	return NewWithDialect(schema, database.Postgres)
}

// NewWithDialect returns an empty fake rendering SQL with d.
func NewWithDialect(schema string, d database.Dialect) *Conn {
	return &Conn{
		dialect:         d,
		schema:          schema,
		tables:          map[string]*table{},
		execFailures:    map[string]error{},
		catalogFailures: map[string]error{},
	}
}

// AddTable creates a table owning the given foreign keys.
func (c *Conn) AddTable(name string, fks ...FK) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = &table{name: name, fks: append([]FK(nil), fks...)}
	return c
}

// AddForeignKey attaches fk to an existing table.
func (c *Conn) AddForeignKey(tableName string, fk FK) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.mustTable(tableName)
	t.fks = append(t.fks, fk)
	return c
}

// Insert appends a row to a table.
func (c *Conn) Insert(tableName string, row map[string]any) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.mustTable(tableName)
	t.rows = append(t.rows, row)
	return c
}

// FailExec makes the exact statement sql fail with err.
func (c *Conn) FailExec(sql string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execFailures[sql] = err
}

// FailCatalog makes catalog reads for tableName fail. An empty name fails
// the table listing itself.
func (c *Conn) FailCatalog(tableName string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogFailures[tableName] = err
}

// Tables returns the names of the remaining tables, sorted.
func (c *Conn) Tables() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tableNames()
}

// ForeignKeys returns the constraint names a table still owns.
func (c *Conn) ForeignKeys(tableName string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(t.fks))
	for _, fk := range t.fks {
		names = append(names, fk.Name)
	}
	return names
}

// RowCount returns the number of rows in a table, or -1 if it is gone.
func (c *Conn) RowCount(tableName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableName]
	if !ok {
		return -1
	}
	return len(t.rows)
}

// Statements returns every statement passed to Exec, in order, including
// failed ones.
func (c *Conn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// Queries returns every read, in order.
func (c *Conn) Queries() []Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Query(nil), c.queries...)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Dialect() database.Dialect { return c.dialect }

func (c *Conn) Exec(_ context.Context, sql string, _ ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statements = append(c.statements, sql)

	if err, ok := c.execFailures[sql]; ok {
		return &database.StatementError{SQL: sql, Err: err}
	}

	d := c.dialect
	for _, name := range c.tableNames() {
		t := c.tables[name]
		switch sql {
		case d.DeleteRows(c.schema, name):
			if ref := c.referencingRows(name); ref != "" {
				return c.violation(sql, "23503", fmt.Sprintf("update or delete on table %q violates foreign key constraint on table %q", name, ref))
			}
			t.rows = nil
			return nil
		case d.DropTable(c.schema, name):
			if ref := c.referencingTable(name); ref != "" {
				return c.violation(sql, "2BP01", fmt.Sprintf("cannot drop table %s because other objects depend on it", name))
			}
			delete(c.tables, name)
			return nil
		}
		for i, fk := range t.fks {
			if sql == d.DropConstraint(c.schema, name, fk.Name) {
				t.fks = append(t.fks[:i:i], t.fks[i+1:]...)
				return nil
			}
		}
	}

	// Anything else is accepted and only recorded.
	return nil
}

func (c *Conn) QueryText(_ context.Context, sql string, args ...any) ([][]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries = append(c.queries, Query{SQL: sql, Args: args})

	d := c.dialect
	switch sql {
	case d.TablesQuery():
		if err := c.catalogFailures[""]; err != nil {
			return nil, &database.StatementError{SQL: sql, Err: err}
		}
		if !c.schemaMatches(args) {
			return nil, nil
		}
		var rows [][]string
		for _, name := range c.tableNames() {
			rows = append(rows, []string{name})
		}
		return rows, nil

	case d.ForeignKeysQuery():
		t, err := c.catalogTable(sql, args)
		if err != nil || t == nil {
			return nil, err
		}
		seen := map[string]bool{}
		var names []string
		for _, fk := range t.fks {
			if !seen[fk.Name] {
				seen[fk.Name] = true
				names = append(names, fk.Name)
			}
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, n := range names {
			rows = append(rows, []string{n})
		}
		return rows, nil

	case d.ReferencesQuery():
		t, err := c.catalogTable(sql, args)
		if err != nil || t == nil {
			return nil, err
		}
		fks := append([]FK(nil), t.fks...)
		sort.SliceStable(fks, func(i, j int) bool { return fks[i].Name < fks[j].Name })
		rows := make([][]string, 0, len(fks))
		for _, fk := range fks {
			rows = append(rows, []string{fk.Name, fk.Column, fk.RefTable, fk.RefColumn})
		}
		return rows, nil
	}

	return nil, &database.StatementError{SQL: sql, Err: errors.New("databasetest: unexpected query")}
}

func (c *Conn) QueryMaps(_ context.Context, sql string, args ...any) ([]map[string]any, error) {
	c.mu.Lock()
	c.queries = append(c.queries, Query{SQL: sql, Args: args})
	handler := c.OnQueryMaps
	c.mu.Unlock()

	if handler == nil {
		return nil, &database.StatementError{SQL: sql, Err: errors.New("databasetest: unexpected query")}
	}
	return handler(sql, args)
}

func (c *Conn) Ping(context.Context) error { return c.PingErr }

func (c *Conn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Conn) mustTable(name string) *table {
	t, ok := c.tables[name]
	if !ok {
		panic(fmt.Sprintf("databasetest: no table %q", name))
	}
	return t
}

func (c *Conn) tableNames() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Conn) schemaMatches(args []any) bool {
	return len(args) > 0 && args[0] == c.schema
}

func (c *Conn) catalogTable(sql string, args []any) (*table, error) {
	if len(args) != 2 {
		return nil, &database.StatementError{SQL: sql, Err: fmt.Errorf("databasetest: want 2 args, got %d", len(args))}
	}
	name, _ := args[1].(string)
	if err := c.catalogFailures[name]; err != nil {
		return nil, &database.StatementError{SQL: sql, Err: err}
	}
	if !c.schemaMatches(args) {
		return nil, nil
	}
	return c.tables[name], nil
}

// referencingRows names another table holding a non-null reference into
// name, or "" when none does. Self references never block a full delete.
func (c *Conn) referencingRows(name string) string {
	for _, other := range c.tableNames() {
		if other == name {
			continue
		}
		t := c.tables[other]
		for _, fk := range t.fks {
			if fk.RefTable != name {
				continue
			}
			for _, row := range t.rows {
				if row[fk.Column] != nil {
					return other
				}
			}
		}
	}
	return ""
}

func (c *Conn) referencingTable(name string) string {
	for _, other := range c.tableNames() {
		if other == name {
			continue
		}
		for _, fk := range c.tables[other].fks {
			if fk.RefTable == name {
				return other
			}
		}
	}
	return ""
}

func (c *Conn) violation(sql, code, msg string) error {
	return &database.StatementError{SQL: sql, Err: &pgconn.PgError{Severity: "ERROR", Code: code, Message: msg}}
}

package introspect

import (
	"context"
	"fmt"

	"github.com/samson-dev/samson-db/database"
)

// TableDescriptor identifies one user base table.
type TableDescriptor struct {
	Schema string `json:"schema" yaml:"schema"`
	Name   string `json:"name" yaml:"name"`
}

func (t TableDescriptor) String() string {
	return t.Schema + "." + t.Name
}

// ForeignKeyDescriptor is one named foreign key constraint owned by Table.
type ForeignKeyDescriptor struct {
	Name  string `json:"name" yaml:"name"`
	Table string `json:"table" yaml:"table"`
}

// Reference is the column-level detail of a foreign key.
type Reference struct {
	Constraint       string `json:"constraint" yaml:"constraint"`
	Table            string `json:"table" yaml:"table"`
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumn string `json:"referenced_column" yaml:"referenced_column"`
}

// CatalogReadError is returned when a catalog query fails. Table is empty
// when the table listing itself failed.
type CatalogReadError struct {
	Table string
	Err   error
}

func (e *CatalogReadError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("read table catalog: %s", database.Diagnostic(e.Err))
	}
	return fmt.Sprintf("read catalog for table %s: %s", e.Table, database.Diagnostic(e.Err))
}

func (e *CatalogReadError) Unwrap() error { return e.Err }

// Catalog reads live schema metadata. Nothing is cached: every call queries
// the database catalog again.
type Catalog struct {
	conn   database.Conn
	schema string
}

func New(conn database.Conn, schema string) *Catalog {
	return &Catalog{conn: conn, schema: schema}
}

func (c *Catalog) Schema() string { return c.schema }

// ListTables returns every user base table in the schema ordered by name.
// Views and system catalogs are excluded.
func (c *Catalog) ListTables(ctx context.Context) ([]TableDescriptor, error) {
	rows, err := c.conn.QueryText(ctx, c.conn.Dialect().TablesQuery(), c.schema)
	if err != nil {
		return nil, &CatalogReadError{Err: err}
	}

	tables := make([]TableDescriptor, 0, len(rows))
	for _, row := range rows {
		if len(row) < 1 {
			return nil, &CatalogReadError{Err: fmt.Errorf("table row has %d columns", len(row))}
		}
		tables = append(tables, TableDescriptor{Schema: c.schema, Name: row[0]})
	}
	return tables, nil
}

// ListForeignKeys returns the distinct foreign key constraint names on
// table. A table without foreign keys yields an empty slice.
func (c *Catalog) ListForeignKeys(ctx context.Context, table string) ([]ForeignKeyDescriptor, error) {
	rows, err := c.conn.QueryText(ctx, c.conn.Dialect().ForeignKeysQuery(), c.schema, table)
	if err != nil {
		return nil, &CatalogReadError{Table: table, Err: err}
	}

	seen := make(map[string]bool, len(rows))
	fks := make([]ForeignKeyDescriptor, 0, len(rows))
	for _, row := range rows {
		if len(row) < 1 {
			return nil, &CatalogReadError{Table: table, Err: fmt.Errorf("constraint row has %d columns", len(row))}
		}
		// composite keys appear once per column in some catalogs
		if seen[row[0]] {
			continue
		}
		seen[row[0]] = true
		fks = append(fks, ForeignKeyDescriptor{Name: row[0], Table: table})
	}
	return fks, nil
}

// ListReferences returns the column-level references of table's foreign keys.
func (c *Catalog) ListReferences(ctx context.Context, table string) ([]Reference, error) {
	rows, err := c.conn.QueryText(ctx, c.conn.Dialect().ReferencesQuery(), c.schema, table)
	if err != nil {
		return nil, &CatalogReadError{Table: table, Err: err}
	}

	refs := make([]Reference, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			return nil, &CatalogReadError{Table: table, Err: fmt.Errorf("reference row has %d columns", len(row))}
		}
		refs = append(refs, Reference{
			Constraint:       row[0],
			Table:            table,
			Column:           row[1],
			ReferencedTable:  row[2],
			ReferencedColumn: row[3],
		})
	}
	return refs, nil
}

// Snapshot is the full foreign key picture of the schema at one instant.
type Snapshot struct {
	Schema      string                            `json:"schema" yaml:"schema"`
	Tables      []TableDescriptor                 `json:"tables" yaml:"tables"`
	ForeignKeys map[string][]ForeignKeyDescriptor `json:"foreign_keys" yaml:"foreign_keys"`
	References  map[string][]Reference            `json:"references" yaml:"references"`
	Cycles      [][]string                        `json:"cycles" yaml:"cycles"`

	// Graph is the reference graph the cycles were computed from.
	Graph *Graph `json:"-" yaml:"-"`
}

// Inspect reads tables, constraints and references in one pass and reports
// any reference cycles among them.
func (c *Catalog) Inspect(ctx context.Context) (*Snapshot, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Schema:      c.schema,
		Tables:      tables,
		ForeignKeys: make(map[string][]ForeignKeyDescriptor, len(tables)),
		References:  make(map[string][]Reference, len(tables)),
	}
	graph := NewGraph()
	for _, t := range tables {
		graph.AddTable(t.Name)

		fks, err := c.ListForeignKeys(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		snap.ForeignKeys[t.Name] = fks

		refs, err := c.ListReferences(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		snap.References[t.Name] = refs
		for _, r := range refs {
			graph.AddEdge(r.Table, r.ReferencedTable)
		}
	}
	snap.Graph = graph
	snap.Cycles = graph.Cycles()
	return snap, nil
}

// Graph builds the reference graph of the schema.
func (c *Catalog) Graph(ctx context.Context) (*Graph, error) {
	snap, err := c.Inspect(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Graph, nil
}

package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samson-dev/samson-db/database"
	"github.com/samson-dev/samson-db/introspect"
)

// References is the part of the catalog reader hydration needs.
type References interface {
	Schema() string
	ListReferences(ctx context.Context, table string) ([]introspect.Reference, error)
}

// Record is one row keyed by column name. Hydrated relations are embedded
// under the relation name.
type Record = map[string]any

// Accessor runs paged, filtered and hydrated reads against any table.
type Accessor struct {
	conn        database.Conn
	refs        References
	defaultSort string
	idColumn    string
	logger      *slog.Logger
}

type AccessorOption func(*Accessor)

// WithDefaultSort sets the column used when a request names none.
func WithDefaultSort(column string) AccessorOption {
	return func(a *Accessor) { a.defaultSort = column }
}

// WithIDColumn sets the primary key column used by SelectByID.
func WithIDColumn(column string) AccessorOption {
	return func(a *Accessor) { a.idColumn = column }
}

func WithLogger(logger *slog.Logger) AccessorOption {
	return func(a *Accessor) { a.logger = logger }
}

func NewAccessor(conn database.Conn, refs References, opts ...AccessorOption) *Accessor {
	a := &Accessor{
		conn:        conn,
		refs:        refs,
		defaultSort: DefaultSortBy,
		idColumn:    "id",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Accessor) table(name string) string {
	return a.conn.Dialect().Quote(a.refs.Schema(), name)
}

// Select returns one page of the rows of table matching every term, with the
// total number of matches before paging. With SkipPaging every match is
// returned and the total is the number of items.
func (a *Accessor) Select(ctx context.Context, table string, terms []Term, paging *PagingModel, ops RequestOperators) (*ItemList[Record], error) {
	page := paging.Normalize(a.defaultSort)
	d := a.conn.Dialect()

	b := NewBuilder(d)
	where := b.Where(terms)

	var sql strings.Builder
	fmt.Fprintf(&sql, "SELECT * FROM %s%s ORDER BY %s", a.table(table), where, d.Quote(page.SortBy))
	if page.IsSortDescending {
		sql.WriteString(" DESC")
	}
	if !ops.SkipPaging {
		fmt.Fprintf(&sql, " LIMIT %d OFFSET %d", page.PageLength, page.Offset())
	}

	items, err := a.conn.QueryMaps(ctx, sql.String(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	if items == nil {
		items = []Record{}
	}

	if ops.SkipPaging {
		page.TotalRecordCount = int64(len(items))
	} else {
		total, err := a.count(ctx, table, terms)
		if err != nil {
			return nil, err
		}
		page.TotalRecordCount = total
	}

	if err := a.hydrate(ctx, table, items, ops.Hydration); err != nil {
		return nil, err
	}
	return &ItemList[Record]{Items: items, Paging: page}, nil
}

// SelectByID returns the row whose id column equals id, or nil when there is
// none.
func (a *Accessor) SelectByID(ctx context.Context, table string, id any, ops RequestOperators) (Record, error) {
	b := NewBuilder(a.conn.Dialect())
	sql := fmt.Sprintf("SELECT * FROM %s%s", a.table(table), b.Where([]Term{ExactMatch{Column: a.idColumn, Value: id}}))

	rows, err := a.conn.QueryMaps(ctx, sql, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("select %s by id: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := a.hydrate(ctx, table, rows[:1], ops.Hydration); err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (a *Accessor) count(ctx context.Context, table string, terms []Term) (int64, error) {
	b := NewBuilder(a.conn.Dialect())
	sql := fmt.Sprintf("SELECT COUNT(*) AS total FROM %s%s", a.table(table), b.Where(terms))

	rows, err := a.conn.QueryMaps(ctx, sql, b.Args()...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	if len(rows) != 1 {
		return 0, fmt.Errorf("count %s: expected 1 row, got %d", table, len(rows))
	}
	return toInt64(rows[0]["total"])
}

// hydrate embeds the rows referenced through "<relation>_id" foreign keys.
// Relations with no such key are ignored.
func (a *Accessor) hydrate(ctx context.Context, table string, items []Record, hydration []string) error {
	if len(hydration) == 0 || len(items) == 0 {
		return nil
	}

	refs, err := a.refs.ListReferences(ctx, table)
	if err != nil {
		return err
	}
	byColumn := make(map[string]introspect.Reference, len(refs))
	for _, r := range refs {
		byColumn[r.Column] = r
	}

	for _, target := range HydrationRoots(hydration) {
		ref, ok := byColumn[target+"_id"]
		if !ok {
			a.logger.Debug("ignoring unknown hydration", "table", table, "relation", target)
			continue
		}

		var ids []any
		seen := map[string]bool{}
		for _, item := range items {
			v := item[ref.Column]
			if v == nil || seen[key(v)] {
				continue
			}
			seen[key(v)] = true
			ids = append(ids, v)
		}

		children := map[string]Record{}
		if len(ids) > 0 {
			list, err := a.Select(ctx, ref.ReferencedTable,
				[]Term{InList{Column: ref.ReferencedColumn, Values: ids}},
				&PagingModel{SortBy: ref.ReferencedColumn},
				RequestOperators{Hydration: SubHydration(target, hydration), SkipPaging: true},
			)
			if err != nil {
				return fmt.Errorf("hydrate %s.%s: %w", table, target, err)
			}
			for _, child := range list.Items {
				children[key(child[ref.ReferencedColumn])] = child
			}
		}

		for _, item := range items {
			v := item[ref.Column]
			if child, ok := children[key(v)]; ok && v != nil {
				item[target] = child
			} else {
				item[target] = nil
			}
		}
	}
	return nil
}

func key(v any) string {
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case []byte:
		var out int64
		_, err := fmt.Sscan(string(n), &out)
		return out, err
	case string:
		var out int64
		_, err := fmt.Sscan(n, &out)
		return out, err
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}

package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Dialect holds every piece of driver-specific SQL used by the catalog
// reader, the teardown engine and the query accessor.
type Dialect interface {
	Name() string

	// Quote renders a possibly qualified identifier.
	Quote(parts ...string) string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// Like returns the pattern match operator.
	Like(ignoreCase bool) string

	// TablesQuery selects table_name for every base table; arg: schema.
	TablesQuery() string
	// ForeignKeysQuery selects distinct FK constraint names; args: schema, table.
	ForeignKeysQuery() string
	// ReferencesQuery selects constraint, column, referenced table and
	// referenced column; args: schema, table.
	ReferencesQuery() string

	DropConstraint(schema, table, constraint string) string
	DeleteRows(schema, table string) string
	DropTable(schema, table string) string
}

// Postgres is the PostgreSQL dialect.
var Postgres Dialect = postgresDialect{}

// MySQL is the MySQL dialect.
var MySQL Dialect = mysqlDialect{}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Quote(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) Like(ignoreCase bool) string {
	if ignoreCase {
		return "ILIKE"
	}
	return "LIKE"
}

func (postgresDialect) TablesQuery() string {
	return `SELECT table_name::text
FROM information_schema.tables
WHERE table_schema = $1
	AND table_type = 'BASE TABLE'
ORDER BY table_name`
}

func (postgresDialect) ForeignKeysQuery() string {
	return `SELECT DISTINCT constraint_name::text
FROM information_schema.table_constraints
WHERE constraint_schema = $1
	AND table_name = $2
	AND constraint_type = 'FOREIGN KEY'
ORDER BY 1`
}

func (postgresDialect) ReferencesQuery() string {
	return `SELECT
	tc.constraint_name::text,
	kcu.column_name::text,
	ccu.table_name::text,
	ccu.column_name::text
FROM information_schema.table_constraints AS tc
JOIN information_schema.key_column_usage AS kcu
	ON tc.constraint_name = kcu.constraint_name
	AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage AS ccu
	ON ccu.constraint_name = tc.constraint_name
	AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
	AND tc.table_schema = $1
	AND tc.table_name = $2
ORDER BY 1, 2`
}

func (d postgresDialect) DropConstraint(schema, table, constraint string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.Quote(schema, table), d.Quote(constraint))
}

func (d postgresDialect) DeleteRows(schema, table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.Quote(schema, table))
}

func (d postgresDialect) DropTable(schema, table string) string {
	return fmt.Sprintf("DROP TABLE %s", d.Quote(schema, table))
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(parts ...string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		quoted = append(quoted, "`"+strings.ReplaceAll(p, "`", "``")+"`")
	}
	return strings.Join(quoted, ".")
}

func (mysqlDialect) Placeholder(int) string { return "?" }

// MySQL string comparison follows the column collation, which is case
// insensitive by default, so both modes share LIKE.
func (mysqlDialect) Like(bool) string { return "LIKE" }

func (mysqlDialect) TablesQuery() string {
	return `SELECT table_name
FROM information_schema.tables
WHERE table_schema = ?
	AND table_type = 'BASE TABLE'
ORDER BY table_name`
}

func (mysqlDialect) ForeignKeysQuery() string {
	return `SELECT DISTINCT constraint_name
FROM information_schema.table_constraints
WHERE constraint_schema = ?
	AND table_name = ?
	AND constraint_type = 'FOREIGN KEY'
ORDER BY 1`
}

func (mysqlDialect) ReferencesQuery() string {
	return `SELECT
	constraint_name,
	column_name,
	referenced_table_name,
	referenced_column_name
FROM information_schema.key_column_usage
WHERE table_schema = ?
	AND table_name = ?
	AND referenced_table_name IS NOT NULL
ORDER BY 1, 2`
}

func (d mysqlDialect) DropConstraint(schema, table, constraint string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.Quote(schema, table), d.Quote(constraint))
}

func (d mysqlDialect) DeleteRows(schema, table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.Quote(schema, table))
}

func (d mysqlDialect) DropTable(schema, table string) string {
	return fmt.Sprintf("DROP TABLE %s", d.Quote(schema, table))
}

// DialectFor returns the dialect registered for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samson-dev/samson-db/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDialect(t *testing.T) {
	d := Postgres

	assert.Equal(t, `"public"."orders"`, d.Quote("public", "orders"))
	assert.Equal(t, `"we""ird"`, d.Quote(`we"ird`))
	assert.Equal(t, "$3", d.Placeholder(3))
	assert.Equal(t, "ILIKE", d.Like(true))
	assert.Equal(t, "LIKE", d.Like(false))

	assert.Equal(t, `ALTER TABLE "public"."a" DROP CONSTRAINT "a_b_fk"`, d.DropConstraint("public", "a", "a_b_fk"))
	assert.Equal(t, `DELETE FROM "public"."a"`, d.DeleteRows("public", "a"))
	assert.Equal(t, `DROP TABLE "public"."a"`, d.DropTable("public", "a"))
	assert.Contains(t, d.TablesQuery(), "table_type = 'BASE TABLE'")
	assert.Contains(t, d.ForeignKeysQuery(), "constraint_type = 'FOREIGN KEY'")
}

func TestMySQLDialect(t *testing.T) {
	d := MySQL

	assert.Equal(t, "`shop`.`orders`", d.Quote("shop", "orders"))
	assert.Equal(t, "`or``ders`", d.Quote("or`ders"))
	assert.Equal(t, "`orders`", d.Quote("", "orders"))
	assert.Equal(t, "?", d.Placeholder(7))
	assert.Equal(t, "ALTER TABLE `shop`.`a` DROP FOREIGN KEY `fk_b`", d.DropConstraint("shop", "a", "fk_b"))
	assert.Equal(t, "DROP TABLE `shop`.`a`", d.DropTable("shop", "a"))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = DialectFor("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	_, err = DialectFor("sqlite")
	assert.Error(t, err)
}

func TestPostgresDSN_EscapesCredentials(t *testing.T) {
	cfg := config.Config{
		Host: "db", Port: 5433, Database: "samson",
		Username: "mi grator", Password: "p@ss/word", SSLMode: "disable",
	}

	dsn := PostgresDSN(cfg)
	assert.Equal(t, "postgres://mi%20grator:p%40ss%2Fword@db:5433/samson?sslmode=disable", dsn)
}

func TestMySQLConfig(t *testing.T) {
	mc := MySQLConfig(config.Config{Host: "db", Port: 3306, Database: "shop", Username: "root", Password: "pw"})

	assert.Equal(t, "db:3306", mc.Addr)
	assert.Equal(t, "shop", mc.DBName)
	assert.True(t, mc.MultiStatements)
	assert.True(t, mc.ParseTime)
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(context.Background(), config.Config{Driver: "oracle", Host: "h", Port: 1, Database: "d"})

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "h:1/d", connErr.Target)
}

func TestDiagnostic(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", Message: "update or delete violates foreign key", Detail: "Key (id)=(1) is still referenced"}
	wrapped := &StatementError{SQL: "DELETE FROM a", Err: fmt.Errorf("exec: %w", pgErr)}

	assert.Equal(t, "update or delete violates foreign key (SQLSTATE 23503); detail: Key (id)=(1) is still referenced", Diagnostic(wrapped))
	assert.True(t, errors.Is(wrapped, pgErr))

	myErr := &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}
	assert.Equal(t, "Cannot delete or update a parent row (error 1451)", Diagnostic(myErr))

	assert.Equal(t, "boom", Diagnostic(errors.New("boom")))
	assert.Empty(t, Diagnostic(nil))
}

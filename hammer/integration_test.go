//go:build integration

package hammer_test

import (
	"context"
	"strconv"
	"testing"
	"testing/fstest"

	"github.com/samson-dev/samson-db/config"
	"github.com/samson-dev/samson-db/database"
	"github.com/samson-dev/samson-db/hammer"
	"github.com/samson-dev/samson-db/introspect"
	"github.com/samson-dev/samson-db/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) database.Conn {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("samson"),
		postgres.WithUsername("migrator"),
		postgres.WithPassword("migrator"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	conn, err := database.Connect(ctx, config.Config{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     p,
		Database: "samson",
		Username: "migrator",
		Password: "migrator",
		SSLMode:  "disable",
		Schema:   "public",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

var cyclicSchema = fstest.MapFS{
	"001_customers.sql": {Data: []byte(`
CREATE TABLE customers (id INT PRIMARY KEY, last_order_id INT, referred_by INT);
CREATE TABLE orders (id INT PRIMARY KEY, customer_id INT NOT NULL REFERENCES customers(id));
`)},
	"002_back_references.sql": {Data: []byte(`
ALTER TABLE customers ADD CONSTRAINT customers_last_order_fk FOREIGN KEY (last_order_id) REFERENCES orders(id) DEFERRABLE INITIALLY DEFERRED;
ALTER TABLE customers ADD CONSTRAINT customers_referred_by_fk FOREIGN KEY (referred_by) REFERENCES customers(id);
CREATE TABLE a (id INT PRIMARY KEY, c_id INT);
CREATE TABLE b (id INT PRIMARY KEY, a_id INT REFERENCES a(id));
CREATE TABLE c (id INT PRIMARY KEY, b_id INT REFERENCES b(id));
ALTER TABLE a ADD CONSTRAINT a_c_fk FOREIGN KEY (c_id) REFERENCES c(id) DEFERRABLE INITIALLY DEFERRED;
CREATE VIEW order_summary AS SELECT customer_id, count(*) FROM orders GROUP BY customer_id;
`)},
	"003_rows.sql": {Data: []byte(`
BEGIN;
INSERT INTO customers (id, last_order_id, referred_by) VALUES (1, 10, NULL), (2, 11, 1);
INSERT INTO orders (id, customer_id) VALUES (10, 1), (11, 2);
INSERT INTO a (id, c_id) VALUES (1, 1);
INSERT INTO b (id, a_id) VALUES (1, 1);
INSERT INTO c (id, b_id) VALUES (1, 1);
COMMIT;
`)},
}

func TestHammer_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	conn := startPostgres(t)
	ctx := context.Background()

	require.NoError(t, runner.New(conn, cyclicSchema, nil).Migrate(ctx))

	cat := introspect.New(conn, "public")
	snap, err := cat.Inspect(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Tables, 5)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"customers", "orders"}}, snap.Cycles)

	// the view keeps orders from being dropped
	err = hammer.New(conn, cat, nil).Hammer(ctx)
	var te *hammer.TeardownError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"orders"}, te.Tables(hammer.PhaseDropTables))

	require.NoError(t, conn.Exec(ctx, "DROP VIEW order_summary"))
	require.NoError(t, hammer.New(conn, cat, nil).Hammer(ctx))

	tables, err := cat.ListTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)

	// second run is a no-op
	require.NoError(t, hammer.New(conn, cat, nil).Hammer(ctx))
}

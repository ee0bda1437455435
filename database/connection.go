package database

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/samson-dev/samson-db/config"
)

// Conn is one live connection to the target database. It is owned by the
// command that opened it and borrowed by the runner, the catalog reader and
// the teardown engine for a single operation. A Conn is not safe for
// concurrent use.
type Conn interface {
	Dialect() Dialect

	// Exec runs a statement, or a batch of statements when it has no args.
	Exec(ctx context.Context, sql string, args ...any) error
	// QueryText returns every row with each column rendered as text; NULL
	// becomes the empty string.
	QueryText(ctx context.Context, sql string, args ...any) ([][]string, error)
	// QueryMaps returns every row keyed by column name.
	QueryMaps(ctx context.Context, sql string, args ...any) ([]map[string]any, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Connect opens and verifies a single connection for cfg. Any failure is a
// *ConnectionError and is not retried.
func Connect(ctx context.Context, cfg config.Config) (Conn, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		return connectPostgres(ctx, cfg)
	case config.DriverMySQL:
		return connectMySQL(ctx, cfg)
	default:
		return nil, &ConnectionError{Driver: cfg.Driver, Target: target(cfg), Err: fmt.Errorf("unsupported driver")}
	}
}

func target(cfg config.Config) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/" + cfg.Database
}

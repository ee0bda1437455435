package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samson-dev/samson-db/config"
)

type pgConn struct {
	conn *pgx.Conn
}

// PostgresDSN builds a connection URL for cfg. User info is escaped.
func PostgresDSN(cfg config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func connectPostgres(ctx context.Context, cfg config.Config) (Conn, error) {
	pgCfg, err := pgx.ParseConfig(PostgresDSN(cfg))
	if err != nil {
		return nil, &ConnectionError{Driver: config.DriverPostgres, Target: target(cfg), Err: fmt.Errorf("parse config: %w", err)}
	}

	conn, err := pgx.ConnectConfig(ctx, pgCfg)
	if err != nil {
		return nil, &ConnectionError{Driver: config.DriverPostgres, Target: target(cfg), Err: err}
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, &ConnectionError{Driver: config.DriverPostgres, Target: target(cfg), Err: fmt.Errorf("ping: %w", err)}
	}

	return &pgConn{conn: conn}, nil
}

func (c *pgConn) Dialect() Dialect { return Postgres }

// Exec without args goes through the simple protocol, so a whole schema
// file with several statements runs as one batch.
func (c *pgConn) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := c.conn.Exec(ctx, sql, args...); err != nil {
		return &StatementError{SQL: sql, Err: err}
	}
	return nil
}

func (c *pgConn) QueryText(ctx context.Context, sql string, args ...any) ([][]string, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, &StatementError{SQL: sql, Err: err}
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		values, err := row.Values()
		if err != nil {
			return nil, err
		}
		out := make([]string, len(values))
		for i, v := range values {
			if v != nil {
				out[i] = fmt.Sprint(v)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, &StatementError{SQL: sql, Err: err}
	}
	return result, nil
}

func (c *pgConn) QueryMaps(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, &StatementError{SQL: sql, Err: err}
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (map[string]any, error) {
		m, err := pgx.RowToMap(row)
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			m[k] = pgValue(v)
		}
		return m, nil
	})
	if err != nil {
		return nil, &StatementError{SQL: sql, Err: err}
	}
	return result, nil
}

// pgValue turns the raw [16]byte pgx decodes uuid columns into into a
// uuid.UUID, which renders as text and binds back as a uuid argument.
func pgValue(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t)
	case []any:
		for i := range t {
			t[i] = pgValue(t[i])
		}
		return t
	default:
		return v
	}
}

func (c *pgConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *pgConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/samson-dev/samson-db/config"
)

type mysqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

// MySQLConfig builds the driver configuration for cfg. Multi statements are
// enabled so schema files run as a single batch.
func MySQLConfig(cfg config.Config) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.MultiStatements = true
	mc.ParseTime = true
	return mc
}

func connectMySQL(ctx context.Context, cfg config.Config) (Conn, error) {
	connector, err := mysql.NewConnector(MySQLConfig(cfg))
	if err != nil {
		return nil, &ConnectionError{Driver: config.DriverMySQL, Target: target(cfg), Err: fmt.Errorf("parse config: %w", err)}
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Driver: config.DriverMySQL, Target: target(cfg), Err: err}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, &ConnectionError{Driver: config.DriverMySQL, Target: target(cfg), Err: fmt.Errorf("ping: %w", err)}
	}

	return &mysqlConn{db: db, conn: conn}, nil
}

func (c *mysqlConn) Dialect() Dialect { return MySQL }

func (c *mysqlConn) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := c.conn.ExecContext(ctx, query, args...); err != nil {
		return &StatementError{SQL: query, Err: err}
	}
	return nil
}

func (c *mysqlConn) QueryText(ctx context.Context, query string, args ...any) ([][]string, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StatementError{SQL: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &StatementError{SQL: query, Err: err}
	}

	var result [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &StatementError{SQL: query, Err: err}
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = v.String
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &StatementError{SQL: query, Err: err}
	}
	return result, nil
}

func (c *mysqlConn) QueryMaps(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StatementError{SQL: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &StatementError{SQL: query, Err: err}
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &StatementError{SQL: query, Err: err}
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			// text columns arrive as raw bytes
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &StatementError{SQL: query, Err: err}
	}
	return result, nil
}

func (c *mysqlConn) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

func (c *mysqlConn) Close(context.Context) error {
	cerr := c.conn.Close()
	if err := c.db.Close(); err != nil {
		return err
	}
	return cerr
}

// Package hammer tears down every table in a schema.
//
// Teardown runs in three phases, each completed over all tables before the
// next one starts:
//
//  1. drop every foreign key constraint of every table
//  2. delete all rows of every table
//  3. drop every table
//
// Once phase 1 is done the tables no longer depend on each other, so phases
// 2 and 3 need no ordering and schemas with reference cycles (self
// references included) come apart like any other. No dependency sort is
// ever computed.
package hammer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samson-dev/samson-db/database"
	"github.com/samson-dev/samson-db/introspect"
)

// Phase names one step of the teardown.
type Phase string

const (
	PhaseDropConstraints Phase = "drop-constraints"
	PhasePurgeRows       Phase = "purge-rows"
	PhaseDropTables      Phase = "drop-tables"
)

// Catalog is the part of the catalog reader the engine needs.
type Catalog interface {
	Schema() string
	ListTables(ctx context.Context) ([]introspect.TableDescriptor, error)
	ListForeignKeys(ctx context.Context, table string) ([]introspect.ForeignKeyDescriptor, error)
}

// TableFailure is one statement that failed during phase 2 or 3.
type TableFailure struct {
	Phase Phase
	Table string
	Err   error
}

func (f TableFailure) Error() string {
	return fmt.Sprintf("%s %s: %s", f.Phase, f.Table, database.Diagnostic(f.Err))
}

func (f TableFailure) Unwrap() error { return f.Err }

// TeardownError collects every per-table failure of a run.
type TeardownError struct {
	Failures []TableFailure
}

func (e *TeardownError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("teardown incomplete, %d table operation(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *TeardownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Tables returns the names of the tables that failed in phase.
func (e *TeardownError) Tables(phase Phase) []string {
	var out []string
	for _, f := range e.Failures {
		if f.Phase == phase {
			out = append(out, f.Table)
		}
	}
	return out
}

// ConstraintError is returned when a foreign key could not be dropped.
// Phase 1 stops on the first one: purging or dropping with constraints
// still in place would fail unpredictably.
type ConstraintError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("drop constraint %s on %s: %s", e.Constraint, e.Table, database.Diagnostic(e.Err))
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Engine runs the teardown against one connection.
type Engine struct {
	conn    database.Conn
	catalog Catalog
	logger  *slog.Logger
}

func New(conn database.Conn, catalog Catalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{conn: conn, catalog: catalog, logger: logger}
}

// Hammer drops every constraint, row and table of the schema. Running it on
// an empty schema is a no-op. Failures of phases 2 and 3 are returned
// together as a *TeardownError after every table has been attempted.
func (e *Engine) Hammer(ctx context.Context) error {
	start := time.Now()

	tables, err := e.catalog.ListTables(ctx)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		e.logger.Info("schema is already empty", "schema", e.catalog.Schema())
		return nil
	}
	e.logger.Info("hammering schema", "schema", e.catalog.Schema(), "tables", len(tables))

	if err := e.DropConstraints(ctx, tables); err != nil {
		return err
	}

	var failures []TableFailure
	failures = append(failures, e.PurgeRows(ctx, tables)...)
	failures = append(failures, e.DropTables(ctx, tables)...)

	if len(failures) > 0 {
		e.logger.Error("teardown incomplete", "failures", len(failures))
		return &TeardownError{Failures: failures}
	}

	e.logger.Info("teardown complete", "tables", len(tables), "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// DropConstraints drops every foreign key of every table. The constraints of
// each table are read immediately before they are dropped. The first failure
// is returned.
func (e *Engine) DropConstraints(ctx context.Context, tables []introspect.TableDescriptor) error {
	d := e.conn.Dialect()
	for _, t := range tables {
		fks, err := e.catalog.ListForeignKeys(ctx, t.Name)
		if err != nil {
			return err
		}
		for _, fk := range fks {
			e.logger.Info("dropping constraint", "table", t.Name, "constraint", fk.Name)
			if err := e.conn.Exec(ctx, d.DropConstraint(t.Schema, t.Name, fk.Name)); err != nil {
				return &ConstraintError{Table: t.Name, Constraint: fk.Name, Err: err}
			}
		}
	}
	return nil
}

// PurgeRows deletes all rows of every table and returns the failures.
func (e *Engine) PurgeRows(ctx context.Context, tables []introspect.TableDescriptor) []TableFailure {
	d := e.conn.Dialect()
	return e.eachTable(ctx, PhasePurgeRows, tables, func(t introspect.TableDescriptor) string {
		return d.DeleteRows(t.Schema, t.Name)
	})
}

// DropTables drops every table and returns the failures.
func (e *Engine) DropTables(ctx context.Context, tables []introspect.TableDescriptor) []TableFailure {
	d := e.conn.Dialect()
	return e.eachTable(ctx, PhaseDropTables, tables, func(t introspect.TableDescriptor) string {
		return d.DropTable(t.Schema, t.Name)
	})
}

func (e *Engine) eachTable(ctx context.Context, phase Phase, tables []introspect.TableDescriptor, stmt func(introspect.TableDescriptor) string) []TableFailure {
	var failures []TableFailure
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			failures = append(failures, TableFailure{Phase: phase, Table: t.Name, Err: err})
			continue
		}
		e.logger.Info(string(phase), "table", t.Name)
		if err := e.conn.Exec(ctx, stmt(t)); err != nil {
			e.logger.Error(string(phase)+" failed", "table", t.Name, "error", database.Diagnostic(err))
			failures = append(failures, TableFailure{Phase: phase, Table: t.Name, Err: err})
		}
	}
	return failures
}

// IsTeardownError reports whether err carries per-table teardown failures.
func IsTeardownError(err error) bool {
	var te *TeardownError
	return errors.As(err, &te)
}

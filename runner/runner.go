package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samson-dev/samson-db/database"
)

// MigrationFile is one schema definition file. Ordinal is its 1-based
// position in the lexical order of file names.
type MigrationFile struct {
	Path    string `json:"path" yaml:"path"`
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
	SQL     string `json:"-" yaml:"-"`
}

// Blank reports whether the file holds nothing but whitespace.
func (f MigrationFile) Blank() bool {
	return strings.TrimSpace(f.SQL) == ""
}

// MigrationError is returned for the first file that failed to apply. Files
// before it stay applied; files after it were not attempted.
type MigrationError struct {
	File    string
	Ordinal int
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed: %s", e.Ordinal, e.File, database.Diagnostic(e.Err))
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Runner applies every schema file in a directory, in lexical order. There is
// no applied ledger: each run executes every file again, so files are
// expected to be idempotent or run against an empty database.
type Runner struct {
	conn   database.Conn
	fsys   fs.FS
	logger *slog.Logger
}

// New creates a runner over the schema files in fsys. A nil logger falls back
// to slog.Default().
func New(conn database.Conn, fsys fs.FS, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{conn: conn, fsys: fsys, logger: logger}
}

// Files returns the schema files in application order, with their contents,
// without executing anything. Directories are ignored; symlinks are followed.
func (r *Runner) Files() ([]MigrationFile, error) {
	files, err := r.list()
	if err != nil {
		return nil, err
	}
	for i := range files {
		if err := r.read(&files[i]); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// list returns the schema files in application order with SQL left empty.
func (r *Runner) list() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		info, err := fs.Stat(r.fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	files := make([]MigrationFile, 0, len(names))
	for i, name := range names {
		files = append(files, MigrationFile{Path: name, Ordinal: i + 1})
	}
	return files, nil
}

func (r *Runner) read(f *MigrationFile) error {
	content, err := fs.ReadFile(r.fsys, f.Path)
	if err != nil {
		return &MigrationError{File: f.Path, Ordinal: f.Ordinal, Err: fmt.Errorf("read file: %w", err)}
	}
	f.SQL = string(content)
	return nil
}

// Migrate reads and applies each file in turn as a single statement batch.
// The first failure stops the run; nothing is rolled back.
func (r *Runner) Migrate(ctx context.Context) error {
	files, err := r.list()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		r.logger.Info("no schema files found")
		return nil
	}

	total := len(files)
	start := time.Now()
	applied := 0
	for _, f := range files {
		if err := r.read(&f); err != nil {
			r.logger.Error("migration failed", "file", f.Path, "error", err)
			return err
		}
		if f.Blank() {
			r.logger.Warn("skipping empty schema file", "file", f.Path, "ordinal", fmt.Sprintf("%d/%d", f.Ordinal, total))
			continue
		}

		r.logger.Info("applying migration", "file", f.Path, "ordinal", fmt.Sprintf("%d/%d", f.Ordinal, total))
		fileStart := time.Now()
		if err := r.conn.Exec(ctx, f.SQL); err != nil {
			r.logger.Error("migration failed", "file", f.Path, "error", database.Diagnostic(err))
			return &MigrationError{File: f.Path, Ordinal: f.Ordinal, Err: err}
		}
		applied++
		r.logger.Info("migration applied", "file", f.Path, "duration", time.Since(fileStart).Round(time.Millisecond))
	}

	r.logger.Info("migrations complete", "applied", applied, "files", total, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

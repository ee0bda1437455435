package runner

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/samson-dev/samson-db/database"
	"github.com/samson-dev/samson-db/database/databasetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func file(content string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content)}
}

func TestFiles_LexicalOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_views.sql":   file("CREATE VIEW v AS SELECT 1;"),
		"002_orders.sql":  file("CREATE TABLE orders ();"),
		"001_vendor.sql":  file("CREATE TABLE vendor ();"),
		"archive/old.sql": file("DROP TABLE everything;"),
	}

	files, err := New(databasetest.New("public"), fsys, nil).Files()
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.Equal(t, "001_vendor.sql", files[0].Path)
	assert.Equal(t, 1, files[0].Ordinal)
	assert.Equal(t, "002_orders.sql", files[1].Path)
	assert.Equal(t, "010_views.sql", files[2].Path)
	assert.Equal(t, 3, files[2].Ordinal)
}

func TestFiles_LexicalNotNumeric(t *testing.T) {
	fsys := fstest.MapFS{
		"10_b.sql": file("SELECT 10;"),
		"9_a.sql":  file("SELECT 9;"),
	}

	files, err := New(databasetest.New("public"), fsys, nil).Files()
	require.NoError(t, err)
	assert.Equal(t, "10_b.sql", files[0].Path)
	assert.Equal(t, "9_a.sql", files[1].Path)
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	db := databasetest.New("public")
	fsys := fstest.MapFS{
		"002.sql": file("CREATE TABLE b ();"),
		"001.sql": file("CREATE TABLE a ();\nCREATE TABLE c ();"),
		"003.sql": file("CREATE TABLE d ();"),
	}
	logger, logs := newTestLogger(t)

	require.NoError(t, New(db, fsys, logger).Migrate(context.Background()))

	assert.Equal(t, []string{
		"CREATE TABLE a ();\nCREATE TABLE c ();",
		"CREATE TABLE b ();",
		"CREATE TABLE d ();",
	}, db.Statements())
	assert.Contains(t, logs.String(), "ordinal=1/3")
	assert.Contains(t, logs.String(), "migrations complete")
}

func TestMigrate_StopsAtFirstFailure(t *testing.T) {
	db := databasetest.New("public")
	cause := errors.New(`relation "missing" does not exist`)
	db.FailExec("CREATE TABLE b REFERENCES missing;", cause)
	fsys := fstest.MapFS{
		"001.sql": file("CREATE TABLE a ();"),
		"002.sql": file("CREATE TABLE b REFERENCES missing;"),
		"003.sql": file("CREATE TABLE c ();"),
	}

	err := New(db, fsys, nil).Migrate(context.Background())

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "002.sql", migErr.File)
	assert.Equal(t, 2, migErr.Ordinal)
	assert.ErrorIs(t, err, cause)

	var stmtErr *database.StatementError
	assert.ErrorAs(t, err, &stmtErr)
	assert.Contains(t, err.Error(), "migration 2 (002.sql) failed")

	// 003 was never attempted
	assert.Equal(t, []string{"CREATE TABLE a ();", "CREATE TABLE b REFERENCES missing;"}, db.Statements())
}

func TestMigrate_EmptyDirectory(t *testing.T) {
	db := databasetest.New("public")

	require.NoError(t, New(db, fstest.MapFS{}, nil).Migrate(context.Background()))
	assert.Empty(t, db.Statements())
}

func TestMigrate_SkipsBlankFiles(t *testing.T) {
	db := databasetest.New("public")
	fsys := fstest.MapFS{
		"001.sql": file("  \n\t\n"),
		"002.sql": file("CREATE TABLE a ();"),
	}
	logger, logs := newTestLogger(t)

	require.NoError(t, New(db, fsys, logger).Migrate(context.Background()))
	assert.Equal(t, []string{"CREATE TABLE a ();"}, db.Statements())
	assert.Contains(t, logs.String(), "skipping empty schema file")
}

func TestMigrate_ReappliesEveryRun(t *testing.T) {
	db := databasetest.New("public")
	fsys := fstest.MapFS{"001.sql": file("CREATE TABLE IF NOT EXISTS a ();")}
	r := New(db, fsys, nil)

	require.NoError(t, r.Migrate(context.Background()))
	require.NoError(t, r.Migrate(context.Background()))
	assert.Len(t, db.Statements(), 2)
}

func TestFiles_MissingDirectory(t *testing.T) {
	_, err := New(databasetest.New("public"), fstest.MapFS{}, nil).Files()
	require.NoError(t, err)

	sub, err := fs.Sub(fstest.MapFS{"schema/001.sql": file("SELECT 1;")}, "nope")
	require.NoError(t, err)
	_, err = New(databasetest.New("public"), sub, nil).Files()
	assert.Error(t, err)
}

// unreadableFS lists and stats like its MapFS but fails to read one file.
type unreadableFS struct {
	fstest.MapFS
	name string
}

func (u unreadableFS) ReadFile(name string) ([]byte, error) {
	if name == u.name {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrPermission}
	}
	return u.MapFS.ReadFile(name)
}

func (u unreadableFS) Open(name string) (fs.File, error) {
	if name == u.name {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return u.MapFS.Open(name)
}

func TestMigrate_ReadsEachFileInTurn(t *testing.T) {
	db := databasetest.New("public")
	fsys := unreadableFS{
		MapFS: fstest.MapFS{
			"001.sql": file("CREATE TABLE a ();"),
			"002.sql": file("CREATE TABLE b ();"),
			"003.sql": file("CREATE TABLE c ();"),
			"004.sql": file("CREATE TABLE d ();"),
		},
		name: "003.sql",
	}

	err := New(db, fsys, nil).Migrate(context.Background())

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "003.sql", migErr.File)
	assert.Equal(t, 3, migErr.Ordinal)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, []string{"CREATE TABLE a ();", "CREATE TABLE b ();"}, db.Statements())

	_, err = New(db, fsys, nil).Files()
	assert.ErrorIs(t, err, fs.ErrPermission)
}

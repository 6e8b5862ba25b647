package snapshot

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/dress/internal/testutil"
	"github.com/leapstack-labs/dress/pkg/adapter"
	"github.com/leapstack-labs/dress/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/dress/pkg/adapters/sqlite"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(context.Background(), filepath.Join(t.TempDir(), "snapshot.db")))
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// sourceDB creates a SQLite database to read catalogs from.
func sourceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, email VARCHAR(120) NOT NULL)",
		"CREATE TABLE audit (at TEXT DEFAULT 'now', note)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

// failingAdapter fails every call after GetTables.
type failingAdapter struct{ adapter.Adapter }

func (failingAdapter) GetTables(context.Context) ([]string, error) { return []string{"t"}, nil }
func (failingAdapter) GetTableComment(context.Context, string) (string, error) {
	return "", &adapter.QueryError{Adapter: "fake", Op: "get table comment", Err: assert.AnError}
}

func TestStore_OpenClose(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Open(context.Background(), ":memory:"))
	require.NoError(t, store.Migrate(context.Background()))
	assert.Equal(t, ":memory:", store.Path())

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "second close is a no-op")
}

func TestStore_NotOpen(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	assert.ErrorIs(t, store.Migrate(ctx), ErrNotOpen)
	_, err := store.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = store.Tables(ctx, "x")
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = store.Columns(ctx, "x", "t")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, store.Save(ctx, Run{}, nil), ErrNotOpen)
}

func TestStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, store.Migrate(context.Background()), "migrating twice is a no-op")
}

func TestStore_SaveAndRead(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	size := int64(255)
	run := Run{
		ID:         "run-1",
		Datasource: adapter.TypeMySQL,
		Database:   "app",
		CapturedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		DDL:        "CREATE TABLE users ();\n\n",
	}
	users := []core.Column{
		{Name: "id", Type: "int(11)", Extra: "auto_increment", Key: "PRI"},
		{Name: "email", Type: "varchar(255)", Size: &size, Collation: core.StringPtr("utf8_bin"), Nullable: true, Default: core.StringPtr(""), Comment: "login", Key: "UNI"},
	}
	require.NoError(t, store.Save(ctx, run, []Table{
		{Name: "users", Comment: "registered users", Columns: users},
		{Name: "empty"},
	}))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run, *got)

	tables, err := store.Tables(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []Table{{Name: "empty"}, {Name: "users", Comment: "registered users"}}, tables)

	cols, err := store.Columns(ctx, "run-1", "users")
	require.NoError(t, err)
	assert.Equal(t, users, cols, "nil and empty-string pointers survive the round trip")

	cols, err = store.Columns(ctx, "run-1", "empty")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestStore_SaveIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := Run{ID: "dup", Datasource: adapter.TypeSQLite, CapturedAt: time.Now()}
	err := store.Save(ctx, run, []Table{{Name: "t"}, {Name: "t"}})
	require.Error(t, err)

	got, err := store.GetRun(ctx, "dup")
	require.NoError(t, err)
	assert.Nil(t, got, "failed save leaves no run behind")
}

func TestStore_LatestRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, Run{ID: "old", Datasource: "x", CapturedAt: base}, nil))
	require.NoError(t, store.Save(ctx, Run{ID: "new", Datasource: "x", CapturedAt: base.Add(time.Hour)}, nil))

	latest, err = store.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "new", latest.ID)
}

func TestCapture_SQLite(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	cfg := adapter.Config{Type: adapter.TypeSQLite, Database: sourceDB(t)}
	var runID string
	err := adapter.With(ctx, cfg, testutil.NewTestLogger(t), func(src adapter.Adapter) error {
		var err error
		runID, err = Capture(ctx, src, store, cfg)
		return err
	})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, adapter.TypeSQLite, run.Datasource)
	assert.Contains(t, run.DDL, "CREATE TABLE users")
	assert.Contains(t, run.DDL, "CREATE TABLE audit")

	tables, err := store.Tables(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, []Table{{Name: "audit"}, {Name: "users"}}, tables)

	cols, err := store.Columns(ctx, runID, "users")
	require.NoError(t, err)
	size := int64(120)
	assert.Equal(t, []core.Column{
		{Name: "id", Type: "INTEGER", Nullable: true, Key: "PRI"},
		{Name: "email", Type: "VARCHAR(120)", Size: &size},
	}, cols)

	cols, err = store.Columns(ctx, runID, "audit")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, core.StringPtr("'now'"), cols[0].Default)
}

func TestCapture_ReadFailureSavesNothing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := Capture(ctx, failingAdapter{}, store, adapter.Config{Type: "fake"})
	require.Error(t, err)
	var qerr *adapter.QueryError
	assert.ErrorAs(t, err, &qerr)

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

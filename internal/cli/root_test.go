package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dress/internal/snapshot"
	"github.com/leapstack-labs/dress/pkg/adapter"
	"github.com/leapstack-labs/dress/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDatabase creates a SQLite database in an isolated working
// directory and returns its path.
func setupTestDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "app.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, email VARCHAR(255) NOT NULL, nickname TEXT DEFAULT 'anon')",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd, closeSource := newRootCmd()
	t.Cleanup(func() { _ = closeSource() })

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func sqliteArgs(path string, args ...string) []string {
	return append([]string{"--datasource", adapter.TypeSQLite, "--database", path}, args...)
}

func TestRoot_Tables(t *testing.T) {
	path := setupTestDatabase(t)

	out, _, err := run(t, sqliteArgs(path, "tables", "-o", "json")...)
	require.NoError(t, err)

	var tables []string
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Equal(t, []string{"orders", "users"}, tables)
}

func TestRoot_Tables_Markdown(t *testing.T) {
	path := setupTestDatabase(t)

	out, _, err := run(t, sqliteArgs(path, "tables")...)
	require.NoError(t, err)
	assert.Contains(t, out, "| Table |")
	assert.Contains(t, out, "| orders |")
	assert.Contains(t, out, "| users |")
}

func TestRoot_Columns(t *testing.T) {
	path := setupTestDatabase(t)

	out, _, err := run(t, sqliteArgs(path, "columns", "users", "-o", "json")...)
	require.NoError(t, err)

	var cols []core.Column
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "PRI", cols[0].Key)
	require.NotNil(t, cols[1].Size)
	assert.Equal(t, int64(255), *cols[1].Size)
	assert.False(t, cols[1].Nullable)
	require.NotNil(t, cols[2].Default)
	assert.Equal(t, "'anon'", *cols[2].Default)
}

func TestRoot_Columns_Headers(t *testing.T) {
	path := setupTestDatabase(t)

	out, _, err := run(t, sqliteArgs(path, "columns", "orders", "-o", "markdown")...)
	require.NoError(t, err)
	assert.Contains(t, out, "| Field | Type | Size | Collation | Null | Default | Extra | Comment | Key |")
}

func TestRoot_Columns_UnknownTableWarns(t *testing.T) {
	path := setupTestDatabase(t)

	_, errOut, err := run(t, sqliteArgs(path, "columns", "missing")...)
	require.NoError(t, err)
	assert.Contains(t, errOut, "missing")
}

func TestRoot_Comment(t *testing.T) {
	path := setupTestDatabase(t)

	out, _, err := run(t, sqliteArgs(path, "comment", "users", "-o", "yaml")...)
	require.NoError(t, err)
	assert.YAMLEq(t, "table: users\ncomment: \"\"\n", out)
}

func TestRoot_DDL(t *testing.T) {
	path := setupTestDatabase(t)

	out, _, err := run(t, sqliteArgs(path, "ddl")...)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE orders")
	assert.Contains(t, out, "CREATE TABLE users")
	assert.Contains(t, out, adapter.StatementSeparator)
}

func TestRoot_Describe(t *testing.T) {
	path := setupTestDatabase(t)

	out, _, err := run(t, sqliteArgs(path, "describe")...)
	require.NoError(t, err)
	assert.Contains(t, out, "## orders")
	assert.Contains(t, out, "## users")
	assert.Contains(t, out, "| email |")
}

func TestRoot_Snapshot(t *testing.T) {
	path := setupTestDatabase(t)
	snapPath := filepath.Join(t.TempDir(), "nested", "snap.db")

	out, _, err := run(t, sqliteArgs(path, "snapshot", "--out", snapPath, "-o", "json")...)
	require.NoError(t, err)

	var result struct {
		RunID         string `json:"run_id"`
		File          string `json:"file"`
		SchemaVersion int64  `json:"schema_version"`
		Tables        int    `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, snapPath, result.File)
	assert.Equal(t, int64(1), result.SchemaVersion)
	assert.Equal(t, 2, result.Tables)

	store := snapshot.NewStore(nil)
	require.NoError(t, store.Open(t.Context(), snapPath))
	defer func() { _ = store.Close() }()

	latest, err := store.LatestRun(t.Context())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, result.RunID, latest.ID)
	assert.Equal(t, adapter.TypeSQLite, latest.Datasource)
}

func TestRoot_ConfigFile(t *testing.T) {
	path := setupTestDatabase(t)
	cfg := "database:\n  datasource: Database/SQLite3\n  database: " + path + "\noutput: json\n"
	require.NoError(t, os.WriteFile("dress.yaml", []byte(cfg), 0600))

	out, _, err := run(t, "tables")
	require.NoError(t, err)
	assert.JSONEq(t, `["orders","users"]`, out)
}

func TestRoot_MissingDatasource(t *testing.T) {
	setupTestDatabase(t)

	_, _, err := run(t, "tables")
	var cfgErr *adapter.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "database.datasource", cfgErr.Key)
}

func TestRoot_UnknownDatasource(t *testing.T) {
	setupTestDatabase(t)

	_, _, err := run(t, "--datasource", "Database/Oracle", "tables")
	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
}

func TestRoot_MissingSQLiteFile(t *testing.T) {
	setupTestDatabase(t)

	_, _, err := run(t, sqliteArgs("does-not-exist.db", "tables")...)
	var connErr *adapter.ConnectionError
	require.ErrorAs(t, err, &connErr)
	_, statErr := os.Stat("does-not-exist.db")
	assert.True(t, os.IsNotExist(statErr))
}

func TestRoot_Adapters(t *testing.T) {
	setupTestDatabase(t)

	out, _, err := run(t, "adapters", "-o", "json")
	require.NoError(t, err)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Contains(t, names, adapter.TypeMySQL)
	assert.Contains(t, names, adapter.TypePostgreSQL)
	assert.Contains(t, names, adapter.TypeSQLite)
}

func TestRoot_InvalidOutput(t *testing.T) {
	setupTestDatabase(t)

	_, _, err := run(t, "adapters", "-o", "html")
	var cfgErr *adapter.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "output", cfgErr.Key)
}

func TestRoot_Completion(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "dress")
}

// captureSnapshot writes a snapshot of the test database and returns the
// file and run id.
func captureSnapshot(t *testing.T, dbPath string) (string, string) {
	t.Helper()
	snapPath := filepath.Join(t.TempDir(), "snap.db")

	out, _, err := run(t, sqliteArgs(dbPath, "snapshot", "--out", snapPath, "-o", "json")...)
	require.NoError(t, err)

	var result struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	return snapPath, result.RunID
}

func TestRoot_ReadFromSnapshot(t *testing.T) {
	dbPath := setupTestDatabase(t)
	snapPath, runID := captureSnapshot(t, dbPath)

	// The source database is gone; reads must come from the snapshot alone.
	require.NoError(t, os.Remove(dbPath))

	t.Run("describe", func(t *testing.T) {
		out, _, err := run(t, "describe", "--from", snapPath, "-o", "json")
		require.NoError(t, err)

		var tables []snapshot.Table
		require.NoError(t, json.Unmarshal([]byte(out), &tables))
		require.Len(t, tables, 2)
		assert.Equal(t, "orders", tables[0].Name)
		assert.Equal(t, "users", tables[1].Name)
		require.Len(t, tables[1].Columns, 3)
		assert.Equal(t, "PRI", tables[1].Columns[0].Key)
	})

	t.Run("columns", func(t *testing.T) {
		out, _, err := run(t, "columns", "users", "--from", snapPath, "--run", runID, "-o", "json")
		require.NoError(t, err)

		var cols []core.Column
		require.NoError(t, json.Unmarshal([]byte(out), &cols))
		require.Len(t, cols, 3)
		assert.Equal(t, "email", cols[1].Name)
		require.NotNil(t, cols[2].Default)
		assert.Equal(t, "'anon'", *cols[2].Default)
	})

	t.Run("ddl", func(t *testing.T) {
		out, _, err := run(t, "ddl", "--from", snapPath)
		require.NoError(t, err)
		assert.Contains(t, out, "CREATE TABLE orders")
		assert.Contains(t, out, "CREATE TABLE users")
	})

	t.Run("unknown run", func(t *testing.T) {
		_, _, err := run(t, "describe", "--from", snapPath, "--run", "nope")
		require.ErrorIs(t, err, snapshot.ErrNoRun)
	})

	t.Run("run without from", func(t *testing.T) {
		_, _, err := run(t, "describe", "--run", runID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--from")
	})
}

func TestRoot_ReadFromMissingSnapshot(t *testing.T) {
	setupTestDatabase(t)

	_, _, err := run(t, "describe", "--from", "missing.db")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, statErr := os.Stat("missing.db")
	assert.True(t, os.IsNotExist(statErr), "reading must not create the snapshot")
}

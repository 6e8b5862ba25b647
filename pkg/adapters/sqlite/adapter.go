// Package sqlite provides a SQLite metadata adapter for dress.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dress/pkg/adapter"
	"github.com/leapstack-labs/dress/pkg/core"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// DefaultTimeout is the busy timeout applied to every connection, in milliseconds.
const DefaultTimeout = 5000

// Params holds SQLite-specific options from adapter.Config.Options.
type Params struct {
	TimeoutMS int `mapstructure:"timeout_ms"`
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase("sqlite", logger)}
}

// Connect opens the database file named by cfg.Database read-only.
// The file must already exist; it is never created.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params := Params{TimeoutMS: DefaultTimeout}
	if err := adapter.DecodeOptions(cfg.Options, &params); err != nil {
		return err
	}
	if cfg.Database == "" {
		return &adapter.ConfigurationError{Key: "database"}
	}
	a.Logger.Debug("opening sqlite database", slog.String("path", cfg.Database))
	return a.Open(ctx, "sqlite", buildSQLiteDSN(cfg.Database, params), cfg)
}

// uriEscaper escapes the characters that delimit parts of a SQLite URI.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// buildSQLiteDSN builds a read-only URI filename for path with the busy
// timeout pragma.
func buildSQLiteDSN(path string, params Params) string {
	return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", uriEscaper.Replace(path), params.TimeoutMS)
}

// GetTables returns user tables from sqlite_master. Names starting with
// "sqlite_" are reserved for the engine's internal tables.
func (a *Adapter) GetTables(ctx context.Context) ([]string, error) {
	return a.TableNames(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND substr(name, 1, 7) <> 'sqlite_'
	`)
}

// GetColumns returns the columns of table from pragma_table_info.
// SQLite has no collation, extra or comment metadata per column, so those
// fields are empty. A missing table yields no columns.
func (a *Adapter) GetColumns(ctx context.Context, table string) ([]adapter.Column, error) {
	const op = "get columns"
	db, err := a.Conn(op)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid
	`
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, a.Fail(op, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]adapter.Column, 0, 16)
	for rows.Next() {
		var (
			name, typ   string
			notNull, pk int
			def         sql.NullString
		)
		if err := rows.Scan(&name, &typ, &notNull, &def, &pk); err != nil {
			return nil, a.Fail(op, fmt.Errorf("failed to scan column: %w", err))
		}

		col := core.Column{
			Name:     name,
			Type:     typ,
			Size:     core.SizeFromType(typ),
			Nullable: notNull == 0,
		}
		if def.Valid {
			col.Default = core.StringPtr(def.String)
		}
		if pk > 0 {
			col.Key = "PRI"
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, a.Fail(op, err)
	}
	return columns, nil
}

// GetTableComment always returns "": SQLite has no table comments.
func (a *Adapter) GetTableComment(_ context.Context, _ string) (string, error) {
	if !a.IsConnected() {
		return "", a.Fail("get table comment", adapter.ErrNotConnected)
	}
	return "", nil
}

// GetCreateStatements concatenates the stored CREATE statement of every table.
func (a *Adapter) GetCreateStatements(ctx context.Context) (string, error) {
	const op = "get create statement"
	tables, err := a.GetTables(ctx)
	if err != nil {
		return "", err
	}
	db, err := a.Conn(op)
	if err != nil {
		return "", err
	}

	stmts := make([]string, 0, len(tables))
	for _, table := range tables {
		var stmt sql.NullString
		err := db.QueryRowContext(ctx,
			"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&stmt)
		if errors.Is(err, sql.ErrNoRows) {
			return "", a.Fail(op, fmt.Errorf("table %s disappeared", table))
		}
		if err != nil {
			return "", a.Fail(op, err)
		}
		stmts = append(stmts, stmt.String)
	}
	return adapter.JoinStatements(stmts), nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

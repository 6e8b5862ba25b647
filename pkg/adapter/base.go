package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/dress/pkg/core"
)

// StatementSeparator terminates every statement in assembled DDL text.
const StatementSeparator = ";\n\n"

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// session handling, error wrapping and table-name helpers.
type BaseSQLAdapter struct {
	Name   string
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// NewBase returns a BaseSQLAdapter for the named adapter.
// If logger is nil, a discard logger is used.
func NewBase(name string, logger *slog.Logger) BaseSQLAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return BaseSQLAdapter{Name: name, Logger: logger}
}

// Open opens and pings a database/sql handle, recording it on success.
func (b *BaseSQLAdapter) Open(ctx context.Context, driver, dsn string, cfg core.AdapterConfig) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return &ConnectionError{Adapter: b.Name, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &ConnectionError{Adapter: b.Name, Err: err}
	}
	b.DB = db
	b.Cfg = cfg
	return nil
}

// Close closes the database connection. Later calls are no-ops.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection", slog.String("adapter", b.Name))
	}
	err := b.DB.Close()
	b.DB = nil
	return err
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Fail wraps err as a QueryError for operation op.
func (b *BaseSQLAdapter) Fail(op string, err error) error {
	return &QueryError{Adapter: b.Name, Op: op, Err: err}
}

// Conn returns the open handle, or a QueryError wrapping ErrNotConnected.
func (b *BaseSQLAdapter) Conn(op string) (*sql.DB, error) {
	if b.DB == nil {
		return nil, b.Fail(op, ErrNotConnected)
	}
	return b.DB, nil
}

// QueryStrings runs a query returning one text column and collects it.
func (b *BaseSQLAdapter) QueryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	db, err := b.Conn(op)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, b.Fail(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, b.Fail(op, fmt.Errorf("failed to scan: %w", err))
		}
		out = append(out, s.String)
	}
	if err := rows.Err(); err != nil {
		return nil, b.Fail(op, err)
	}
	return out, nil
}

// TableNames runs a table-listing query and returns the names sorted and
// de-duplicated.
func (b *BaseSQLAdapter) TableNames(ctx context.Context, query string, args ...any) ([]string, error) {
	names, err := b.QueryStrings(ctx, "get tables", query, args...)
	if err != nil {
		return nil, err
	}
	if names == nil {
		return []string{}, nil
	}
	return core.SortedUnique(names), nil
}

// RequireTable checks table against the names returned by list. Identifiers
// that end up inside SQL text must pass this check first.
func (b *BaseSQLAdapter) RequireTable(ctx context.Context, op, table string, list func(context.Context) ([]string, error)) error {
	tables, err := list(ctx)
	if err != nil {
		return err
	}
	if _, found := slices.BinarySearch(tables, table); !found {
		return b.Fail(op, fmt.Errorf("%w: %s", ErrUnknownTable, table))
	}
	return nil
}

// JoinStatements concatenates statements, terminating each with StatementSeparator.
func JoinStatements(stmts []string) string {
	var sb strings.Builder
	for _, s := range stmts {
		sb.WriteString(s)
		sb.WriteString(StatementSeparator)
	}
	return sb.String()
}

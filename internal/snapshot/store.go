// Package snapshot persists normalized catalog reads into a SQLite file so
// documentation generators can work offline from a known state.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/dress/pkg/core"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// ErrNotOpen is returned by store operations before Open.
var ErrNotOpen = errors.New("snapshot store not open")

// Run describes one captured catalog read.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Datasource string    `json:"datasource" yaml:"datasource"`
	Database   string    `json:"database" yaml:"database"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
	DDL        string    `json:"ddl,omitempty" yaml:"ddl,omitempty"`
}

// Table is one captured table with its comment and columns.
type Table struct {
	Name    string        `json:"name" yaml:"name"`
	Comment string        `json:"comment" yaml:"comment"`
	Columns []core.Column `json:"columns" yaml:"columns"`
}

// Store is a SQLite-backed snapshot store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a new snapshot store instance.
// If logger is nil, a discard logger is used.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens (creating if needed) the snapshot file at path.
// Use ":memory:" for an in-memory store.
func (s *Store) Open(ctx context.Context, path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened snapshot store", slog.String("path", path))
	return nil
}

// Close closes the store. Later calls are no-ops.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Save writes run and its tables in a single transaction.
func (s *Store) Save(ctx context.Context, run Run, tables []Table) error {
	if s.db == nil {
		return ErrNotOpen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, datasource, database_name, captured_at, ddl) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Datasource, run.Database, run.CapturedAt.UTC().Format(time.RFC3339Nano), run.DDL,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	tableStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_tables (run_id, name, comment) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = tableStmt.Close() }()

	colStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_columns
		(run_id, table_name, position, name, type, size, collation, nullable, default_value, extra, comment, role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = colStmt.Close() }()

	for _, t := range tables {
		if _, err := tableStmt.ExecContext(ctx, run.ID, t.Name, t.Comment); err != nil {
			return fmt.Errorf("insert table %s: %w", t.Name, err)
		}
		for i, c := range t.Columns {
			if _, err := colStmt.ExecContext(ctx,
				run.ID, t.Name, i, c.Name, c.Type, c.Size, c.Collation, c.Nullable, c.Default, c.Extra, c.Comment, c.Key,
			); err != nil {
				return fmt.Errorf("insert column %s.%s: %w", t.Name, c.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LatestRun returns the most recently captured run, or nil if there is none.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	run, err := s.scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, datasource, database_name, captured_at, ddl FROM runs
		ORDER BY captured_at DESC, rowid DESC
		LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// GetRun returns the run with the given id, or nil if there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	run, err := s.scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, datasource, database_name, captured_at, ddl FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *Store) scanRun(row *sql.Row) (*Run, error) {
	var (
		run        Run
		capturedAt string
	)
	if err := row.Scan(&run.ID, &run.Datasource, &run.Database, &capturedAt, &run.DDL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("parse captured_at of run %s: %w", run.ID, err)
	}
	run.CapturedAt = t
	return &run, nil
}

// Tables returns the tables captured in run, sorted by name, without columns.
func (s *Store) Tables(ctx context.Context, runID string) ([]Table, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, comment FROM catalog_tables WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := []Table{}
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.Comment); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Columns returns the captured columns of table in run, in natural order.
func (s *Store) Columns(ctx context.Context, runID, table string) ([]core.Column, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, size, collation, nullable, default_value, extra, comment, role
		FROM catalog_columns
		WHERE run_id = ? AND table_name = ?
		ORDER BY position
	`, runID, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := []core.Column{}
	for rows.Next() {
		var (
			c         core.Column
			size      sql.NullInt64
			collation sql.NullString
			def       sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Type, &size, &collation, &c.Nullable, &def, &c.Extra, &c.Comment, &c.Key); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if size.Valid {
			c.Size = &size.Int64
		}
		if collation.Valid {
			c.Collation = &collation.String
		}
		if def.Valid {
			c.Default = &def.String
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

// Package postgres provides a PostgreSQL metadata adapter for dress.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/dress/pkg/adapter"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

const defaultPort = 5432

// Params holds PostgreSQL-specific options from adapter.Config.Options.
type Params struct {
	SSLMode string `mapstructure:"sslmode"`
	PgDump  string `mapstructure:"pg_dump"`
}

func defaultParams() Params {
	return Params{SSLMode: "disable", PgDump: "pg_dump"}
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter

	// Dump runs the schema dump utility for GetCreateStatements.
	Dump   DumpRunner
	params Params
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		BaseSQLAdapter: adapter.NewBase("postgres", logger),
		Dump:           ExecRunner{},
		params:         defaultParams(),
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params := defaultParams()
	if err := adapter.DecodeOptions(cfg.Options, &params); err != nil {
		return err
	}
	if cfg.Database == "" {
		return &adapter.ConfigurationError{Key: "database"}
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
		slog.String("sslmode", params.SSLMode))

	if err := a.Open(ctx, "pgx", buildPostgresDSN(cfg, params), cfg); err != nil {
		return err
	}
	a.params = params
	return nil
}

// buildPostgresDSN constructs a PostgreSQL key/value connection string.
func buildPostgresDSN(cfg adapter.Config, params Params) string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		hostOrDefault(cfg.Host), portOrDefault(cfg.Port), quoteDSNValue(cfg.Database), params.SSLMode)

	if cfg.Username != "" {
		dsn += " user=" + quoteDSNValue(cfg.Username)
	}
	if cfg.Password != "" {
		dsn += " password=" + quoteDSNValue(cfg.Password)
	}

	return dsn
}

func hostOrDefault(host string) string {
	if host == "" {
		return "localhost"
	}
	return host
}

func portOrDefault(port int) int {
	if port == 0 {
		return defaultPort
	}
	return port
}

// quoteDSNValue single-quotes values containing spaces, quotes or backslashes.
func quoteDSNValue(v string) string {
	needs := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}

// GetTables returns the user tables visible in pg_stat_user_tables.
// When a schema is configured only tables in that schema are listed.
func (a *Adapter) GetTables(ctx context.Context) ([]string, error) {
	return a.TableNames(ctx, `
		SELECT relname FROM pg_stat_user_tables
		WHERE ($1 = '' OR schemaname = $1)
	`, a.Cfg.Schema)
}

const columnsQuery = `
	SELECT
		column_name,
		udt_name,
		character_maximum_length,
		collation_name,
		is_nullable,
		column_default
	FROM information_schema.columns
	WHERE table_catalog = $1
	  AND table_name = $2
	  AND ($3 = '' OR table_schema = $3)
	ORDER BY ordinal_position
`

const columnCommentQuery = `
	SELECT pd.description
	FROM pg_stat_user_tables AS psut
	JOIN pg_description AS pd ON psut.relid = pd.objoid
	JOIN pg_attribute AS pa ON pd.objoid = pa.attrelid AND pd.objsubid = pa.attnum
	WHERE psut.relname = $1
	  AND pa.attname = $2
	  AND ($3 = '' OR psut.schemaname = $3)
	  AND pd.objsubid <> 0
	ORDER BY pd.objsubid
	LIMIT 1
`

const columnKeyQuery = `
	SELECT tc.constraint_name, tc.constraint_type
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.constraint_column_usage AS ccu
	  ON tc.table_catalog = ccu.table_catalog
	 AND tc.table_schema = ccu.table_schema
	 AND tc.table_name = ccu.table_name
	 AND tc.constraint_name = ccu.constraint_name
	WHERE tc.table_catalog = $1
	  AND tc.table_name = $2
	  AND ccu.column_name = $3
	  AND ($4 = '' OR tc.table_schema = $4)
	ORDER BY CASE tc.constraint_type
		WHEN 'PRIMARY KEY' THEN 0
		WHEN 'UNIQUE' THEN 1
		ELSE 2
	END, tc.constraint_name
	LIMIT 1
`

const tableCommentQuery = `
	SELECT pd.description
	FROM pg_stat_user_tables AS psut
	JOIN pg_description AS pd ON psut.relid = pd.objoid
	WHERE psut.relname = $1
	  AND ($2 = '' OR psut.schemaname = $2)
	  AND pd.objsubid = 0
	LIMIT 1
`

// GetColumns returns the columns of table in ordinal order, normalized to
// the common Column Record. A table that does not exist yields no columns.
func (a *Adapter) GetColumns(ctx context.Context, table string) ([]adapter.Column, error) {
	const op = "get columns"
	db, err := a.Conn(op)
	if err != nil {
		return nil, err
	}

	cols, err := a.baseColumns(ctx, db, table)
	if err != nil {
		return nil, a.Fail(op, err)
	}

	for i := range cols {
		comment, err := a.columnComment(ctx, db, table, cols[i].Name)
		if err != nil {
			return nil, a.Fail(op, err)
		}
		cols[i].Comment = comment

		cols[i].constraint, cols[i].role, err = a.columnKey(ctx, db, table, cols[i].Name)
		if err != nil {
			return nil, a.Fail(op, err)
		}
	}

	markMultiUnique(cols)
	return project(cols), nil
}

// baseColumns reads information_schema.columns and applies the default
// rewrite to every row.
func (a *Adapter) baseColumns(ctx context.Context, db *sql.DB, table string) ([]keyedColumn, error) {
	rows, err := db.QueryContext(ctx, columnsQuery, a.Cfg.Database, table, a.Cfg.Schema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cols []keyedColumn
	for rows.Next() {
		var (
			col       keyedColumn
			size      sql.NullInt64
			collation sql.NullString
			nullable  string
			def       sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.Type, &size, &collation, &nullable, &def); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		if size.Valid {
			col.Size = &size.Int64
		}
		if collation.Valid {
			col.Collation = &collation.String
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			col.Default, col.Extra = rewriteDefault(&def.String)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func (a *Adapter) columnComment(ctx context.Context, db *sql.DB, table, column string) (string, error) {
	var comment sql.NullString
	err := db.QueryRowContext(ctx, columnCommentQuery, table, column, a.Cfg.Schema).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query comment of %s.%s: %w", table, column, err)
	}
	return comment.String, nil
}

// columnKey returns the constraint name and type covering column, or empty
// strings when it takes part in no constraint.
func (a *Adapter) columnKey(ctx context.Context, db *sql.DB, table, column string) (string, string, error) {
	var name, typ string
	err := db.QueryRowContext(ctx, columnKeyQuery, a.Cfg.Database, table, column, a.Cfg.Schema).Scan(&name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to query key of %s.%s: %w", table, column, err)
	}
	return name, typ, nil
}

// GetTableComment returns the comment on table, or "" when none is set.
func (a *Adapter) GetTableComment(ctx context.Context, table string) (string, error) {
	const op = "get table comment"
	db, err := a.Conn(op)
	if err != nil {
		return "", err
	}

	var comment sql.NullString
	err = db.QueryRowContext(ctx, tableCommentQuery, table, a.Cfg.Schema).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", a.Fail(op, err)
	}
	return comment.String, nil
}

// GetCreateStatements returns the schema-only dump of the database produced
// by pg_dump. The password reaches pg_dump through PGPASSWORD in the child
// environment only.
func (a *Adapter) GetCreateStatements(ctx context.Context) (string, error) {
	if _, err := a.Conn("get create statements"); err != nil {
		return "", err
	}

	args := dumpArgs(a.Cfg)
	a.Logger.Debug("running schema dump",
		slog.String("command", a.params.PgDump),
		slog.String("database", a.Cfg.Database))

	return runDump(ctx, a.Dump, a.params.PgDump, args, []string{"PGPASSWORD=" + a.Cfg.Password})
}

// dumpArgs builds the pg_dump argument list for a schema-only dump.
func dumpArgs(cfg adapter.Config) []string {
	return []string{
		"-U", cfg.Username,
		"--no-password",
		"-h", hostOrDefault(cfg.Host),
		"--schema-only",
		cfg.Database,
		"-p", strconv.Itoa(portOrDefault(cfg.Port)),
	}
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

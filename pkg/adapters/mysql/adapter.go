// Package mysql provides a MySQL metadata adapter for dress.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/dress/pkg/adapter"
	"github.com/leapstack-labs/dress/pkg/core"
)

const (
	defaultPort    = 3306
	defaultCharset = "utf8"
)

// Params holds MySQL-specific options from adapter.Config.Options.
type Params struct {
	Collation string `mapstructure:"collation"`
	TLS       string `mapstructure:"tls"`
	// Timeout is the dial timeout in seconds.
	Timeout int `mapstructure:"timeout"`
}

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase("mysql", logger)}
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if err := adapter.DecodeOptions(cfg.Options, &params); err != nil {
		return err
	}

	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return a.Open(ctx, "mysql", buildMySQLDSN(cfg, params), cfg)
}

// buildMySQLDSN constructs a go-sql-driver DSN.
func buildMySQLDSN(cfg adapter.Config, params Params) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	charset := cfg.Charset
	if charset == "" {
		charset = defaultCharset
	}

	dc := mysqldriver.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	dc.DBName = cfg.Database
	dc.AllowNativePasswords = true
	dc.Params = map[string]string{"charset": charset}
	if params.Collation != "" {
		dc.Collation = params.Collation
	}
	if params.TLS != "" {
		dc.TLSConfig = params.TLS
	}
	if params.Timeout > 0 {
		dc.Timeout = time.Duration(params.Timeout) * time.Second
	}
	return dc.FormatDSN()
}

// quoteIdentifier quotes a MySQL identifier with backticks.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// GetTables returns the tables of the configured database.
func (a *Adapter) GetTables(ctx context.Context) ([]string, error) {
	return a.TableNames(ctx, "SHOW TABLES")
}

// GetColumns returns the columns of table from SHOW FULL COLUMNS.
// The native row shape is Field, Type, Collation, Null, Key, Default,
// Extra, Privileges, Comment.
func (a *Adapter) GetColumns(ctx context.Context, table string) ([]adapter.Column, error) {
	const op = "get columns"
	db, err := a.Conn(op)
	if err != nil {
		return nil, err
	}
	if err := a.RequireTable(ctx, op, table, a.GetTables); err != nil {
		return nil, err
	}

	//nolint:gosec // table is checked against SHOW TABLES above
	rows, err := db.QueryContext(ctx, "SHOW FULL COLUMNS FROM "+quoteIdentifier(table))
	if err != nil {
		return nil, a.Fail(op, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]adapter.Column, 0, 16)
	for rows.Next() {
		var (
			field, typ, null, key, extra, privileges, comment string
			collation, def                                    sql.NullString
		)
		if err := rows.Scan(&field, &typ, &collation, &null, &key, &def, &extra, &privileges, &comment); err != nil {
			return nil, a.Fail(op, fmt.Errorf("failed to scan column: %w", err))
		}

		col := core.Column{
			Name:     field,
			Type:     typ,
			Size:     core.SizeFromType(typ),
			Nullable: null == "YES",
			Extra:    extra,
			Comment:  comment,
			Key:      core.RoleMarker(key),
		}
		if collation.Valid {
			col.Collation = core.StringPtr(collation.String)
		}
		if def.Valid {
			col.Default = core.StringPtr(def.String)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, a.Fail(op, err)
	}
	return columns, nil
}

// GetTableComment returns the TABLE_COMMENT of table, or "" if unset.
func (a *Adapter) GetTableComment(ctx context.Context, table string) (string, error) {
	const op = "get table comment"
	db, err := a.Conn(op)
	if err != nil {
		return "", err
	}

	query := `
		SELECT TABLE_COMMENT
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	`
	var comment sql.NullString
	err = db.QueryRowContext(ctx, query, table).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", a.Fail(op, err)
	}
	return comment.String, nil
}

// GetCreateStatements concatenates SHOW CREATE TABLE output for every table.
func (a *Adapter) GetCreateStatements(ctx context.Context) (string, error) {
	tables, err := a.GetTables(ctx)
	if err != nil {
		return "", err
	}

	stmts := make([]string, 0, len(tables))
	for _, table := range tables {
		stmt, err := a.createStatement(ctx, table)
		if err != nil {
			return "", err
		}
		stmts = append(stmts, stmt)
	}
	return adapter.JoinStatements(stmts), nil
}

// createStatement returns the second column of SHOW CREATE TABLE. Views
// return four columns instead of two, so the row is scanned generically.
func (a *Adapter) createStatement(ctx context.Context, table string) (string, error) {
	const op = "get create statement"
	db, err := a.Conn(op)
	if err != nil {
		return "", err
	}

	//nolint:gosec // table comes from SHOW TABLES
	rows, err := db.QueryContext(ctx, "SHOW CREATE TABLE "+quoteIdentifier(table))
	if err != nil {
		return "", a.Fail(op, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return "", a.Fail(op, err)
	}
	if len(cols) < 2 {
		return "", a.Fail(op, fmt.Errorf("unexpected result shape for %s: %v", table, cols))
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", a.Fail(op, err)
		}
		return "", a.Fail(op, fmt.Errorf("no create statement for %s", table))
	}

	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return "", a.Fail(op, fmt.Errorf("failed to scan create statement: %w", err))
	}
	return vals[1].String, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

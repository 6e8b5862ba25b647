package commands

import (
	"context"

	"github.com/leapstack-labs/dress/internal/snapshot"
	"github.com/leapstack-labs/dress/pkg/core"
	"github.com/spf13/cobra"
)

// tableComment is the structured form of the comment command's output.
type tableComment struct {
	Table   string `json:"table" yaml:"table"`
	Comment string `json:"comment" yaml:"comment"`
}

// ddlDocument is the structured form of the ddl command's output.
type ddlDocument struct {
	DDL string `json:"ddl" yaml:"ddl"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Long:  `List the user tables of the configured datasource, sorted by name.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := GetEnv(cmd.Context())
			src, err := env.Source.Instance(cmd.Context())
			if err != nil {
				return err
			}

			tables, err := src.GetTables(cmd.Context())
			if err != nil {
				return err
			}

			if handled, err := env.Renderer.Data(tables); handled {
				return err
			}
			rows := make([][]string, len(tables))
			for i, t := range tables {
				rows[i] = []string{t}
			}
			env.Renderer.Table([]string{"Table"}, rows)
			return nil
		},
	}
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	var snap snapshotSource

	cmd := &cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table",
		Long: `Describe the columns of a table as normalized records:
Field, Type, Size, Collation, Null, Default, Extra, Comment, Key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := GetEnv(cmd.Context())
			cols, err := readColumns(cmd.Context(), env, &snap, args[0])
			if err != nil {
				return err
			}
			if len(cols) == 0 {
				env.Renderer.Warn("table %s has no columns or does not exist", args[0])
			}
			return renderColumns(env, cols)
		},
	}

	snap.addFlags(cmd)
	return cmd
}

// readColumns reads the columns of table from the snapshot when one is
// selected, otherwise from the live datasource.
func readColumns(ctx context.Context, env *Env, snap *snapshotSource, table string) ([]core.Column, error) {
	fromSnapshot, err := snap.enabled()
	if err != nil {
		return nil, err
	}
	if fromSnapshot {
		store, run, err := snap.open(ctx, env)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		return store.Columns(ctx, run.ID, table)
	}

	src, err := env.Source.Instance(ctx)
	if err != nil {
		return nil, err
	}
	return src.GetColumns(ctx, table)
}

func renderColumns(env *Env, cols []core.Column) error {
	if handled, err := env.Renderer.Data(cols); handled {
		return err
	}
	rows := make([][]string, len(cols))
	for i, c := range cols {
		rows[i] = c.Strings()
	}
	env.Renderer.Table(core.ColumnHeaders[:], rows)
	return nil
}

// NewCommentCommand creates the comment command.
func NewCommentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <table>",
		Short: "Show the comment of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := GetEnv(cmd.Context())
			src, err := env.Source.Instance(cmd.Context())
			if err != nil {
				return err
			}

			comment, err := src.GetTableComment(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if handled, err := env.Renderer.Data(tableComment{Table: args[0], Comment: comment}); handled {
				return err
			}
			env.Renderer.Println(comment)
			return nil
		},
	}
}

// NewDDLCommand creates the ddl command.
func NewDDLCommand() *cobra.Command {
	var snap snapshotSource

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE statements of every table",
		Long: `Print the DDL of the configured datasource.

For PostgreSQL this runs pg_dump --schema-only; set database.options.pg_dump
to use a specific binary. With --from the DDL stored in a snapshot is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := GetEnv(cmd.Context())
			ddl, err := readDDL(cmd.Context(), env, &snap)
			if err != nil {
				return err
			}

			if handled, err := env.Renderer.Data(ddlDocument{DDL: ddl}); handled {
				return err
			}
			_, err = env.Renderer.Out().Write([]byte(ddl))
			return err
		},
	}

	snap.addFlags(cmd)
	return cmd
}

func readDDL(ctx context.Context, env *Env, snap *snapshotSource) (string, error) {
	fromSnapshot, err := snap.enabled()
	if err != nil {
		return "", err
	}
	if fromSnapshot {
		store, run, err := snap.open(ctx, env)
		if err != nil {
			return "", err
		}
		_ = store.Close()
		return run.DDL, nil
	}

	src, err := env.Source.Instance(ctx)
	if err != nil {
		return "", err
	}
	return src.GetCreateStatements(ctx)
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	var snap snapshotSource

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe every table with its comment and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := GetEnv(cmd.Context())
			tables, err := readTables(cmd.Context(), env, &snap)
			if err != nil {
				return err
			}
			return describe(env, tables)
		},
	}

	snap.addFlags(cmd)
	return cmd
}

func readTables(ctx context.Context, env *Env, snap *snapshotSource) ([]snapshot.Table, error) {
	fromSnapshot, err := snap.enabled()
	if err != nil {
		return nil, err
	}
	if fromSnapshot {
		store, run, err := snap.open(ctx, env)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		return snapshot.Load(ctx, store, run)
	}

	src, err := env.Source.Instance(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.ReadTables(ctx, src)
}

func describe(env *Env, tables []snapshot.Table) error {

	if handled, err := env.Renderer.Data(tables); handled {
		return err
	}
	for i, t := range tables {
		if i > 0 {
			env.Renderer.Println()
		}
		env.Renderer.Heading(t.Name)
		if t.Comment != "" {
			env.Renderer.Println(t.Comment)
			env.Renderer.Println()
		}
		if err := renderColumns(env, t.Columns); err != nil {
			return err
		}
	}
	return nil
}

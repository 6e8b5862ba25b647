package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/dress/internal/snapshot"
	"github.com/spf13/cobra"
)

// DefaultSnapshotFile is where snapshots are written when --out is not given.
const DefaultSnapshotFile = ".dress/snapshot.db"

// snapshotResult is the structured form of the snapshot command's output.
type snapshotResult struct {
	RunID         string `json:"run_id" yaml:"run_id"`
	File          string `json:"file" yaml:"file"`
	SchemaVersion int64  `json:"schema_version" yaml:"schema_version"`
	Tables        int    `json:"tables" yaml:"tables"`
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the catalog into a SQLite snapshot file",
		Long: `Read every table, comment, column and the DDL of the configured
datasource and store them as a new run in a SQLite snapshot file.

The file is created if needed. Read it back offline with --from on the
columns, ddl and describe commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := GetEnv(cmd.Context())
			ctx := cmd.Context()

			adapterCfg, err := env.Config.Adapter()
			if err != nil {
				return err
			}
			src, err := env.Source.Instance(ctx)
			if err != nil {
				return err
			}

			if dir := filepath.Dir(outPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return fmt.Errorf("failed to create snapshot directory: %w", err)
				}
			}

			store := snapshot.NewStore(env.Logger)
			if err := store.Open(ctx, outPath); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			runID, err := snapshot.Capture(ctx, src, store, adapterCfg)
			if err != nil {
				return err
			}
			tables, err := store.Tables(ctx, runID)
			if err != nil {
				return err
			}

			version, err := store.MigrationVersion(ctx)
			if err != nil {
				return err
			}

			result := snapshotResult{RunID: runID, File: store.Path(), SchemaVersion: version, Tables: len(tables)}
			if handled, err := env.Renderer.Data(result); handled {
				return err
			}
			env.Renderer.Println(fmt.Sprintf("Captured %d tables into %s (run %s)", result.Tables, result.File, result.RunID))
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", DefaultSnapshotFile, "Snapshot file to write")
	return cmd
}

// snapshotSource selects a snapshot file to read instead of the live datasource.
type snapshotSource struct {
	from  string
	runID string
}

func (s *snapshotSource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.from, "from", "", "Read from a snapshot file instead of the datasource")
	cmd.Flags().StringVar(&s.runID, "run", "", "Snapshot run to read (default: latest; requires --from)")
}

// enabled reports whether --from was given. --run alone is an error.
func (s *snapshotSource) enabled() (bool, error) {
	if s.from == "" && s.runID != "" {
		return false, fmt.Errorf("--run requires --from")
	}
	return s.from != "", nil
}

// open opens the snapshot file and resolves the selected run. The caller
// must close the returned store.
func (s *snapshotSource) open(ctx context.Context, env *Env) (*snapshot.Store, *snapshot.Run, error) {
	store := snapshot.NewStore(env.Logger)
	if err := snapshot.OpenExisting(ctx, store, s.from); err != nil {
		return nil, nil, err
	}
	run, err := snapshot.ResolveRun(ctx, store, s.runID)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	env.Logger.Debug("reading snapshot", slog.String("path", store.Path()), slog.String("run_id", run.ID))
	return store, run, nil
}

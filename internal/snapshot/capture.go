package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/dress/pkg/adapter"
	"golang.org/x/sync/errgroup"
)

// readConcurrency bounds the tables read at once by ReadTables.
const readConcurrency = 4

// ReadTables collects every table of src with its comment and columns, in
// GetTables order. Any failing accessor aborts the read.
func ReadTables(ctx context.Context, src adapter.Adapter) ([]Table, error) {
	names, err := src.GetTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, len(names))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(readConcurrency)
	for i, name := range names {
		eg.Go(func() error {
			comment, err := src.GetTableComment(egctx, name)
			if err != nil {
				return err
			}
			cols, err := src.GetColumns(egctx, name)
			if err != nil {
				return err
			}
			tables[i] = Table{Name: name, Comment: comment, Columns: cols}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Read collects the full catalog of src: the tables from ReadTables plus
// the DDL text.
func Read(ctx context.Context, src adapter.Adapter) ([]Table, string, error) {
	tables, err := ReadTables(ctx, src)
	if err != nil {
		return nil, "", err
	}
	ddl, err := src.GetCreateStatements(ctx)
	if err != nil {
		return nil, "", err
	}
	return tables, ddl, nil
}

// Capture reads the catalog of src and saves it to store as a new run.
// cfg only labels the run; src must already be connected.
func Capture(ctx context.Context, src adapter.Adapter, store *Store, cfg adapter.Config) (string, error) {
	tables, ddl, err := Read(ctx, src)
	if err != nil {
		return "", fmt.Errorf("read catalog: %w", err)
	}

	run := Run{
		ID:         uuid.New().String(),
		Datasource: cfg.Type,
		Database:   cfg.Database,
		CapturedAt: time.Now().UTC(),
		DDL:        ddl,
	}
	if err := store.Save(ctx, run, tables); err != nil {
		return "", err
	}

	store.logger.Info("captured catalog snapshot",
		slog.String("run_id", run.ID),
		slog.String("datasource", run.Datasource),
		slog.Int("tables", len(tables)))
	return run.ID, nil
}

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNoRun is returned when a snapshot file holds no matching run.
var ErrNoRun = errors.New("no snapshot run found")

// OpenExisting opens a snapshot file for reading. Unlike Open it never
// creates the file.
func OpenExisting(ctx context.Context, store *Store, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	return store.Open(ctx, path)
}

// ResolveRun returns the run with id, or the latest run when id is empty.
func ResolveRun(ctx context.Context, store *Store, id string) (*Run, error) {
	var (
		run *Run
		err error
	)
	if id == "" {
		run, err = store.LatestRun(ctx)
	} else {
		run, err = store.GetRun(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		if id == "" {
			return nil, fmt.Errorf("%w in %s", ErrNoRun, store.Path())
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrNoRun, id, store.Path())
	}
	return run, nil
}

// Load returns the tables of run with their columns, sorted by name.
func Load(ctx context.Context, store *Store, run *Run) ([]Table, error) {
	tables, err := store.Tables(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		cols, err := store.Columns(ctx, run.ID, tables[i].Name)
		if err != nil {
			return nil, err
		}
		tables[i].Columns = cols
	}
	return tables, nil
}

// Package adapter provides the metadata source contract for dress.
//
// This package contains the public contract that every database adapter
// must implement, the shared database/sql plumbing, the adapter registry,
// and the process-wide Source that hands out a connected adapter.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/leapstack-labs/dress/pkg/core"
)

// Type aliases for convenience - these types are defined in pkg/core.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column
)

// Adapter defines the interface that all metadata sources must implement.
// Every capability is present on every adapter; engines without support for
// one return a neutral value instead.
type Adapter interface {
	// Connect establishes the session using the provided config.
	// Call it at most once per instance.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the session. It is a no-op when never connected and
	// safe to call more than once.
	Close() error

	// GetTables returns the sorted, de-duplicated table names.
	GetTables(ctx context.Context) ([]string, error)

	// GetColumns returns the normalized columns of table in natural order.
	GetColumns(ctx context.Context, table string) ([]Column, error)

	// GetTableComment returns the table comment, or "" when unsupported or unset.
	GetTableComment(ctx context.Context, table string) (string, error)

	// GetCreateStatements returns DDL for the whole database.
	GetCreateStatements(ctx context.Context) (string, error)
}

// Package sqlite provides a SQLite metadata adapter for dress.
//
// This file registers the SQLite adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/dress/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/dress/pkg/adapter"
)

func init() {
	adapter.Register(adapter.TypeSQLite, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

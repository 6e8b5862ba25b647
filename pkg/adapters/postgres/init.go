// Package postgres provides a PostgreSQL metadata adapter for dress.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/dress/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/dress/pkg/adapter"
)

func init() {
	adapter.Register(adapter.TypePostgreSQL, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

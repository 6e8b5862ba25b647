// Package mysql provides a MySQL metadata adapter for dress.
//
// This file registers the MySQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/dress/pkg/adapters/mysql"
package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/dress/pkg/adapter"
)

func init() {
	adapter.Register(adapter.TypeMySQL, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

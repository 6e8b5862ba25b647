// Package core defines the shared vocabulary of dress.
//
// This package contains:
//   - The normalized column record (Column) every adapter returns
//   - Connection configuration (AdapterConfig)
//   - Small helpers for table-name sets and declared-type parsing
//
// pkg/core imports only the standard library.
// All other packages depend on core, not the reverse.
package core

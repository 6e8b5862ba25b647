package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by accessors called before Connect or after Close.
	ErrNotConnected = errors.New("database connection not established")

	// ErrUnknownTable is returned when a table name is not in the GetTables set.
	ErrUnknownTable = errors.New("unknown table")
)

// ConfigurationError reports a missing or unrecognized configuration value.
type ConfigurationError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration: %s is required", e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration: invalid %s %q: %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("configuration: invalid %s %q", e.Key, e.Value)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports that the engine refused or could not open a session.
type ConnectionError struct {
	Adapter string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Adapter, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a failed catalog query.
type QueryError struct {
	Adapter string
	Op      string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Adapter, e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// DumpError reports that an external dump utility produced no usable output.
// Stderr holds whatever the utility wrote to standard error.
type DumpError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *DumpError) Error() string {
	msg := e.Stderr
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "no output"
	}
	return fmt.Sprintf("%s: %s", e.Command, msg)
}

func (e *DumpError) Unwrap() error { return e.Err }

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown datasource %q\nAvailable datasources: %v\nHint: Check database.datasource in dress.yaml", e.Type, e.Available)
}

package adapter

import (
	"log/slog"
	"sort"
	"sync"
)

// Datasource discriminators accepted in configuration.
const (
	TypeMySQL      = "Database/MySQL"
	TypePostgreSQL = "Database/PostgreSQL"
	TypeSQLite     = "Database/SQLite3"
)

// Factory builds an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an adapter factory to the registry.
// Called by adapter implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves an adapter factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewAdapter creates a new, unconnected adapter based on config type.
// The logger parameter is passed to the adapter constructor (nil uses discard logger).
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, &ConfigurationError{Key: "datasource"}
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &ConfigurationError{
			Key:   "datasource",
			Value: cfg.Type,
			Err: &UnknownAdapterError{
				Type:      cfg.Type,
				Available: ListAdapters(),
			},
		}
	}
	return factory(logger), nil
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

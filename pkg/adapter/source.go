package adapter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// LoadFunc supplies the connection configuration for a Source.
type LoadFunc func() (Config, error)

// Source hands out one lazily connected adapter for the life of the process.
// The first Instance call loads configuration, builds the adapter selected by
// its datasource discriminator and connects it; later calls return the same
// instance without reconnecting.
type Source struct {
	mu       sync.Mutex
	load     LoadFunc
	logger   *slog.Logger
	instance Adapter
}

// NewSource creates a Source. If logger is nil, a discard logger is used.
func NewSource(load LoadFunc, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{load: load, logger: logger}
}

// Instance returns the cached adapter, creating and connecting it on first use.
// On any error the cache is left untouched.
func (s *Source) Instance(ctx context.Context) (Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.instance != nil {
		return s.instance, nil
	}

	cfg, err := s.load()
	if err != nil {
		return nil, err
	}

	a, err := Open(ctx, cfg, s.logger)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("datasource connected", slog.String("datasource", cfg.Type))
	s.instance = a
	return a, nil
}

// Close closes the cached adapter, if any, and clears the cache so the next
// Instance call connects afresh.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.instance == nil {
		return nil
	}
	err := s.instance.Close()
	s.instance = nil
	return err
}

// Open creates and connects the adapter selected by cfg.Type.
// The caller owns the returned adapter and must Close it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	a, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// With opens an adapter, passes it to fn and closes it on every exit path.
func With(ctx context.Context, cfg Config, logger *slog.Logger, fn func(Adapter) error) (err error) {
	a, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}

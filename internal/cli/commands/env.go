// Package commands implements the dress subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/leapstack-labs/dress/internal/cli/output"
	"github.com/leapstack-labs/dress/internal/config"
	"github.com/leapstack-labs/dress/pkg/adapter"
)

// Env is the per-invocation state shared by commands.
type Env struct {
	Config   *config.Config
	Source   *adapter.Source
	Renderer *output.Renderer
	Logger   *slog.Logger
}

// envKey is used to store the Env in a command context.
type envKey struct{}

// WithEnv returns a copy of ctx carrying env.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// GetEnv retrieves the Env from ctx. Without one, it returns an Env with
// default config, a source that always fails to load and a stdout renderer.
func GetEnv(ctx context.Context) *Env {
	if e, ok := ctx.Value(envKey{}).(*Env); ok && e != nil {
		return e
	}
	cfg := &config.Config{Output: config.DefaultOutput}
	return &Env{
		Config:   cfg,
		Source:   adapter.NewSource(cfg.Adapter, nil),
		Renderer: output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto),
		Logger:   config.GetLogger(ctx),
	}
}

// Package app wires the compiler pipeline together for the CLI: it loads
// the hardware graph, builds the step registry and dispatches the chosen
// mode. Startup failures are programmer or environment errors and panic;
// the CLI entrypoint recovers and turns them into a clean exit.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mcrav/xdl/internal/ctxlog"
	"github.com/mcrav/xdl/internal/graph"
	"github.com/mcrav/xdl/internal/step"
	"github.com/mcrav/xdl/internal/steps"
)

// App encapsulates the application's dependencies, configuration and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
	reg    *step.Registry
	graph  *graph.Graph
}

// NewApp constructs the application: logger, step registry and hardware
// graph. A graph that does not load or validate is a fatal startup error.
func NewApp(outW io.Writer, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	src, err := os.ReadFile(cfg.GraphPath)
	if err != nil {
		panic(fmt.Errorf("failed to read hardware graph: %w", err))
	}
	g, err := graph.Load(src, cfg.GraphPath)
	if err != nil {
		panic(fmt.Errorf("failed to load hardware graph: %w", err))
	}
	logger.Debug("Hardware graph loaded.", "nodes", len(g.Nodes()), "hash", g.Hash()[:12])

	reg := steps.NewRegistry()
	logger.Debug("Step registry populated.", "kinds", len(reg.Kinds()))

	return &App{
		outW:   outW,
		logger: logger,
		cfg:    cfg,
		reg:    reg,
		graph:  g,
	}
}

// Context returns the app's base context with its logger attached.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Registry returns the step registry. Primarily for testing.
func (a *App) Registry() *step.Registry {
	return a.reg
}

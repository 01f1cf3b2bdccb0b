// Package app implements the application layer for bub.
package app

import (
	"context"

	"go.trai.ch/zerr"

	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
	"github.com/GrahamStJack/bottom-up-build/internal/engine/planner"
)

// App represents the main application logic.
type App struct {
	planner *planner.Planner
}

// New creates a new App instance.
func New(pl *planner.Planner) *App {
	return &App{planner: pl}
}

// Build runs a full build with the given worker count.
func (a *App) Build(ctx context.Context, workers int) error {
	if err := a.planner.Build(ctx, workers); err != nil {
		return zerr.Wrap(err, "build execution failed")
	}
	return nil
}

// Graph plans the project and returns its YAML description.
func (a *App) Graph() (string, error) {
	return a.planner.Describe()
}

// Components contains the initialized application components the CLI layer
// needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

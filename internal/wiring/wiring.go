// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/GrahamStJack/bottom-up-build/internal/adapters/depcache"
	_ "github.com/GrahamStJack/bottom-up-build/internal/adapters/logger"
	_ "github.com/GrahamStJack/bottom-up-build/internal/adapters/options"
	_ "github.com/GrahamStJack/bottom-up-build/internal/adapters/scan"
	_ "github.com/GrahamStJack/bottom-up-build/internal/adapters/telemetry"
	_ "github.com/GrahamStJack/bottom-up-build/internal/adapters/worker"
	// Register app and engine nodes.
	_ "github.com/GrahamStJack/bottom-up-build/internal/app"
	_ "github.com/GrahamStJack/bottom-up-build/internal/engine/planner"
)

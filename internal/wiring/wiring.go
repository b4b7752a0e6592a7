// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/quake/internal/adapters/fs"
	_ "go.trai.ch/quake/internal/adapters/logger"
	_ "go.trai.ch/quake/internal/adapters/quakefile"
	_ "go.trai.ch/quake/internal/adapters/shell"
	_ "go.trai.ch/quake/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/quake/internal/app"
	_ "go.trai.ch/quake/internal/engine/dirty"
	_ "go.trai.ch/quake/internal/engine/scheduler"
)

package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/quake/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/quake/internal/adapters/quakefile" //nolint:depguard // Wired in app layer
	"go.trai.ch/quake/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/quake/internal/core/ports"
	"go.trai.ch/quake/internal/engine/dirty"
	"go.trai.ch/quake/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components bundles the App with the collaborators the CLI layer needs.
type Components struct {
	App    *App
	Logger ports.Logger
	// Tracer is exposed so main can flush the progress renderer on exit.
	Tracer ports.Tracer
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			quakefile.NodeID,
			dirty.NodeID,
			scheduler.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.ScriptLoader](ctx)
			if err != nil {
				return nil, err
			}
			checker, err := graft.Dep[*dirty.Checker](ctx)
			if err != nil {
				return nil, err
			}
			sched, err := graft.Dep[*scheduler.Scheduler](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(loader, checker, sched, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}
	return &Components{
		App:    app,
		Logger: log,
		Tracer: tracer,
	}, nil
}

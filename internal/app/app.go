// Package app implements the invocation layer: load a script, declare
// the target, annotate dirtiness, and hand the graph to the scheduler.
package app

import (
	"context"
	"runtime"

	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/quake/internal/core/ports"
	"go.trai.ch/quake/internal/engine/declare"
	"go.trai.ch/quake/internal/engine/dirty"
	"go.trai.ch/quake/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Options controls a single invocation.
type Options struct {
	// Parallelism bounds concurrent run bodies; zero or negative picks
	// runtime.NumCPU().
	Parallelism int
	// FailFast stops dispatching new work after the first failure.
	FailFast bool
}

// App wires the engine phases behind a small invocation API.
type App struct {
	loader  ports.ScriptLoader
	checker *dirty.Checker
	sched   *scheduler.Scheduler
	log     ports.Logger
}

// New creates a new App instance.
func New(loader ports.ScriptLoader, checker *dirty.Checker, sched *scheduler.Scheduler, log ports.Logger) *App {
	return &App{
		loader:  loader,
		checker: checker,
		sched:   sched,
		log:     log,
	}
}

// Invoke builds the target bound to args: declaration, dirty annotation,
// then scheduling. The returned report is non-nil whenever scheduling ran;
// a nil report means the invocation failed before any run body could.
func (a *App) Invoke(ctx context.Context, scriptPath, target string, args []string, opts Options) (*domain.Report, error) {
	tree, err := a.Plan(ctx, scriptPath, target, args)
	if err != nil {
		return nil, err
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	report := a.sched.Run(ctx, tree, scheduler.Options{
		Parallelism: parallelism,
		FailFast:    opts.FailFast,
	})
	return report, report.Err()
}

// Plan runs the declaration and dirty-annotation phases only, returning
// the annotated run tree. No run body executes.
func (a *App) Plan(ctx context.Context, scriptPath, target string, args []string) (*domain.RunNode, error) {
	if target == "" {
		return nil, domain.ErrNoTargetSpecified
	}

	reg, err := a.load(scriptPath)
	if err != nil {
		return nil, err
	}

	ev := declare.NewEvaluator(reg)
	root, err := ev.Declare(ctx, target, args)
	if err != nil {
		return nil, zerr.Wrap(err, "declaration failed")
	}

	tree := domain.NewRunTree(root)
	if err := a.checker.Annotate(ctx, tree); err != nil {
		return nil, zerr.Wrap(err, "dirty annotation failed")
	}
	return tree, nil
}

// List returns the names of all registered tasks in registration order.
func (a *App) List(scriptPath string) ([]string, error) {
	reg, err := a.load(scriptPath)
	if err != nil {
		return nil, err
	}
	return reg.Names(), nil
}

func (a *App) load(scriptPath string) (*domain.Registry, error) {
	reg := domain.NewRegistry()
	if err := a.loader.Load(scriptPath, reg); err != nil {
		return nil, zerr.Wrap(err, "loading script failed")
	}
	return reg, nil
}

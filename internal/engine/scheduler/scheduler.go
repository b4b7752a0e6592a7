// Package scheduler implements the run phase: concurrent execution of run
// bodies over the frozen, fully declared graph.
package scheduler

import (
	"context"
	"fmt"
	"io"

	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/quake/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options configures a scheduler run.
type Options struct {
	// Parallelism bounds the number of concurrently executing run bodies.
	Parallelism int
	// FailFast cancels pending dispatch after the first failure. In-flight
	// run bodies are always allowed to finish; a forced mid-body kill would
	// leave partially written artifacts in an undefined state.
	FailFast bool
}

// Scheduler executes the declared graph. The graph is read-only by the time
// Run is called; the only shared mutable state is each instance's completion
// record and waiter notification.
type Scheduler struct {
	tracer ports.Tracer
	log    ports.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(tracer ports.Tracer, log ports.Logger) *Scheduler {
	return &Scheduler{
		tracer: tracer,
		log:    log,
	}
}

// Run executes the tree's run bodies respecting dependency order. An
// instance becomes runnable once all of its dependencies are terminal; only
// independent subtrees execute concurrently. Every instance reaches a
// terminal state and the result is always a structured report.
func (s *Scheduler) Run(ctx context.Context, tree *domain.RunNode, opts Options) *domain.Report {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	state := s.newRunState(ctx, tree, opts)
	s.tracer.EmitPlan(ctx, state.planned())

	state.loop()

	return state.report(tree)
}

type result struct {
	key domain.InstanceKey
	err error
}

type runState struct {
	s    *Scheduler
	ctx  context.Context
	stop context.CancelFunc
	opts Options

	// bodyCtx is handed to run bodies. It is detached from ctx so that
	// cancelling dispatch never kills an in-flight body mid-write; a started
	// body always runs to completion.
	bodyCtx context.Context

	order      []*domain.Instance
	nodes      map[domain.InstanceKey]*domain.Instance
	inDegree   map[domain.InstanceKey]int
	dependents map[domain.InstanceKey][]domain.InstanceKey

	ready     []domain.InstanceKey
	active    int
	resultsCh chan result

	executed []string
	upToDate []string
	failed   []domain.InstanceKey
	skipped  []string
}

func (s *Scheduler) newRunState(ctx context.Context, tree *domain.RunNode, opts Options) *runState {
	ctx, stop := context.WithCancel(ctx)

	flat := tree.Flatten()
	state := &runState{
		s:          s,
		ctx:        ctx,
		stop:       stop,
		bodyCtx:    context.WithoutCancel(ctx),
		opts:       opts,
		order:      make([]*domain.Instance, 0, len(flat)),
		nodes:      make(map[domain.InstanceKey]*domain.Instance, len(flat)),
		inDegree:   make(map[domain.InstanceKey]int, len(flat)),
		dependents: make(map[domain.InstanceKey][]domain.InstanceKey, len(flat)),
		resultsCh:  make(chan result, opts.Parallelism),
	}

	for _, node := range flat {
		inst := node.Instance
		state.order = append(state.order, inst)
		state.nodes[inst.Key()] = inst
	}

	// Edge lists may repeat an instance declared twice; degree counting and
	// reverse edges deduplicate by key.
	for _, inst := range state.nodes {
		seen := make(map[domain.InstanceKey]bool)
		for _, dep := range inst.Dependencies() {
			if seen[dep.Key()] {
				continue
			}
			seen[dep.Key()] = true
			state.inDegree[inst.Key()]++
			state.dependents[dep.Key()] = append(state.dependents[dep.Key()], inst.Key())
		}
	}

	// Seed the ready queue in flattened order for a deterministic sequential
	// fallback when Parallelism is 1.
	for _, inst := range state.order {
		if state.inDegree[inst.Key()] == 0 {
			state.ready = append(state.ready, inst.Key())
		}
	}

	return state
}

func (state *runState) planned() []string {
	ids := make([]string, len(state.order))
	for i, inst := range state.order {
		ids[i] = inst.ID()
	}
	return ids
}

func (state *runState) loop() {
	defer state.stop()

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		// After cancellation nothing new dispatches; block on the results
		// channel until the in-flight bodies drain.
		if state.ctx.Err() != nil {
			if state.active == 0 {
				break
			}
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	state.drainCancelled()
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

// schedule dispatches runnable instances. Clean and pure instances resolve
// inline without consuming a worker slot; their dependents may become ready
// in the same pass, so the queue is processed until only real dispatches
// remain or the pool is saturated.
func (state *runState) schedule() {
	if state.ctx.Err() != nil {
		return
	}
	for len(state.ready) > 0 {
		key := state.ready[0]
		inst := state.nodes[key]

		if inline, ok := state.resolveInline(inst); ok {
			state.ready = state.ready[1:]
			state.finish(inst, inline, nil)
			continue
		}

		if state.active >= state.opts.Parallelism || state.ctx.Err() != nil {
			return
		}
		state.ready = state.ready[1:]

		state.active++
		inst.MarkRunning()
		go state.execute(inst)
	}
}

// resolveInline decides terminal states that need no run-body dispatch.
func (state *runState) resolveInline(inst *domain.Instance) (domain.InstanceState, bool) {
	switch {
	case inst.Pure():
		// Pure instances only aggregate dependents' dirtiness and ordering.
		return domain.StateCompleted, true
	case inst.State() == domain.StateClean:
		state.upToDate = append(state.upToDate, inst.ID())
		state.traceCached(inst)
		state.s.log.Info(fmt.Sprintf("skipping %s: artifacts up to date", inst.ID()))
		return domain.StateSkipped, true
	case inst.Definition().Run == nil:
		// Declaration-only but not flagged pure: nothing to execute.
		return domain.StateCompleted, true
	default:
		return "", false
	}
}

func (state *runState) execute(inst *domain.Instance) {
	// Complete the span before the result is sent so the recorder observes
	// it ahead of scheduler shutdown.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.bodyCtx, inst.ID())
		defer span.End()

		state.s.log.Info(fmt.Sprintf("running %s", inst.ID()))

		scope := &runScope{inst: inst, span: span}
		if err := inst.Definition().Run(ctx, scope); err != nil {
			span.RecordError(err)
			return result{key: inst.Key(), err: err}
		}
		return result{key: inst.Key()}
	}()

	state.resultsCh <- res
}

func (state *runState) handleResult(res result) {
	state.active--
	inst := state.nodes[res.key]

	if res.err != nil {
		state.finish(inst, domain.StateFailed, res.err)
		return
	}
	state.executed = append(state.executed, inst.ID())
	state.finish(inst, domain.StateCompleted, nil)
}

// finish records a terminal state and updates scheduling bookkeeping. On
// failure all transitive dependents are skipped before they ever start; in
// fail-fast mode pending dispatch is cancelled outright.
func (state *runState) finish(inst *domain.Instance, terminal domain.InstanceState, err error) {
	if err != nil {
		err = zerr.With(zerr.Wrap(err, domain.ErrTaskFailed.Error()), "instance", inst.ID())
	}
	inst.Finish(terminal, err)

	if terminal == domain.StateFailed {
		state.s.log.Error(err)
		state.failed = append(state.failed, inst.Key())
		state.skipDependents(inst.Key())
		if state.opts.FailFast {
			state.stop()
		}
		return
	}

	for _, depKey := range state.dependents[inst.Key()] {
		if state.nodes[depKey].State().IsTerminal() {
			continue
		}
		state.inDegree[depKey]--
		if state.inDegree[depKey] == 0 {
			state.ready = append(state.ready, depKey)
		}
	}
}

// skipDependents marks every transitive dependent Skipped. None of them has
// started: an instance only becomes runnable once all dependencies complete.
func (state *runState) skipDependents(key domain.InstanceKey) {
	for _, depKey := range state.dependents[key] {
		dep := state.nodes[depKey]
		if dep.State().IsTerminal() {
			continue
		}
		dep.Finish(domain.StateSkipped, nil)
		state.skipped = append(state.skipped, dep.ID())
		state.skipDependents(depKey)
	}
}

// drainCancelled finishes instances that were never dispatched because the
// run was cancelled, so waiters are released and the report is complete.
func (state *runState) drainCancelled() {
	for _, inst := range state.order {
		if inst.State().IsTerminal() || inst.State() == domain.StateRunning {
			continue
		}
		inst.Finish(domain.StateSkipped, nil)
		state.skipped = append(state.skipped, inst.ID())
	}
}

func (state *runState) traceCached(inst *domain.Instance) {
	_, span := state.s.tracer.Start(state.ctx, inst.ID(), ports.WithCached())
	span.SetAttribute("quake.cached", true)
	span.End()
}

func (state *runState) report(tree *domain.RunNode) *domain.Report {
	rep := &domain.Report{
		Target:   tree.Instance.ID(),
		Executed: state.executed,
		UpToDate: state.upToDate,
		Skipped:  state.skipped,
	}
	for _, key := range state.failed {
		inst := state.nodes[key]
		rep.Failures = append(rep.Failures, domain.Failure{
			Instance: inst.ID(),
			Chain:    tree.PathTo(key),
			Err:      inst.Err(),
		})
	}
	return rep
}

// runScope adapts an executing instance and its span to the surface run
// bodies see.
type runScope struct {
	inst *domain.Instance
	span ports.Span
}

var _ domain.RunScope = (*runScope)(nil)

func (r *runScope) Args() []string { return r.inst.Args() }

func (r *runScope) Stdout() io.Writer { return r.span }

func (r *runScope) Stderr() io.Writer { return r.span }

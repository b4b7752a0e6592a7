// Package declare implements the declaration phase: lazy, recursive
// evaluation of declaration bodies that discovers the dependency graph.
package declare

import (
	"context"
	"strings"

	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/zerr"
)

// Evaluator owns the per-invocation instance table and the scope stack. The
// declaration phase is strictly single threaded: the graph is being
// discovered, and scope and identity state is not safe to share. The
// evaluator is therefore never handed to run-phase code; once declaration
// finishes the graph is read-only.
type Evaluator struct {
	reg *domain.Registry

	instances map[domain.InstanceKey]*domain.Instance

	// stack holds the instances currently Declaring, bottom to top. The top
	// entry is the active instance the primitives operate on; the whole
	// stack is the active declaration path used for cycle reporting.
	stack []*domain.Instance

	// failed records declaration bodies that aborted, keyed by instance.
	// Their instances stay Declaring but are no longer on the stack;
	// re-referencing one surfaces the original failure, not a cycle.
	failed map[domain.InstanceKey]error
}

var _ domain.DeclScope = (*Evaluator)(nil)

// NewEvaluator creates an Evaluator over the given registry.
func NewEvaluator(reg *domain.Registry) *Evaluator {
	return &Evaluator{
		reg:       reg,
		instances: make(map[domain.InstanceKey]*domain.Instance),
		failed:    make(map[domain.InstanceKey]error),
	}
}

// Declare resolves the named task bound to args and evaluates its
// declaration body (recursively declaring every reachable dependency).
// Declaring the same (name, args) identity twice yields the same instance,
// and its declaration body runs exactly once.
func (e *Evaluator) Declare(ctx context.Context, name string, args []string) (*domain.Instance, error) {
	inst, err := e.resolve(name, args)
	if err != nil {
		return nil, err
	}
	if err := e.declareInstance(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Instances returns the instance table populated so far.
func (e *Evaluator) Instances() map[domain.InstanceKey]*domain.Instance {
	return e.instances
}

// Args returns the argument tuple of the active instance. Outside a
// declaration body there is no active instance and the result is nil.
func (e *Evaluator) Args() []string {
	active, err := e.active()
	if err != nil {
		return nil
	}
	return active.Args()
}

// Depends implements the depends primitive: the target is resolved (same
// identity is reused), recursively declared before returning, and appended
// as a dependency edge of the active instance.
func (e *Evaluator) Depends(ctx context.Context, name string, args ...string) error {
	active, err := e.active()
	if err != nil {
		return err
	}

	target, err := e.resolve(name, args)
	if err != nil {
		return err
	}

	// A target on the active declaration path means the new edge would
	// close a cycle.
	if e.onStack(target.Key()) {
		return e.cycleError(target)
	}

	if err := e.declareInstance(ctx, target); err != nil {
		return err
	}

	return active.AddDependency(target)
}

// Sources implements the sources primitive.
func (e *Evaluator) Sources(paths ...string) error {
	active, err := e.active()
	if err != nil {
		return err
	}
	return active.AddSources(normalizePaths(paths)...)
}

// Produces implements the produces primitive.
func (e *Evaluator) Produces(paths ...string) error {
	active, err := e.active()
	if err != nil {
		return err
	}
	return active.AddArtifacts(normalizePaths(paths)...)
}

// Subtask implements the subtask primitive: a fresh anonymous instance with
// a generated identity, args bound by value, added as a dependency edge of
// the active instance and declared like any named task.
func (e *Evaluator) Subtask(ctx context.Context, args []string, run domain.RunBody) error {
	active, err := e.active()
	if err != nil {
		return err
	}

	sub := active.NewSubtask(args, run)
	e.instances[sub.Key()] = sub

	if err := e.declareInstance(ctx, sub); err != nil {
		return err
	}

	return active.AddDependency(sub)
}

// resolve returns the instance for (name, args), creating it on first
// reference.
func (e *Evaluator) resolve(name string, args []string) (*domain.Instance, error) {
	def, err := e.reg.Lookup(name)
	if err != nil {
		return nil, err
	}

	bound, err := def.BindArgs(args)
	if err != nil {
		return nil, err
	}

	key := domain.KeyFor(name, bound)
	if inst, ok := e.instances[key]; ok {
		return inst, nil
	}

	inst := domain.NewInstance(def, bound)
	e.instances[key] = inst
	return inst, nil
}

// declareInstance runs the declaration body of an Undeclared instance,
// depth-first pre-order: each dependency it discovers is fully declared
// before evaluation continues. Already-declared instances are left alone;
// an instance whose declaration aborted earlier yields that failure again.
func (e *Evaluator) declareInstance(ctx context.Context, inst *domain.Instance) error {
	if inst.State() != domain.StateUndeclared {
		if err, ok := e.failed[inst.Key()]; ok && !e.onStack(inst.Key()) {
			return err
		}
		return nil
	}

	if err := inst.BeginDeclaration(); err != nil {
		return err
	}
	e.stack = append(e.stack, inst)

	declErr := func() error {
		decl := inst.Definition().Decl
		if decl == nil {
			return nil
		}
		return decl(ctx, e)
	}()

	e.stack = e.stack[:len(e.stack)-1]

	if declErr != nil {
		// Leave the instance in Declaring; the branch is dead for this
		// invocation and the failure is replayed on re-reference.
		err := zerr.With(zerr.Wrap(declErr, "declaration failed"), "instance", inst.ID())
		e.failed[inst.Key()] = err
		return err
	}

	return inst.FinishDeclaration()
}

// onStack reports whether the instance is on the active declaration path.
func (e *Evaluator) onStack(key domain.InstanceKey) bool {
	for _, inst := range e.stack {
		if inst.Key() == key {
			return true
		}
	}
	return false
}

func (e *Evaluator) active() (*domain.Instance, error) {
	if len(e.stack) == 0 {
		return nil, domain.ErrNoScope
	}
	return e.stack[len(e.stack)-1], nil
}

// cycleError reports the full cycle path, from the back-edge target through
// the declaration stack and back to the target. The target is always on the
// stack: onStack gates every call.
func (e *Evaluator) cycleError(target *domain.Instance) error {
	start := 0
	for i, inst := range e.stack {
		if inst.Key() == target.Key() {
			start = i
			break
		}
	}

	path := make([]string, 0, len(e.stack)-start+1)
	for _, inst := range e.stack[start:] {
		path = append(path, inst.ID())
	}
	path = append(path, target.ID())

	return zerr.With(domain.ErrCycleDetected, "cycle", strings.Join(path, " -> "))
}

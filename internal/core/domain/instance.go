package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// InstanceState is the lifecycle state of a task instance.
type InstanceState string

const (
	// StateUndeclared indicates the instance exists but its declaration body has not run.
	StateUndeclared InstanceState = "Undeclared"
	// StateDeclaring indicates the declaration body is currently evaluating.
	StateDeclaring InstanceState = "Declaring"
	// StateDeclared indicates declaration finished and metadata is frozen.
	StateDeclared InstanceState = "Declared"
	// StateDirty indicates the dirty checker decided the run body must execute.
	StateDirty InstanceState = "Dirty"
	// StateClean indicates artifacts are up to date and the run body can be skipped.
	StateClean InstanceState = "Clean"
	// StateRunning indicates the run body is executing.
	StateRunning InstanceState = "Running"
	// StateCompleted indicates the instance finished successfully.
	StateCompleted InstanceState = "Completed"
	// StateFailed indicates the run body reported an error.
	StateFailed InstanceState = "Failed"
	// StateSkipped indicates the instance did not run, either because it was
	// clean or because a dependency failed.
	StateSkipped InstanceState = "Skipped"
)

// IsTerminal reports whether the state ends the instance's lifecycle for this invocation.
func (s InstanceState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateSkipped:
		return true
	default:
		return false
	}
}

// InstanceKey identifies an instance: the xxhash of the definition name and
// the bound argument tuple. Distinct argument bindings of the same definition
// are distinct instances.
type InstanceKey uint64

// KeyFor computes the identity key for a (name, args) pair.
func KeyFor(name string, args []string) InstanceKey {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	for _, a := range args {
		_, _ = h.WriteString(a)
		_, _ = h.Write([]byte{0})
	}
	return InstanceKey(h.Sum64())
}

// FormatID renders the human-readable instance identifier.
func FormatID(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// Instance is a node of the runtime dependency graph: a definition bound to
// a specific argument tuple. Metadata (sources, artifacts, dependency edges)
// is append-only while Declaring and frozen afterwards. Completion state is
// the only field touched concurrently, during the run phase.
type Instance struct {
	key  InstanceKey
	id   string
	def  *Definition
	args []string

	sources   []InternedString
	artifacts []InternedString
	deps      []*Instance

	subtaskSeq int

	mu    sync.RWMutex
	state InstanceState
	err   error
	done  chan struct{}
}

// NewInstance creates an Undeclared instance for def bound to args.
// Args must already be validated and copied via Definition.BindArgs.
func NewInstance(def *Definition, args []string) *Instance {
	return &Instance{
		key:   KeyFor(def.Name, args),
		id:    FormatID(def.Name, args),
		def:   def,
		args:  args,
		state: StateUndeclared,
		done:  make(chan struct{}),
	}
}

// NewSubtask creates an anonymous instance owned by parent. The identity is
// system generated from the parent identity and an ordinal, so subtasks are
// never addressable by name. capturedArgs are snapshotted by value: by run
// time the declaring loop or closure context may no longer exist.
func (i *Instance) NewSubtask(capturedArgs []string, run RunBody) *Instance {
	i.subtaskSeq++
	name := fmt.Sprintf("%s#%d", i.id, i.subtaskSeq)

	args := make([]string, len(capturedArgs))
	copy(args, capturedArgs)

	def := &Definition{
		Name: name,
		Run:  run,
		Pure: run == nil,
	}

	return &Instance{
		key:   KeyFor(name, args),
		id:    FormatID(name, args),
		def:   def,
		args:  args,
		state: StateUndeclared,
		done:  make(chan struct{}),
	}
}

// Key returns the identity key.
func (i *Instance) Key() InstanceKey { return i.key }

// ID returns the human-readable identifier, e.g. "build(linux)".
func (i *Instance) ID() string { return i.id }

// Name returns the definition name.
func (i *Instance) Name() string { return i.def.Name }

// Definition returns the definition this instance is bound to.
func (i *Instance) Definition() *Definition { return i.def }

// Args returns a copy of the bound argument tuple; the original backs the
// instance's identity and must never be mutated.
func (i *Instance) Args() []string {
	if len(i.args) == 0 {
		return nil
	}
	args := make([]string, len(i.args))
	copy(args, i.args)
	return args
}

// Pure reports whether the instance aggregates dependencies only and never runs.
func (i *Instance) Pure() bool { return i.def.Pure }

// State returns the current lifecycle state.
func (i *Instance) State() InstanceState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Err returns the run error, if the instance failed.
func (i *Instance) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

// BeginDeclaration moves the instance from Undeclared to Declaring.
func (i *Instance) BeginDeclaration() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateUndeclared {
		return stateError(i.id, i.state, StateUndeclared)
	}
	i.state = StateDeclaring
	return nil
}

// FinishDeclaration moves the instance from Declaring to Declared, freezing
// its source, artifact, and dependency sets.
func (i *Instance) FinishDeclaration() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateDeclaring {
		return stateError(i.id, i.state, StateDeclaring)
	}
	i.state = StateDeclared
	return nil
}

// AddSources appends source paths. Valid only while Declaring.
func (i *Instance) AddSources(paths ...string) error {
	if err := i.requireDeclaring(); err != nil {
		return err
	}
	for _, p := range paths {
		i.sources = append(i.sources, NewInternedString(p))
	}
	return nil
}

// AddArtifacts appends artifact paths. Valid only while Declaring.
func (i *Instance) AddArtifacts(paths ...string) error {
	if err := i.requireDeclaring(); err != nil {
		return err
	}
	for _, p := range paths {
		i.artifacts = append(i.artifacts, NewInternedString(p))
	}
	return nil
}

// AddDependency appends a dependency edge. Edge order is the declaration
// call order. Valid only while Declaring.
func (i *Instance) AddDependency(dep *Instance) error {
	if err := i.requireDeclaring(); err != nil {
		return err
	}
	i.deps = append(i.deps, dep)
	return nil
}

// Sources returns the declared source paths in declaration order.
func (i *Instance) Sources() []string { return internedToStrings(i.sources) }

// Artifacts returns the declared artifact paths in declaration order.
func (i *Instance) Artifacts() []string { return internedToStrings(i.artifacts) }

// Dependencies returns the dependency edges in declaration order. The same
// instance may appear more than once if it was declared twice; consumers
// that need uniqueness deduplicate by key.
func (i *Instance) Dependencies() []*Instance {
	deps := make([]*Instance, len(i.deps))
	copy(deps, i.deps)
	return deps
}

// MarkDirty annotates a Declared instance as needing its run body.
func (i *Instance) MarkDirty() { i.setAnnotation(StateDirty) }

// MarkClean annotates a Declared instance as up to date.
func (i *Instance) MarkClean() { i.setAnnotation(StateClean) }

// MarkRunning transitions the instance into the Running state.
func (i *Instance) MarkRunning() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = StateRunning
}

// Finish records the terminal state and wakes all waiters. It is a no-op if
// the instance is already terminal, so a run body executes and completes at
// most once per invocation.
func (i *Instance) Finish(state InstanceState, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state.IsTerminal() {
		return
	}
	i.state = state
	i.err = err
	close(i.done)
}

// Wait blocks until the instance reaches a terminal state or the context is
// cancelled. Concurrent requesters of the same instance share the single
// in-flight execution rather than re-running it.
func (i *Instance) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Instance) requireDeclaring() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.state != StateDeclaring {
		return frozenError(i.id, i.state)
	}
	return nil
}

func (i *Instance) setAnnotation(state InstanceState) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == StateDeclared {
		i.state = state
	}
}

func frozenError(id string, state InstanceState) error {
	err := zerr.With(ErrInstanceFrozen, "instance", id)
	return zerr.With(err, "state", string(state))
}

func stateError(id string, got, want InstanceState) error {
	err := zerr.With(zerr.New("invalid instance state transition"), "instance", id)
	err = zerr.With(err, "state", string(got))
	return zerr.With(err, "want", string(want))
}

func internedToStrings(in []InternedString) []string {
	out := make([]string, len(in))
	for idx, s := range in {
		out[idx] = s.String()
	}
	return out
}

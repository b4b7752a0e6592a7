// Package domain contains the core model of the task orchestration engine:
// task definitions, the per-invocation registry, task instances, and the
// declared dependency graph.
package domain

import "go.trai.ch/zerr"

// Registry is the invocation-scoped store of task definitions. It is
// populated once, synchronously, while the build script is evaluated top to
// bottom, and is read-only afterwards. It is an explicitly owned object
// passed to every component, never a process-wide singleton.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*Definition),
	}
}

// Register adds a definition. It returns ErrDuplicateTask if the name is
// already taken and ErrInvalidSignature if the definition is malformed.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.defs[def.Name]; exists {
		return zerr.With(ErrDuplicateTask, "task", def.Name)
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, zerr.With(ErrTaskNotFound, "task", name)
	}
	return def, nil
}

// Names returns the registered task names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

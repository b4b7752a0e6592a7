package domain

import (
	"context"
	"io"
)

// DeclScope is the surface a declaration body sees. It operates on the
// instance currently being declared (the top of the scope stack), so helper
// functions invoked from a declaration body transparently extend the active
// instance.
type DeclScope interface {
	// Args returns the argument tuple the active instance was bound with.
	Args() []string

	// Depends resolves the named task with the given arguments, declares it
	// recursively if needed, and appends it as a dependency edge.
	Depends(ctx context.Context, name string, args ...string) error

	// Sources appends source file paths (or glob patterns) to the active instance.
	Sources(paths ...string) error

	// Produces appends artifact file paths to the active instance.
	Produces(paths ...string) error

	// Subtask creates an anonymous instance owned by the active instance,
	// binding args by value, and appends it as a dependency edge.
	Subtask(ctx context.Context, args []string, run RunBody) error
}

// RunScope is the surface a run body sees while executing.
type RunScope interface {
	// Args returns the argument tuple the instance was bound with.
	Args() []string

	// Stdout returns the writer run output should go to.
	Stdout() io.Writer

	// Stderr returns the writer run diagnostics should go to.
	Stderr() io.Writer
}

// DeclBody is an opaque declaration body supplied by the script front end.
// It is evaluated lazily, at most once per instance.
type DeclBody func(ctx context.Context, scope DeclScope) error

// RunBody is an opaque run body supplied by the script front end.
// It executes at most once per instance per invocation.
type RunBody func(ctx context.Context, scope RunScope) error

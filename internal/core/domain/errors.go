package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicateTask is returned when registering a definition under a name that already exists.
	ErrDuplicateTask = zerr.New("task already defined")

	// ErrTaskNotFound is returned when a requested task definition is not registered.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrInvalidSignature is returned when a definition fails validation at registration time.
	ErrInvalidSignature = zerr.New("invalid task signature")

	// ErrArgumentMismatch is returned when a task is invoked with the wrong number of arguments.
	ErrArgumentMismatch = zerr.New("argument mismatch")

	// ErrCycleDetected is returned when a declaration back-edge closes a dependency cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrNoScope is returned when a declaration primitive is called outside a declaration body.
	ErrNoScope = zerr.New("no declaration scope open")

	// ErrInstanceFrozen is returned when mutating an instance whose declaration has completed.
	ErrInstanceFrozen = zerr.New("instance metadata is frozen")

	// ErrTaskFailed is returned when a run body reports failure.
	ErrTaskFailed = zerr.New("task failed")

	// ErrBuildFailed is the top-level error for an invocation with at least one failure.
	ErrBuildFailed = zerr.New("build failed")

	// ErrNoTargetSpecified is returned when an invocation names no target task.
	ErrNoTargetSpecified = zerr.New("no target specified")
)

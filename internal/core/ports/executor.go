package ports

import (
	"context"
	"io"
)

// ExecOptions configures a single command execution.
type ExecOptions struct {
	// Dir is the working directory; empty means the process working directory.
	Dir string
	// Env contains additional KEY=VALUE overrides applied on top of the
	// inherited environment.
	Env map[string]string
	// Stdout and Stderr receive the command's output streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs external commands on behalf of run bodies.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs argv and returns an error if the command fails.
	Execute(ctx context.Context, argv []string, opts ExecOptions) error
}

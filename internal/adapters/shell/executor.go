// Package shell provides the shell executor adapter.
package shell

import (
	"context"
	"os"
	"os/exec"
	"sort"
	"strings"

	"go.trai.ch/quake/internal/core/ports"
	"go.trai.ch/zerr"
)

// Executor implements ports.Executor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs argv as a child process. The command environment is the
// process environment with opts.Env applied on top; output streams are
// wired to opts.Stdout and opts.Stderr when set.
func (e *Executor) Execute(ctx context.Context, argv []string, opts ports.ExecOptions) error {
	if len(argv) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // user provided command
	cmd.Dir = opts.Dir
	cmd.Env = mergeEnvironment(os.Environ(), opts.Env)
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	e.logger.Info("exec: " + strings.Join(argv, " "))

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		err = zerr.Wrap(err, "command failed")
		err = zerr.With(err, "command", argv[0])
		return zerr.With(err, "exit_code", exitCode)
	}
	return nil
}

// mergeEnvironment layers overrides on top of the base environment.
func mergeEnvironment(base []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

var _ ports.Executor = (*Executor)(nil)

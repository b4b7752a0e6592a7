package shell_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/quake/internal/adapters/shell"
	"go.trai.ch/quake/internal/core/ports"
	"go.trai.ch/quake/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func setupExecutor(t *testing.T) *shell.Executor {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	return shell.NewExecutor(log)
}

func TestExecute_CapturesStdout(t *testing.T) {
	e := setupExecutor(t)

	var out bytes.Buffer
	err := e.Execute(context.Background(), []string{"sh", "-c", "echo hello"}, ports.ExecOptions{
		Stdout: &out,
	})
	require.NoError(t, err)
	require.Equal(t, "hello\n", out.String())
}

func TestExecute_ExitCodeMetadata(t *testing.T) {
	e := setupExecutor(t)

	err := e.Execute(context.Background(), []string{"sh", "-c", "exit 3"}, ports.ExecOptions{})
	require.Error(t, err)

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	require.Equal(t, 3, zErr.Metadata()["exit_code"])
}

func TestExecute_EnvOverride(t *testing.T) {
	e := setupExecutor(t)

	var out bytes.Buffer
	err := e.Execute(context.Background(), []string{"sh", "-c", "echo $GREETING"}, ports.ExecOptions{
		Env:    map[string]string{"GREETING": "howdy"},
		Stdout: &out,
	})
	require.NoError(t, err)
	require.Equal(t, "howdy\n", out.String())
}

func TestExecute_WorkingDirectory(t *testing.T) {
	e := setupExecutor(t)
	dir := t.TempDir()

	var out bytes.Buffer
	err := e.Execute(context.Background(), []string{"pwd"}, ports.ExecOptions{
		Dir:    dir,
		Stdout: &out,
	})
	require.NoError(t, err)
	require.Contains(t, out.String(), dir)
}

func TestExecute_EmptyArgvIsNoOp(t *testing.T) {
	e := setupExecutor(t)
	require.NoError(t, e.Execute(context.Background(), nil, ports.ExecOptions{}))
}

func TestExecute_ContextCancellation(t *testing.T) {
	e := setupExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Execute(ctx, []string{"sleep", "10"}, ports.ExecOptions{})
	require.Error(t, err)
}

package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/quake/cmd/quake/commands"
	"go.trai.ch/quake/internal/adapters/telemetry"
	"go.trai.ch/quake/internal/app"
	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/quake/internal/core/ports/mocks"
	"go.trai.ch/quake/internal/engine/dirty"
	"go.trai.ch/quake/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

func setupCLI(t *testing.T, defs ...*domain.Definition) (*commands.CLI, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)

	loader := mocks.NewMockScriptLoader(ctrl)
	loader.EXPECT().Load(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ string, reg *domain.Registry) error {
			for _, def := range defs {
				if err := reg.Register(def); err != nil {
					return err
				}
			}
			return nil
		}).AnyTimes()

	stater := mocks.NewMockFileStater(ctrl)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	a := app.New(
		loader,
		dirty.NewChecker(stater, log),
		scheduler.NewScheduler(telemetry.NewNoOpTracer(), log),
		log,
	)

	cli := commands.New(a)
	var out bytes.Buffer
	cli.SetOutput(&out)
	return cli, &out
}

func execute(t *testing.T, cli *commands.CLI, args ...string) error {
	t.Helper()
	cli.SetArgs(args)
	return cli.Execute(context.Background())
}

func TestVersionCommand(t *testing.T) {
	cli, out := setupCLI(t)
	require.NoError(t, execute(t, cli, "version"))
	require.Contains(t, out.String(), "quake version")
}

func TestListCommand(t *testing.T) {
	cli, out := setupCLI(t,
		&domain.Definition{Name: "build"},
		&domain.Definition{Name: "deploy"},
	)

	require.NoError(t, execute(t, cli, "list"))
	require.Equal(t, []string{"build", "deploy"}, strings.Fields(out.String()))
}

func TestRunCommand(t *testing.T) {
	ran := false
	cli, out := setupCLI(t, &domain.Definition{
		Name: "build",
		Run: func(_ context.Context, _ domain.RunScope) error {
			ran = true
			return nil
		},
	})

	require.NoError(t, execute(t, cli, "run", "build"))
	require.True(t, ran)
	require.Contains(t, out.String(), "done     build")
}

func TestRunCommand_DryRun(t *testing.T) {
	ran := false
	cli, out := setupCLI(t, &domain.Definition{
		Name: "build",
		Run: func(_ context.Context, _ domain.RunScope) error {
			ran = true
			return nil
		},
	})

	require.NoError(t, execute(t, cli, "run", "--dry-run", "build"))
	require.False(t, ran, "dry run must not execute run bodies")
	require.Contains(t, out.String(), "build [Dirty]")
}

func TestRunCommand_NoTargetShowsHelp(t *testing.T) {
	cli, out := setupCLI(t)
	require.NoError(t, execute(t, cli, "run"))
	require.Contains(t, out.String(), "Usage:")
}

func TestRunCommand_FailurePropagates(t *testing.T) {
	cli, _ := setupCLI(t, &domain.Definition{
		Name: "build",
		Run: func(_ context.Context, _ domain.RunScope) error {
			return context.DeadlineExceeded
		},
	})

	err := execute(t, cli, "run", "build")
	require.ErrorIs(t, err, domain.ErrBuildFailed)
}

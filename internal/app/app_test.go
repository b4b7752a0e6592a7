package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/quake/internal/adapters/telemetry"
	"go.trai.ch/quake/internal/app"
	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/quake/internal/core/ports/mocks"
	"go.trai.ch/quake/internal/engine/dirty"
	"go.trai.ch/quake/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type appTest struct {
	app    *app.App
	loader *mocks.MockScriptLoader
	stater *mocks.MockFileStater
}

func setupApp(t *testing.T) appTest {
	t.Helper()
	ctrl := gomock.NewController(t)

	loader := mocks.NewMockScriptLoader(ctrl)
	stater := mocks.NewMockFileStater(ctrl)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	tracer := telemetry.NewNoOpTracer()

	return appTest{
		app: app.New(
			loader,
			dirty.NewChecker(stater, log),
			scheduler.NewScheduler(tracer, log),
			log,
		),
		loader: loader,
		stater: stater,
	}
}

// loads arranges the mock loader to register the given definitions.
func (tt appTest) loads(defs ...*domain.Definition) {
	tt.loader.EXPECT().Load("quakefile.yaml", gomock.Any()).
		DoAndReturn(func(_ string, reg *domain.Registry) error {
			for _, def := range defs {
				if err := reg.Register(def); err != nil {
					return err
				}
			}
			return nil
		})
}

func TestInvoke(t *testing.T) {
	tt := setupApp(t)

	var runs atomic.Int32
	tt.loads(
		&domain.Definition{
			Name: "build",
			Decl: func(ctx context.Context, scope domain.DeclScope) error {
				return scope.Depends(ctx, "gen")
			},
			Run: func(_ context.Context, _ domain.RunScope) error {
				runs.Add(1)
				return nil
			},
		},
		&domain.Definition{
			Name: "gen",
			Run: func(_ context.Context, _ domain.RunScope) error {
				runs.Add(1)
				return nil
			},
		},
	)

	report, err := tt.app.Invoke(context.Background(), "quakefile.yaml", "build", nil, app.Options{})
	require.NoError(t, err)
	require.NotNil(t, report)
	require.False(t, report.Failed())
	require.Equal(t, int32(2), runs.Load())
	require.ElementsMatch(t, []string{"build", "gen"}, report.Executed)
}

func TestInvoke_FailureYieldsReportAndError(t *testing.T) {
	tt := setupApp(t)

	boom := errors.New("boom")
	tt.loads(&domain.Definition{
		Name: "build",
		Run:  func(_ context.Context, _ domain.RunScope) error { return boom },
	})

	report, err := tt.app.Invoke(context.Background(), "quakefile.yaml", "build", nil, app.Options{})
	require.ErrorIs(t, err, domain.ErrBuildFailed)
	require.NotNil(t, report, "a failed build still yields a structured report")
	require.True(t, report.Failed())
}

func TestInvoke_NoTarget(t *testing.T) {
	tt := setupApp(t)

	_, err := tt.app.Invoke(context.Background(), "quakefile.yaml", "", nil, app.Options{})
	require.ErrorIs(t, err, domain.ErrNoTargetSpecified)
}

func TestInvoke_UnknownTarget(t *testing.T) {
	tt := setupApp(t)
	tt.loads()

	_, err := tt.app.Invoke(context.Background(), "quakefile.yaml", "ghost", nil, app.Options{})
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestInvoke_LoadError(t *testing.T) {
	tt := setupApp(t)
	parseErr := errors.New("bad yaml")
	tt.loader.EXPECT().Load("quakefile.yaml", gomock.Any()).Return(parseErr)

	_, err := tt.app.Invoke(context.Background(), "quakefile.yaml", "build", nil, app.Options{})
	require.ErrorIs(t, err, parseErr)
}

func TestPlan_ExecutesNothing(t *testing.T) {
	tt := setupApp(t)

	ran := false
	tt.loads(&domain.Definition{
		Name: "build",
		Decl: func(_ context.Context, scope domain.DeclScope) error {
			if err := scope.Sources("src/main.c"); err != nil {
				return err
			}
			return scope.Produces("out/app")
		},
		Run: func(_ context.Context, _ domain.RunScope) error {
			ran = true
			return nil
		},
	})
	// No artifact on disk: the plan must show the instance as dirty.
	tt.stater.EXPECT().ModTime("out/app").Return(time.Time{}, errors.New("no such file"))

	tree, err := tt.app.Plan(context.Background(), "quakefile.yaml", "build", nil)
	require.NoError(t, err)
	require.False(t, ran, "a dry run must not execute run bodies")
	require.Equal(t, "build", tree.Instance.ID())
	require.Equal(t, domain.StateDirty, tree.Instance.State())
}

func TestList(t *testing.T) {
	tt := setupApp(t)
	tt.loads(
		&domain.Definition{Name: "build"},
		&domain.Definition{Name: "test"},
	)

	names, err := tt.app.List("quakefile.yaml")
	require.NoError(t, err)
	require.Equal(t, []string{"build", "test"}, names)
}

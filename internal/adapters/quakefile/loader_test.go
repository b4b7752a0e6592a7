package quakefile_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/quake/internal/adapters/quakefile"
	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/quake/internal/core/ports"
	"go.trai.ch/quake/internal/core/ports/mocks"
	"go.trai.ch/quake/internal/engine/declare"
	"go.uber.org/mock/gomock"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quakefile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func setupLoader(t *testing.T) (*quakefile.Loader, *mocks.MockExecutor, *mocks.MockFileStater) {
	t.Helper()
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	stater := mocks.NewMockFileStater(ctrl)
	return quakefile.NewLoader(exec, stater), exec, stater
}

// discardScope satisfies domain.RunScope for direct run-body invocation.
type discardScope struct {
	args []string
}

func (s *discardScope) Args() []string { return s.args }

func (s *discardScope) Stdout() io.Writer { return io.Discard }

func (s *discardScope) Stderr() io.Writer { return io.Discard }

func TestLoad_RegistersTasks(t *testing.T) {
	loader, _, _ := setupLoader(t)
	path := writeScript(t, `
version: 1
tasks:
  build:
    deps: ["compile linux"]
    produces: [bin/app]
    cmd: [make, all]
  compile:
    params: [os]
    sources: ["src/*.c"]
    cmd: [cc, "-DTARGET=${os}"]
  all:
    pure: true
    deps: [build]
`)

	reg := domain.NewRegistry()
	require.NoError(t, loader.Load(path, reg))

	// Registration follows script order, not key order.
	require.Equal(t, []string{"build", "compile", "all"}, reg.Names())

	compile, err := reg.Lookup("compile")
	require.NoError(t, err)
	require.Equal(t, []string{"os"}, compile.Params)
	require.NotNil(t, compile.Run)

	all, err := reg.Lookup("all")
	require.NoError(t, err)
	require.True(t, all.Pure)
	require.Nil(t, all.Run)
}

func TestLoad_DeclaredGraph(t *testing.T) {
	loader, _, _ := setupLoader(t)
	path := writeScript(t, `
version: 1
tasks:
  build:
    deps: ["compile linux"]
    cmd: [make]
  compile:
    params: [os]
    sources: ["src/${os}/*.c"]
    produces: ["out/${os}.bin"]
    cmd: [cc]
`)

	reg := domain.NewRegistry()
	require.NoError(t, loader.Load(path, reg))

	ev := declare.NewEvaluator(reg)
	root, err := ev.Declare(context.Background(), "build", nil)
	require.NoError(t, err)

	deps := root.Dependencies()
	require.Len(t, deps, 1)
	require.Equal(t, "compile(linux)", deps[0].ID())
	require.Equal(t, []string{"src/linux/*.c"}, deps[0].Sources())
	require.Equal(t, []string{"out/linux.bin"}, deps[0].Artifacts())
}

func TestLoad_ForeachFanOut(t *testing.T) {
	loader, exec, stater := setupLoader(t)
	path := writeScript(t, `
version: 1
tasks:
  render:
    foreach: "icons/*.svg"
    cmd: [convert, "${file}", "${file}.png"]
`)

	stater.EXPECT().Glob("icons/*.svg").Return([]string{"icons/a.svg", "icons/b.svg"}, nil)

	reg := domain.NewRegistry()
	require.NoError(t, loader.Load(path, reg))

	ev := declare.NewEvaluator(reg)
	root, err := ev.Declare(context.Background(), "render", nil)
	require.NoError(t, err)

	deps := root.Dependencies()
	require.Len(t, deps, 2, "one subtask per matched file")
	require.NotEqual(t, deps[0].Key(), deps[1].Key())
	require.Equal(t, []string{"icons/a.svg"}, deps[0].Args())
	require.Equal(t, []string{"icons/b.svg"}, deps[1].Args())

	// The parent aggregates; the command belongs to the subtasks.
	require.Nil(t, root.Definition().Run)

	exec.EXPECT().Execute(gomock.Any(), []string{"convert", "icons/a.svg", "icons/a.svg.png"}, gomock.Any()).Return(nil)
	scope := &discardScope{args: deps[0].Args()}
	require.NoError(t, deps[0].Definition().Run(context.Background(), scope))
}

func TestLoad_RunBodyExpandsParams(t *testing.T) {
	loader, exec, _ := setupLoader(t)
	path := writeScript(t, `
version: 1
tasks:
  compile:
    params: [os]
    dir: "build/${os}"
    env:
      TARGET: "${os}"
    cmd: [cc, "-DTARGET=${os}"]
`)

	reg := domain.NewRegistry()
	require.NoError(t, loader.Load(path, reg))

	def, err := reg.Lookup("compile")
	require.NoError(t, err)

	exec.EXPECT().
		Execute(gomock.Any(), []string{"cc", "-DTARGET=linux"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, opts ports.ExecOptions) error {
			require.Equal(t, "build/linux", opts.Dir)
			require.Equal(t, map[string]string{"TARGET": "linux"}, opts.Env)
			return nil
		})

	scope := &discardScope{args: []string{"linux"}}
	require.NoError(t, def.Run(context.Background(), scope))
}

func TestLoad_UnknownVariable(t *testing.T) {
	loader, _, _ := setupLoader(t)
	path := writeScript(t, `
version: 1
tasks:
  build:
    sources: ["${typo}/main.c"]
    cmd: [make]
`)

	reg := domain.NewRegistry()
	require.NoError(t, loader.Load(path, reg))

	ev := declare.NewEvaluator(reg)
	_, err := ev.Declare(context.Background(), "build", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown variable")
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	loader, _, _ := setupLoader(t)
	path := writeScript(t, `
version: 2
tasks: {}
`)

	err := loader.Load(path, domain.NewRegistry())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported script version")
}

func TestLoad_PureWithCommand(t *testing.T) {
	loader, _, _ := setupLoader(t)
	path := writeScript(t, `
version: 1
tasks:
  all:
    pure: true
    cmd: [make]
`)

	err := loader.Load(path, domain.NewRegistry())
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestLoad_DuplicateHandledByRegistry(t *testing.T) {
	loader, _, _ := setupLoader(t)
	path := writeScript(t, `
version: 1
tasks:
  build:
    cmd: [make]
`)

	reg := domain.NewRegistry()
	require.NoError(t, reg.Register(&domain.Definition{Name: "build"}))

	err := loader.Load(path, reg)
	require.ErrorIs(t, err, domain.ErrDuplicateTask)
}

func TestLoad_MissingFile(t *testing.T) {
	loader, _, _ := setupLoader(t)
	err := loader.Load(filepath.Join(t.TempDir(), "absent.yaml"), domain.NewRegistry())
	require.Error(t, err)
}

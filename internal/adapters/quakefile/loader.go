// Package quakefile loads YAML build scripts and registers their tasks.
//
// The script format is deliberately small: a version marker and a map of
// task definitions. Declaration bodies are synthesized from the declared
// deps, sources, produces and foreach fields; run bodies invoke the shell
// executor with the declared command line.
package quakefile

import (
	"context"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/quake/internal/core/ports"
	"go.trai.ch/zerr"
)

// supportedVersion is the only script format version this loader accepts.
const supportedVersion = 1

// Loader implements ports.ScriptLoader for YAML quakefiles.
type Loader struct {
	exec   ports.Executor
	stater ports.FileStater
}

// NewLoader creates a Loader that runs commands through exec and expands
// foreach globs through stater.
func NewLoader(exec ports.Executor, stater ports.FileStater) *Loader {
	return &Loader{exec: exec, stater: stater}
}

// Load parses the script at path and registers one definition per task.
func (l *Loader) Load(path string, reg *domain.Registry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "reading script"), "path", path)
	}

	var doc file
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return zerr.With(zerr.Wrap(err, "parsing script"), "path", path)
	}
	if doc.Version != supportedVersion {
		err := zerr.With(zerr.New("unsupported script version"), "path", path)
		err = zerr.With(err, "version", doc.Version)
		return zerr.With(err, "supported", supportedVersion)
	}

	for _, name := range doc.Tasks.order {
		def, err := l.definition(name, doc.Tasks.specs[name])
		if err != nil {
			return zerr.With(err, "path", path)
		}
		if err := reg.Register(def); err != nil {
			return zerr.With(err, "path", path)
		}
	}
	return nil
}

// definition synthesizes a domain.Definition from a task spec.
func (l *Loader) definition(name string, spec taskSpec) (*domain.Definition, error) {
	if spec.Pure && (len(spec.Cmd) > 0 || spec.Foreach != "") {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidSignature, "pure task declares a command"), "task", name)
	}

	def := &domain.Definition{
		Name:   name,
		Params: spec.Params,
		Pure:   spec.Pure,
		Decl:   l.declBody(name, spec),
	}

	// With foreach the command belongs to the subtasks; the named task is
	// only the aggregation point.
	if len(spec.Cmd) > 0 && spec.Foreach == "" {
		def.Run = l.runBody(spec)
	}
	return def, nil
}

func (l *Loader) declBody(name string, spec taskSpec) domain.DeclBody {
	return func(ctx context.Context, scope domain.DeclScope) error {
		vars := bindings(spec.Params, scope.Args(), "")

		for _, raw := range spec.Deps {
			fields, err := expandAll(strings.Fields(raw), vars)
			if err != nil {
				return zerr.With(zerr.With(err, "task", name), "dep", raw)
			}
			if len(fields) == 0 {
				return zerr.With(zerr.New("empty dependency"), "task", name)
			}
			if err := scope.Depends(ctx, fields[0], fields[1:]...); err != nil {
				return err
			}
		}

		sources, err := expandAll(spec.Sources, vars)
		if err != nil {
			return zerr.With(err, "task", name)
		}
		if err := scope.Sources(sources...); err != nil {
			return err
		}

		produces, err := expandAll(spec.Produces, vars)
		if err != nil {
			return zerr.With(err, "task", name)
		}
		if err := scope.Produces(produces...); err != nil {
			return err
		}

		if spec.Foreach == "" {
			return nil
		}

		pattern, err := expand(spec.Foreach, vars)
		if err != nil {
			return zerr.With(err, "task", name)
		}
		matches, err := l.stater.Glob(pattern)
		if err != nil {
			return zerr.With(err, "task", name)
		}
		for _, match := range matches {
			sub := make(map[string]string, len(vars)+1)
			for k, v := range vars {
				sub[k] = v
			}
			sub["file"] = match
			if err := scope.Subtask(ctx, []string{match}, l.commandBody(spec, sub)); err != nil {
				return err
			}
		}
		return nil
	}
}

// runBody synthesizes the run body of a named task executing spec.Cmd.
func (l *Loader) runBody(spec taskSpec) domain.RunBody {
	return func(ctx context.Context, scope domain.RunScope) error {
		return l.commandBody(spec, bindings(spec.Params, scope.Args(), ""))(ctx, scope)
	}
}

// commandBody executes spec.Cmd with a fixed variable table. Foreach
// subtasks get the parent's bindings plus ${file}.
func (l *Loader) commandBody(spec taskSpec, vars map[string]string) domain.RunBody {
	return func(ctx context.Context, scope domain.RunScope) error {
		argv, err := expandAll(spec.Cmd, vars)
		if err != nil {
			return err
		}

		env := make(map[string]string, len(spec.Env))
		for k, v := range spec.Env {
			ev, err := expand(v, vars)
			if err != nil {
				return err
			}
			env[k] = ev
		}

		dir, err := expand(spec.Dir, vars)
		if err != nil {
			return err
		}

		return l.exec.Execute(ctx, argv, ports.ExecOptions{
			Dir:    dir,
			Env:    env,
			Stdout: scope.Stdout(),
			Stderr: scope.Stderr(),
		})
	}
}

// bindings builds the ${var} table for expansion: declared params bound to
// the instance args, plus ${file} when a foreach match is in scope.
func bindings(params, args []string, file string) map[string]string {
	vars := make(map[string]string, len(params)+1)
	for i, p := range params {
		if i < len(args) {
			vars[p] = args[i]
		}
	}
	if file != "" {
		vars["file"] = file
	}
	return vars
}

// expand substitutes ${var} references. Unknown references are an error so
// typos surface at declaration time rather than as empty argv words.
func expand(s string, vars map[string]string) (string, error) {
	var missing []string
	out := os.Expand(s, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		missing = append(missing, name)
		return ""
	})
	if len(missing) > 0 {
		err := zerr.With(zerr.New("unknown variable reference"), "variables", strings.Join(missing, ", "))
		return "", zerr.With(err, "in", s)
	}
	return out, nil
}

func expandAll(in []string, vars map[string]string) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		e, err := expand(s, vars)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

var _ ports.ScriptLoader = (*Loader)(nil)

package domain

import "go.trai.ch/zerr"

// Definition is a registered task template: name, parameter signature, and
// the opaque declaration and run bodies. Bodies are not evaluated at
// registration time.
type Definition struct {
	Name   string
	Params []string
	Decl   DeclBody
	Run    RunBody

	// Pure marks a declaration-only task used to aggregate dependencies.
	// A pure definition must not carry a run body.
	Pure bool
}

// Validate checks the definition signature.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return zerr.Wrap(ErrInvalidSignature, "definition has no name")
	}
	if d.Pure && d.Run != nil {
		return zerr.With(zerr.Wrap(ErrInvalidSignature, "pure task has a run body"), "task", d.Name)
	}
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p == "" {
			return zerr.With(zerr.Wrap(ErrInvalidSignature, "empty parameter name"), "task", d.Name)
		}
		if seen[p] {
			err := zerr.Wrap(ErrInvalidSignature, "duplicate parameter")
			err = zerr.With(err, "task", d.Name)
			return zerr.With(err, "param", p)
		}
		seen[p] = true
	}
	return nil
}

// BindArgs validates an argument tuple against the signature and returns a
// defensive copy, so later mutation of the caller's slice cannot alias into
// instance identity.
func (d *Definition) BindArgs(args []string) ([]string, error) {
	if len(args) != len(d.Params) {
		err := zerr.With(ErrArgumentMismatch, "task", d.Name)
		err = zerr.With(err, "want", len(d.Params))
		return nil, zerr.With(err, "got", len(args))
	}
	if len(args) == 0 {
		return nil, nil
	}
	bound := make([]string, len(args))
	copy(bound, args)
	return bound, nil
}

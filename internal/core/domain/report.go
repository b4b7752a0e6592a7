package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// Failure describes one failed instance with its dependency-chain context
// (the path from the invocation target down to the failing instance).
type Failure struct {
	Instance string
	Chain    []string
	Err      error
}

// Report is the structured result of an invocation. The top level always
// yields a report, never an unhandled crash.
type Report struct {
	Target string

	// Executed lists instances whose run bodies ran and completed.
	Executed []string
	// UpToDate lists instances skipped because their artifacts were current.
	UpToDate []string
	// Failures lists failed instances with dependency chains.
	Failures []Failure
	// Skipped lists instances never started because a dependency failed or
	// the invocation was cancelled.
	Skipped []string
}

// Failed reports whether any instance failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Err returns the aggregate build error, or nil on success.
func (r *Report) Err() error {
	if !r.Failed() {
		return nil
	}
	err := zerr.With(ErrBuildFailed, "target", r.Target)
	err = zerr.With(err, "failures", len(r.Failures))
	for _, f := range r.Failures {
		err = zerr.With(err, "chain:"+f.Instance, strings.Join(f.Chain, " -> "))
	}
	return err
}

// Summary renders a short human-readable result line per instance.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, id := range r.Executed {
		fmt.Fprintf(&b, "done     %s\n", id)
	}
	for _, id := range r.UpToDate {
		fmt.Fprintf(&b, "up2date  %s\n", id)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "failed   %s (via %s)\n", f.Instance, strings.Join(f.Chain, " -> "))
	}
	for _, id := range r.Skipped {
		fmt.Fprintf(&b, "skipped  %s\n", id)
	}
	return b.String()
}

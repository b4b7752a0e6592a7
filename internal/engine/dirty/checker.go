// Package dirty implements modification-time based dirty checking: the
// per-instance decision whether a run body must execute.
package dirty

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"go.trai.ch/quake/internal/core/domain"
	"go.trai.ch/quake/internal/core/ports"
)

// Checker computes run/skip decisions from source and artifact timestamps.
type Checker struct {
	stater ports.FileStater
	log    ports.Logger
}

// NewChecker creates a Checker over the given stater.
func NewChecker(stater ports.FileStater, log ports.Logger) *Checker {
	return &Checker{
		stater: stater,
		log:    log,
	}
}

// Annotate marks every declared, non-pure instance in the tree Dirty or
// Clean. Checks are independent per instance, so they run concurrently over
// a bounded group. Pure instances are left untouched: they neither run nor
// contribute a dirtiness decision of their own.
func (c *Checker) Annotate(ctx context.Context, tree *domain.RunNode) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, node := range tree.Flatten() {
		inst := node.Instance
		if inst.Pure() || inst.State() != domain.StateDeclared {
			continue
		}
		g.Go(func() error {
			if c.Check(inst) {
				inst.MarkDirty()
			} else {
				inst.MarkClean()
			}
			return nil
		})
	}

	return g.Wait()
}

// Check reports whether the instance's run body must execute:
//   - no artifacts declared: always dirty, there is no evidence of a prior run;
//   - no sources declared: clean iff every artifact exists;
//   - otherwise: dirty iff the newest source is newer than the oldest
//     artifact. Missing paths and stat errors force dirty, failing toward a
//     rebuild, and are logged rather than propagated.
func (c *Checker) Check(inst *domain.Instance) bool {
	artifacts := inst.Artifacts()
	if len(artifacts) == 0 {
		return true
	}

	oldestArtifact, ok := c.oldest(inst, artifacts)
	if !ok {
		return true
	}

	sources := inst.Sources()
	if len(sources) == 0 {
		return false
	}

	newestSource, ok := c.newest(inst, sources)
	if !ok {
		return true
	}

	return newestSource.After(oldestArtifact)
}

// newest returns the latest modification time over the expanded source set.
// ok is false if any entry is missing or unreadable.
func (c *Checker) newest(inst *domain.Instance, patterns []string) (time.Time, bool) {
	var max time.Time
	for _, pattern := range patterns {
		paths, ok := c.expand(inst, pattern)
		if !ok {
			return time.Time{}, false
		}
		for _, path := range paths {
			mt, ok := c.modTime(inst, path)
			if !ok {
				return time.Time{}, false
			}
			if mt.After(max) {
				max = mt
			}
		}
	}
	return max, true
}

// oldest returns the earliest modification time over the expanded artifact
// set. ok is false if any entry is missing or unreadable, or a pattern
// matched nothing.
func (c *Checker) oldest(inst *domain.Instance, patterns []string) (time.Time, bool) {
	var min time.Time
	first := true
	for _, pattern := range patterns {
		paths, ok := c.expand(inst, pattern)
		if !ok {
			return time.Time{}, false
		}
		for _, path := range paths {
			mt, ok := c.modTime(inst, path)
			if !ok {
				return time.Time{}, false
			}
			if first || mt.Before(min) {
				min = mt
				first = false
			}
		}
	}
	return min, true
}

// expand resolves a source or artifact entry. Glob patterns expand to their
// matches; a pattern matching nothing counts as a missing path. Plain paths
// pass through untouched, directories included.
func (c *Checker) expand(inst *domain.Instance, pattern string) ([]string, bool) {
	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, true
	}

	matches, err := c.stater.Glob(pattern)
	if err != nil {
		c.log.Warn(fmt.Sprintf("dirty check: bad pattern %q for %s: %v", pattern, inst.ID(), err))
		return nil, false
	}
	if len(matches) == 0 {
		c.log.Warn(fmt.Sprintf("dirty check: pattern %q matched nothing for %s", pattern, inst.ID()))
		return nil, false
	}
	return matches, true
}

func (c *Checker) modTime(inst *domain.Instance, path string) (time.Time, bool) {
	mt, err := c.stater.ModTime(path)
	if err != nil {
		// Missing or unreadable paths force a rebuild; never fatal.
		c.log.Warn(fmt.Sprintf("dirty check: stat %q for %s: %v", path, inst.ID(), err))
		return time.Time{}, false
	}
	return mt, true
}

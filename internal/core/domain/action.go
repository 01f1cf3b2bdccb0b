package domain

import (
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Action is one build step: a command that consumes inputs and produces the
// files in Builds. Depends is a superset of Inputs that also carries the
// owning package's Bubfile, in-project tools named in the command, and deps
// learnt from the dependency cache.
type Action struct {
	Origin  Origin
	Name    string
	Number  int
	Command string
	Inputs  []*File
	Builds  []*File
	Depends []*File

	// Newest is the most recent modification time learnt from cached
	// dependencies that are not recorded in Depends: system files, and
	// in-project deps of multi-output actions. MaxNewest marks the action
	// maximally dirty.
	Newest time.Time
	// DepsPath is where the command writes discovered dependencies.
	DepsPath string
	// Libs is the resolved link set, filled by augmentation just before
	// issue.
	Libs []string
	// Resolved is the fully expanded command, filled at issue time.
	Resolved string
	// Generator marks actions that produce source-kind files; they gate the
	// issue fence.
	Generator bool
	// Timeout bounds execution; zero means no limit. Only test actions set
	// it.
	Timeout time.Duration
	// IsTest marks test-run actions so the worker can recycle its scratch
	// directory on success.
	IsTest bool

	Issued bool
	Done   bool

	// sealed marks the end of construction. From then on a multi-output
	// action can take no further dependencies.
	sealed bool
}

// Seal ends the construction phase.
func (a *Action) Seal() { a.sealed = true }

// MaxNewest is the sentinel for "maximally dirty": later than any real
// modification time.
var MaxNewest = time.Unix(1<<62-1, 0)

// BumpNewest raises Newest to t if t is later.
func (a *Action) BumpNewest(t time.Time) {
	if t.After(a.Newest) {
		a.Newest = t
	}
}

// AddDependency adds file to Depends as a set and registers the reverse
// edges. Actions with more than one output are frozen once sealed: their
// dependency set is fixed at construction.
func (a *Action) AddDependency(file *File) error {
	if a.sealed && len(a.Builds) > 1 {
		return WithOrigin(zerr.With(zerr.With(ErrRuleViolation,
			"action", a.Name), "reason", "multi-output action cannot take new dependencies"), a.Origin)
	}
	if a.Issued {
		return WithOrigin(zerr.With(zerr.With(ErrRuleViolation,
			"action", a.Name), "reason", "action already issued"), a.Origin)
	}
	for _, d := range a.Depends {
		if d == file {
			return nil
		}
	}
	a.Depends = append(a.Depends, file)
	for _, b := range a.Builds {
		file.AddDependedBy(b)
	}
	return nil
}

// HasDependency reports whether file is already in Depends.
func (a *Action) HasDependency(file *File) bool {
	for _, d := range a.Depends {
		if d == file {
			return true
		}
	}
	return false
}

// TargetPaths returns the output paths joined by "|", the form carried in
// work items so a failing worker can delete partial outputs.
func (a *Action) TargetPaths() string {
	paths := make([]string, len(a.Builds))
	for i, b := range a.Builds {
		paths[i] = b.Path
	}
	return strings.Join(paths, "|")
}

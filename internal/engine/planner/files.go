package planner

import (
	"os"
	"path/filepath"
	"sort"

	"go.trai.ch/zerr"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/depcache"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
)

// primeAll pushes every file through its first transition, in declaration
// order: sources settle toward clean, built files try to issue.
func (pl *Planner) primeAll() error {
	files := make([]*domain.File, 0, len(pl.proj.FileByPath))
	for _, f := range pl.proj.FileByPath {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Number < files[j].Number })
	for _, f := range files {
		if err := pl.issueIfReady(f); err != nil {
			return err
		}
	}
	return nil
}

// issueIfReady advances a file one step if its current state allows it.
func (pl *Planner) issueIfReady(f *domain.File) error {
	switch f.State {
	case domain.FilePending:
		if f.Action != nil && !f.Action.Issued && !f.Action.Done {
			return pl.maybeIssueAction(f.Action)
		}
	case domain.FileUpToDate:
		return pl.advanceClean(f)
	}
	return nil
}

// maybeIssueAction issues the action once all its depends are clean, the
// generator fence allows it, and augmentation has settled. Actions whose
// outputs are already current complete without running.
func (pl *Planner) maybeIssueAction(a *domain.Action) error {
	if a.Issued || a.Done {
		return nil
	}
	if a.Number > pl.proj.Fence() {
		return nil
	}
	for {
		for _, d := range a.Depends {
			if !d.Clean() {
				return nil
			}
		}
		added := false
		for _, b := range a.Builds {
			if b.Augmented {
				continue
			}
			b.Augmented = true
			didAdd, err := pl.augment(b)
			if err != nil {
				return err
			}
			added = added || didAdd
		}
		if !added {
			break
		}
		// New depends appeared: the file is back in depends-pending.
	}

	if !pl.isDirty(a) {
		return pl.completeUpToDate(a)
	}

	a.Resolved = pl.opts.Resolve(a.Command, map[string][]string{
		"INPUT":  paths(a.Inputs),
		"OUTPUT": paths(a.Builds),
		"DEPS":   {a.DepsPath},
		"LIBS":   a.Libs,
	})
	a.Issued = true
	for _, b := range a.Builds {
		b.State = domain.FileIssued
	}
	pl.proj.Queue.Push(a)
	return nil
}

// isDirty reports whether the action must run: an output is missing, a
// cached system dependency is newer, or any depend is newer than an output.
func (pl *Planner) isDirty(a *domain.Action) bool {
	for _, b := range a.Builds {
		if b.ModTime.IsZero() {
			return true
		}
		if a.Newest.After(b.ModTime) {
			return true
		}
		for _, d := range a.Depends {
			if d.ModTime.After(b.ModTime) {
				return true
			}
		}
	}
	return false
}

// augment runs the one-shot augmentation of a built file. Dynamic libs and
// exes resolve their link set from the now-authoritative dependency cache;
// every other kind has nothing to add.
func (pl *Planner) augment(f *domain.File) (bool, error) {
	if f.Kind != domain.DynamicLibFile && f.Kind != domain.ExeFile {
		return false, nil
	}
	bin, ok := pl.binaryByOut[f]
	if !ok {
		return false, nil
	}
	libs, deps, err := pl.proj.InferLibs(bin, func(objPath string) []string {
		cached, _ := pl.cache.Lookup(objPath)
		var rel []string
		for _, dep := range cached {
			if !filepath.IsAbs(dep) {
				rel = append(rel, dep)
			}
		}
		return rel
	})
	if err != nil {
		return false, pl.fatal(f.Action.Origin, err)
	}
	f.Action.Libs = libs
	added := false
	for _, dep := range deps {
		if f.Action.HasDependency(dep) {
			continue
		}
		if err := f.Action.AddDependency(dep); err != nil {
			return false, pl.fatal(f.Action.Origin, err)
		}
		added = true
	}
	return added, nil
}

// completeUpToDate marks an action done without running it.
func (pl *Planner) completeUpToDate(a *domain.Action) error {
	a.Done = true
	v := pl.tel.Record(a.Name)
	v.Cached()
	for _, b := range a.Builds {
		b.State = domain.FileUpToDate
		delete(pl.proj.Outstanding, b)
	}
	return pl.finishAction(a)
}

// applyCompletion processes a successful worker result: parse the deps
// file, refresh the cache, stamp the outputs, and wake reverse edges.
func (pl *Planner) applyCompletion(a *domain.Action) error {
	content, err := os.ReadFile(a.DepsPath)
	if err != nil && !os.IsNotExist(err) {
		return zerr.Wrap(err, "failed to read deps file")
	}
	_ = os.Remove(a.DepsPath)

	declared := make(map[string]bool, len(a.Inputs)+len(a.Builds))
	for _, in := range a.Inputs {
		declared[in.Path] = true
	}
	for _, b := range a.Builds {
		declared[b.Path] = true
	}
	var kept []string
	for _, dep := range depcache.ParseDepsFile(string(content)) {
		if !declared[dep] {
			kept = append(kept, dep)
		}
	}

	for _, b := range a.Builds {
		for _, dep := range kept {
			if filepath.IsAbs(dep) {
				continue
			}
			depFile, ok := pl.proj.FileByPath[dep]
			if !ok {
				return pl.fatal(a.Origin,
					zerr.With(zerr.With(domain.ErrUnknownEntity, "reason", "discovered dependency on unknown file"), "path", dep))
			}
			if err := pl.proj.CheckCanDepend(b, depFile); err != nil {
				return pl.fatal(a.Origin, err)
			}
		}
		pl.cache.Update(b.Path, kept)
		b.ModTime = statFile(b.Path)
		if b.ModTime.IsZero() {
			return pl.fatal(a.Origin,
				zerr.With(zerr.With(domain.ErrActionFailure, "reason", "action reported success but output is missing"), "path", b.Path))
		}
		b.Action = nil
		b.State = domain.FileUpToDate
		delete(pl.proj.Outstanding, b)
		pl.proj.FilesUpdated++
	}
	a.Done = true
	return pl.finishAction(a)
}

// finishAction settles the action's outputs toward clean and, if the action
// was a generator, advances the fence and re-evaluates every outstanding
// file.
func (pl *Planner) finishAction(a *domain.Action) error {
	advanced := false
	if a.Generator {
		advanced = pl.proj.GeneratorDone(a)
	}
	for _, b := range a.Builds {
		if err := pl.advanceClean(b); err != nil {
			return err
		}
	}
	if advanced {
		return pl.reevaluateOutstanding()
	}
	return nil
}

// reevaluateOutstanding retries every outstanding file; the fence has moved.
func (pl *Planner) reevaluateOutstanding() error {
	pending := make([]*domain.File, 0, len(pl.proj.Outstanding))
	for f := range pl.proj.Outstanding {
		pending = append(pending, f)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Number < pending[j].Number })
	for _, f := range pending {
		if err := pl.issueIfReady(f); err != nil {
			return err
		}
	}
	return nil
}

// advanceClean moves an up-to-date file to clean once its lazily scanned
// includes are clean, then wakes its reverse edges.
func (pl *Planner) advanceClean(f *domain.File) error {
	if f.State != domain.FileUpToDate {
		return nil
	}
	if f.SourceKind() {
		if !f.Scanned {
			if err := pl.scanIncludes(f); err != nil {
				return err
			}
		}
		for _, inc := range f.Includes {
			if !inc.Clean() {
				return nil // inc's DependedBy will wake us
			}
		}
	}
	f.State = domain.FileClean
	consumers := make([]*domain.File, 0, len(f.DependedBy))
	for c := range f.DependedBy {
		consumers = append(consumers, c)
	}
	sort.Slice(consumers, func(i, j int) bool { return consumers[i].Number < consumers[j].Number })
	for _, c := range consumers {
		if err := pl.issueIfReady(c); err != nil {
			return err
		}
	}
	return nil
}

// scanIncludes discovers a source file's in-project includes, validates
// them against the visibility calculus, and adds them as depends.
func (pl *Planner) scanIncludes(f *domain.File) error {
	f.Scanned = true
	incs, err := pl.scanner.Scan(f.Path)
	if err != nil {
		return pl.fatal(domain.Origin{Path: f.Path}, err)
	}
	for _, inc := range incs {
		dep := pl.resolveInclude(inc)
		if dep == nil {
			return pl.fatal(domain.Origin{Path: f.Path},
				zerr.With(zerr.With(domain.ErrUnknownEntity, "reason", "include of unknown in-project file"), "include", inc))
		}
		if dep == f {
			continue
		}
		if err := pl.proj.CheckCanDepend(f, dep); err != nil {
			return pl.fatal(domain.Origin{Path: f.Path}, err)
		}
		f.Includes = append(f.Includes, dep)
		dep.AddDependedBy(f)
	}
	return nil
}

// resolveInclude maps an include path as written to a known file, looking
// in the source tree first and the generated tree second.
func (pl *Planner) resolveInclude(inc string) *domain.File {
	if f, ok := pl.proj.FileByPath[filepath.Join(SrcRoot, inc)]; ok {
		return f
	}
	if f, ok := pl.proj.FileByPath[filepath.Join(ObjRoot, inc)]; ok {
		return f
	}
	return nil
}

func paths(files []*domain.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

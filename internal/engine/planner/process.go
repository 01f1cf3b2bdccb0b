package planner

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/bubfile"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/options"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
)

// processPackage reads the package's Bubfile and materialises its rules.
func (pl *Planner) processPackage(pkg *domain.Node) error {
	path := srcPath(pkg, bubfile.FileName)
	bf, err := pl.proj.NewFile(pkg, bubfile.FileName, path, domain.SourceFile, domain.Public, false)
	if err != nil {
		return err
	}
	bf.ModTime = statFile(path)
	if bf.ModTime.IsZero() {
		return pl.fatal(domain.Origin{Path: path},
			zerr.With(domain.ErrConfig, "reason", "missing Bubfile"))
	}
	pl.bubfileOf[pkg] = bf

	stmts, err := pl.parser.ParseFile(path)
	if err != nil {
		return err
	}
	for i := range stmts {
		if err := pl.processStatement(pkg, &stmts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (pl *Planner) processStatement(pkg *domain.Node, stmt *bubfile.Statement) error {
	switch stmt.Rule {
	case "contain":
		return pl.processContain(pkg, stmt)
	case "static-lib", "public-lib":
		return pl.processStaticLib(pkg, stmt, stmt.Rule == "public-lib")
	case "dynamic-lib":
		return pl.processDynamicLib(pkg, stmt)
	case "dist-exe", "priv-exe", "test-exe":
		return pl.processExe(pkg, stmt)
	case "misc":
		return pl.processMisc(pkg, stmt)
	case "generate":
		return pl.processGenerate(pkg, stmt)
	}
	return pl.fatal(stmt.Origin, zerr.With(domain.ErrConfig, "rule", stmt.Rule))
}

// processContain declares child packages and recurses into them in
// declaration order.
func (pl *Planner) processContain(pkg *domain.Node, stmt *bubfile.Statement) error {
	privacy := domain.Public
	if arg := stmt.Arg(0); len(arg) > 0 {
		var err error
		if privacy, err = domain.ParsePrivacy(arg[0]); err != nil {
			return pl.fatal(stmt.Origin, err)
		}
	}
	for _, name := range stmt.Targets {
		if strings.ContainsRune(name, '/') {
			return pl.fatal(stmt.Origin,
				zerr.With(zerr.With(domain.ErrConfig, "reason", "package name contains a path separator"), "name", name))
		}
		child, err := pl.proj.NewNode(pkg, name, privacy, true)
		if err != nil {
			return pl.fatal(stmt.Origin, err)
		}
		if err := pl.processPackage(child); err != nil {
			return err
		}
	}
	return nil
}

// newAction wraps Project.NewAction with the planner-side construction
// steps: the deps path, the owning package's Bubfile dependency, in-project
// tools named in the command, and the cached dependency list of the first
// output.
func (pl *Planner) newAction(origin domain.Origin, pkg *domain.Node, name, command string, inputs, builds []*domain.File) (*domain.Action, error) {
	a, err := pl.proj.NewAction(origin, name, command, inputs, builds)
	if err != nil {
		return nil, pl.fatal(origin, err)
	}
	a.DepsPath = depsPath(a.Number)

	if bf := pl.bubfileOf[pkg]; bf != nil {
		if err := a.AddDependency(bf); err != nil {
			return nil, pl.fatal(origin, err)
		}
	}
	// Commands that invoke a previously declared executable depend on it.
	for _, token := range strings.Fields(command) {
		if tool, ok := pl.proj.FileByPath[token]; ok && tool.Built && tool.Action != a {
			if err := a.AddDependency(tool); err != nil {
				return nil, pl.fatal(origin, err)
			}
		}
	}
	pl.bindCachedDeps(a)
	a.Seal()
	return a, nil
}

// bindCachedDeps consults the dependency cache for the action's first
// output. Relative entries must name known files; unknown entries mark the
// action maximally dirty and are overwritten by the successful run.
func (pl *Planner) bindCachedDeps(a *domain.Action) {
	deps, found := pl.cache.Lookup(a.Builds[0].Path)
	if !found {
		a.Newest = domain.MaxNewest
		return
	}
	for _, dep := range deps {
		if filepath.IsAbs(dep) {
			t := statFile(dep)
			if t.IsZero() {
				a.Newest = domain.MaxNewest
			} else {
				a.BumpNewest(t)
			}
			continue
		}
		file, ok := pl.proj.FileByPath[dep]
		if !ok {
			a.Newest = domain.MaxNewest
			continue
		}
		if len(a.Builds) == 1 {
			if err := a.AddDependency(file); err == nil {
				continue
			}
		}
		// Frozen multi-output action: the cached dep contributes its
		// modification time only.
		a.BumpNewest(file.ModTime)
	}
}

// declareSource registers one on-disk source file of the package.
func (pl *Planner) declareSource(origin domain.Origin, pkg *domain.Node, name string, privacy domain.Privacy) (*domain.File, error) {
	path := srcPath(pkg, name)
	if existing, ok := pl.proj.FileByPath[path]; ok {
		return existing, nil
	}
	f, err := pl.proj.NewFile(pkg, name, path, domain.SourceFile, privacy, false)
	if err != nil {
		return nil, pl.fatal(origin, err)
	}
	f.ModTime = statFile(path)
	if f.ModTime.IsZero() {
		return nil, pl.fatal(origin,
			zerr.With(zerr.With(domain.ErrUnknownEntity, "reason", "missing source file"), "path", path))
	}
	return f, nil
}

// consume marks a source as owned by a binary; a source may belong to one
// binary only.
func (pl *Planner) consume(origin domain.Origin, bin domain.Binary, f *domain.File) error {
	if f.Used {
		return pl.fatal(origin,
			zerr.With(zerr.With(domain.ErrRuleViolation, "reason", "source already used by another binary"), "path", f.Path))
	}
	f.Used = true
	pl.proj.BinaryByContent[f] = bin
	return nil
}

// compileSource creates the object file and compile action for one source.
func (pl *Planner) compileSource(origin domain.Origin, pkg *domain.Node, src *domain.File) (*domain.File, error) {
	base := strings.TrimSuffix(src.Name, filepath.Ext(src.Name))
	objPath := objDirPath(pkg, base+".o")
	obj, err := pl.proj.NewFile(pkg, base+".o", objPath, domain.ObjectFile, domain.Private, true)
	if err != nil {
		return nil, pl.fatal(origin, err)
	}
	cmd, ok := pl.opts.Compile[filepath.Ext(src.Name)]
	if !ok {
		return nil, pl.fatal(origin,
			zerr.With(zerr.With(domain.ErrConfig, "reason", "no compile command for extension"), "path", src.Path))
	}
	_, err = pl.newAction(origin, pkg, objPath, cmd, []*domain.File{src}, []*domain.File{obj})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// expandGenerated runs a source with a generate-command extension through
// its generator, returning the generated files. Generated sources behave
// like hand-written ones: they are scanned and, when compilable, compiled.
func (pl *Planner) expandGenerated(origin domain.Origin, pkg *domain.Node, src *domain.File, gen options.Generate) ([]*domain.File, error) {
	base := strings.TrimSuffix(src.Name, filepath.Ext(src.Name))
	var outs []*domain.File
	for _, suffix := range gen.Suffixes {
		name := base + suffix
		out, err := pl.proj.NewFile(pkg, name, objDirPath(pkg, name), domain.GeneratedFile, src.Privacy, true)
		if err != nil {
			return nil, pl.fatal(origin, err)
		}
		outs = append(outs, out)
	}
	a, err := pl.newAction(origin, pkg, outs[0].Path, gen.Command, []*domain.File{src}, outs)
	if err != nil {
		return nil, err
	}
	pl.proj.MarkGenerator(a)
	return outs, nil
}

// materialiseSources resolves the source names of a binary: plain sources
// are declared, generator-extension sources are expanded, and everything
// compilable becomes an object.
func (pl *Planner) materialiseSources(origin domain.Origin, pkg *domain.Node, bin domain.Binary, core *binaryFiles, names []string, privacy domain.Privacy) error {
	for _, name := range names {
		// A name may refer to an already generated file in this package.
		if gen, ok := pl.proj.FileByPath[objDirPath(pkg, name)]; ok {
			if err := pl.admitSource(origin, pkg, bin, core, gen, privacy); err != nil {
				return err
			}
			continue
		}
		src, err := pl.declareSource(origin, pkg, name, privacy)
		if err != nil {
			return err
		}
		if err := pl.admitSource(origin, pkg, bin, core, src, privacy); err != nil {
			return err
		}
	}
	return nil
}

// binaryFiles accumulates the concrete file sets while a binary is being
// materialised.
type binaryFiles struct {
	sources []*domain.File
	objs    []*domain.File
	admit   func(ext string) error
}

func (pl *Planner) admitSource(origin domain.Origin, pkg *domain.Node, bin domain.Binary, core *binaryFiles, src *domain.File, privacy domain.Privacy) error {
	if err := pl.consume(origin, bin, src); err != nil {
		return err
	}
	core.sources = append(core.sources, src)

	ext := filepath.Ext(src.Name)
	if gen, ok := pl.opts.Generate[ext]; ok && src.Kind == domain.SourceFile {
		outs, err := pl.expandGenerated(origin, pkg, src, gen)
		if err != nil {
			return err
		}
		for _, out := range outs {
			if err := pl.admitSource(origin, pkg, bin, core, out, privacy); err != nil {
				return err
			}
		}
		return nil
	}

	if _, ok := pl.opts.Compile[ext]; !ok {
		return nil // header-like: scanned but not compiled
	}
	if err := core.admit(ext); err != nil {
		return pl.fatal(origin, err)
	}
	obj, err := pl.compileSource(origin, pkg, src)
	if err != nil {
		return err
	}
	if err := pl.consume(origin, bin, obj); err != nil {
		return err
	}
	core.objs = append(core.objs, obj)
	return nil
}

// sysLibs resolves a sys-libs field.
func (pl *Planner) sysLibs(names []string) []*domain.SysLib {
	var libs []*domain.SysLib
	for _, name := range names {
		libs = append(libs, pl.proj.NewSysLib(name))
	}
	return libs
}

func (pl *Planner) parseTimeout(origin domain.Origin, tok string) (time.Duration, error) {
	secs, err := strconv.Atoi(tok)
	if err != nil {
		return 0, pl.fatal(origin, zerr.With(zerr.With(domain.ErrConfig, "reason", "bad timeout"), "value", tok))
	}
	return time.Duration(secs) * time.Second, nil
}

package planner

import (
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/bubfile"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
)

// singleTarget enforces rules that declare exactly one target.
func (pl *Planner) singleTarget(stmt *bubfile.Statement) (string, error) {
	if len(stmt.Targets) != 1 {
		return "", pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrConfig, "rule", stmt.Rule), "reason", "exactly one target required"))
	}
	return stmt.Targets[0], nil
}

// processStaticLib materialises `static-lib name : public-src :
// protected-src [: sys-libs]`. public-lib is identical but distributable:
// the archive lands under dist/lib and the public sources are exported to
// dist/include.
func (pl *Planner) processStaticLib(pkg *domain.Node, stmt *bubfile.Statement, public bool) error {
	name, err := pl.singleTarget(stmt)
	if err != nil {
		return err
	}
	node, err := pl.proj.NewNode(pkg, name, domain.Public, false)
	if err != nil {
		return pl.fatal(stmt.Origin, err)
	}
	lib := &domain.StaticLib{Node: node, Public: public}
	lib.ReqSysLibs = pl.sysLibs(stmt.Arg(2))

	core := &binaryFiles{admit: lib.AdmitExt}
	if err := pl.materialiseSources(stmt.Origin, pkg, lib, core, stmt.Arg(0), domain.Public); err != nil {
		return err
	}
	publicCount := len(core.sources)
	if err := pl.materialiseSources(stmt.Origin, pkg, lib, core, stmt.Arg(1), domain.Protected); err != nil {
		return err
	}
	lib.Sources = core.sources
	lib.Objs = core.objs
	lib.PublicSources = core.sources[:publicCount]
	if len(lib.Objs) == 0 {
		return pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrRuleViolation, "reason", "static lib has no objects"), "lib", node.Trail))
	}

	fileName := "lib" + lib.LinkName() + ".a"
	libPath := filepath.Join(ObjRoot, fileName)
	if public {
		libPath = filepath.Join(DistRoot, "lib", fileName)
	}
	libFile, err := pl.proj.NewFile(node, fileName, libPath, domain.StaticLibFile, domain.Public, true)
	if err != nil {
		return pl.fatal(stmt.Origin, err)
	}
	lib.File = libFile

	cmd, ok := pl.opts.SlibCmd[lib.SourceExt]
	if !ok {
		return pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrConfig, "reason", "no static-lib command for extension"), "extension", lib.SourceExt))
	}
	if _, err := pl.newAction(stmt.Origin, pkg, libPath, cmd, lib.Objs, []*domain.File{libFile}); err != nil {
		return err
	}

	if public {
		if err := pl.exportPublicSources(stmt.Origin, pkg, lib); err != nil {
			return err
		}
	}

	pl.slibByTrail[node.Trail] = lib
	pl.binaryByOut[libFile] = lib
	pl.binaries = append(pl.binaries, lib)
	return nil
}

// exportPublicSources copies a public lib's public sources to dist/include.
func (pl *Planner) exportPublicSources(origin domain.Origin, pkg *domain.Node, lib *domain.StaticLib) error {
	for _, src := range lib.PublicSources {
		if src.Built {
			continue // generated sources stay in obj
		}
		dest := filepath.Join(DistRoot, "include", pkg.Trail, src.Name)
		out, err := pl.proj.NewFile(&src.Node, src.Name, dest, domain.MiscFile, domain.Public, true)
		if err != nil {
			return pl.fatal(origin, err)
		}
		cmd := "cp " + src.Path + " " + dest
		if _, err := pl.newAction(origin, pkg, dest, cmd, []*domain.File{src}, []*domain.File{out}); err != nil {
			return err
		}
	}
	return nil
}

// processDynamicLib materialises `dynamic-lib name : static-lib-trails
// [: dest-dir]`.
func (pl *Planner) processDynamicLib(pkg *domain.Node, stmt *bubfile.Statement) error {
	name, err := pl.singleTarget(stmt)
	if err != nil {
		return err
	}
	node, err := pl.proj.NewNode(pkg, name, domain.Public, false)
	if err != nil {
		return pl.fatal(stmt.Origin, err)
	}
	dlib := &domain.DynamicLib{Node: node}

	var objs []*domain.File
	for _, trail := range stmt.Arg(0) {
		slib := pl.resolveStaticLib(pkg, trail)
		if slib == nil {
			return pl.fatal(stmt.Origin,
				zerr.With(zerr.With(domain.ErrUnknownEntity, "reason", "unknown static lib"), "trail", trail))
		}
		if owner, taken := pl.proj.DynamicLibByContent[slib]; taken {
			return pl.fatal(stmt.Origin,
				zerr.With(zerr.With(zerr.With(domain.ErrRuleViolation,
					"reason", "static lib already packaged in a dynamic lib"),
					"lib", slib.Node.Trail), "dynamic-lib", owner.Node.Trail))
		}
		if err := dlib.AdmitExt(slib.SourceExt); err != nil {
			return pl.fatal(stmt.Origin, err)
		}
		pl.proj.DynamicLibByContent[slib] = dlib
		dlib.Contents = append(dlib.Contents, slib)
		objs = append(objs, slib.Objs...)
	}
	if len(objs) == 0 {
		return pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrRuleViolation, "reason", "dynamic lib has no objects"), "lib", node.Trail))
	}

	destDir := filepath.Join(DistRoot, "lib")
	if arg := stmt.Arg(1); len(arg) > 0 {
		destDir = filepath.Join(DistRoot, arg[0])
	}
	fileName := "lib" + name + ".so"
	path := filepath.Join(destDir, fileName)
	libFile, err := pl.proj.NewFile(node, fileName, path, domain.DynamicLibFile, domain.Public, true)
	if err != nil {
		return pl.fatal(stmt.Origin, err)
	}
	dlib.File = libFile

	cmd, ok := pl.opts.DlibCmd[dlib.SourceExt]
	if !ok {
		return pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrConfig, "reason", "no dynamic-lib command for extension"), "extension", dlib.SourceExt))
	}
	if _, err := pl.newAction(stmt.Origin, pkg, path, cmd, objs, []*domain.File{libFile}); err != nil {
		return err
	}
	pl.binaryByOut[libFile] = dlib
	pl.binaries = append(pl.binaries, dlib)
	return nil
}

// resolveStaticLib resolves a static-lib trail relative to the package
// first, then from the root.
func (pl *Planner) resolveStaticLib(pkg *domain.Node, trail string) *domain.StaticLib {
	if pkg.Trail != "" {
		if lib, ok := pl.slibByTrail[pkg.Trail+"/"+trail]; ok {
			return lib
		}
	}
	return pl.slibByTrail[trail]
}

// processExe materialises the three exe flavours. Test exes take a fourth
// field whose first token is the timeout in seconds and whose remaining
// tokens are runtime deps.
func (pl *Planner) processExe(pkg *domain.Node, stmt *bubfile.Statement) error {
	name, err := pl.singleTarget(stmt)
	if err != nil {
		return err
	}
	var kind domain.ExeKind
	switch stmt.Rule {
	case "dist-exe":
		kind = domain.DistExe
	case "priv-exe":
		kind = domain.PrivExe
	case "test-exe":
		kind = domain.TestExe
	}

	node, err := pl.proj.NewNode(pkg, name, domain.Public, false)
	if err != nil {
		return pl.fatal(stmt.Origin, err)
	}
	exe := &domain.Exe{Node: node, Kind: kind}
	exe.ReqSysLibs = pl.sysLibs(stmt.Arg(1))

	core := &binaryFiles{admit: exe.AdmitExt}
	if err := pl.materialiseSources(stmt.Origin, pkg, exe, core, stmt.Arg(0), domain.Protected); err != nil {
		return err
	}
	exe.Sources = core.sources
	exe.Objs = core.objs
	if len(exe.Objs) == 0 {
		return pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrRuleViolation, "reason", "exe has no objects"), "exe", node.Trail))
	}

	path := filepath.Join(PrivRoot, pkg.Trail, name)
	if kind == domain.DistExe {
		path = filepath.Join(DistRoot, "bin", name)
	}
	exeFile, err := pl.proj.NewFile(node, name+"-exe", path, domain.ExeFile, domain.Public, true)
	if err != nil {
		return pl.fatal(stmt.Origin, err)
	}
	exe.File = exeFile

	cmd, ok := pl.opts.ExeCmd[exe.SourceExt]
	if !ok {
		return pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrConfig, "reason", "no exe command for extension"), "extension", exe.SourceExt))
	}
	if _, err := pl.newAction(stmt.Origin, pkg, path, cmd, exe.Objs, []*domain.File{exeFile}); err != nil {
		return err
	}

	if kind == domain.TestExe {
		if err := pl.addTestAction(pkg, stmt, exe); err != nil {
			return err
		}
	}
	pl.binaryByOut[exeFile] = exe
	pl.binaries = append(pl.binaries, exe)
	return nil
}

// addTestAction gives a test exe its second built file: the result stamp
// produced by running the exe inside a worker scratch directory.
func (pl *Planner) addTestAction(pkg *domain.Node, stmt *bubfile.Statement, exe *domain.Exe) error {
	extra := stmt.Arg(2)
	if len(extra) > 0 {
		timeout, err := pl.parseTimeout(stmt.Origin, extra[0])
		if err != nil {
			return err
		}
		exe.Timeout = timeout
	}
	for _, dep := range extra[min(len(extra), 1):] {
		f, ok := pl.proj.FileByPath[dep]
		if !ok {
			var err error
			if f, err = pl.declareSource(stmt.Origin, pkg, dep, domain.Public); err != nil {
				return err
			}
		}
		exe.RuntimeDeps = append(exe.RuntimeDeps, f)
	}

	resultName := exe.Node.Name + "-passed"
	resultPath := filepath.Join(PrivRoot, pkg.Trail, resultName)
	result, err := pl.proj.NewFile(exe.Node, resultName, resultPath, domain.TestResultFile, domain.Private, true)
	if err != nil {
		return pl.fatal(stmt.Origin, err)
	}
	exe.TestResult = result

	cmd := exe.File.Path + " && touch " + resultPath
	a, err := pl.newAction(stmt.Origin, pkg, resultPath, cmd, []*domain.File{exe.File}, []*domain.File{result})
	if err != nil {
		return err
	}
	a.Timeout = exe.Timeout
	a.IsTest = true
	for _, dep := range exe.RuntimeDeps {
		if err := a.AddDependency(dep); err != nil {
			return pl.fatal(stmt.Origin, err)
		}
	}
	return nil
}

// processMisc materialises `misc targets [: dest-dir]`: plain copies into
// obj, or into dist when a dest dir is given.
func (pl *Planner) processMisc(pkg *domain.Node, stmt *bubfile.Statement) error {
	destDir := filepath.Join(ObjRoot, pkg.Trail)
	if arg := stmt.Arg(0); len(arg) > 0 {
		destDir = filepath.Join(DistRoot, arg[0])
	}
	for _, name := range stmt.Targets {
		src, err := pl.declareSource(stmt.Origin, pkg, name, domain.Public)
		if err != nil {
			return err
		}
		dest := filepath.Join(destDir, name)
		out, err := pl.proj.NewFile(&src.Node, name, dest, domain.MiscFile, domain.Public, true)
		if err != nil {
			return pl.fatal(stmt.Origin, err)
		}
		cmd := "cp " + src.Path + " " + dest
		if _, err := pl.newAction(stmt.Origin, pkg, dest, cmd, []*domain.File{src}, []*domain.File{out}); err != nil {
			return err
		}
	}
	return nil
}

// processGenerate materialises `generate targets : command : inputs
// [: dest-dir]`: an explicit code-generation action with a user command.
func (pl *Planner) processGenerate(pkg *domain.Node, stmt *bubfile.Statement) error {
	command := strings.Join(stmt.Arg(0), " ")
	if command == "" {
		return pl.fatal(stmt.Origin,
			zerr.With(zerr.With(domain.ErrConfig, "rule", stmt.Rule), "reason", "missing command"))
	}
	var inputs []*domain.File
	for _, name := range stmt.Arg(1) {
		src, err := pl.declareSource(stmt.Origin, pkg, name, domain.Public)
		if err != nil {
			return err
		}
		inputs = append(inputs, src)
	}
	destDir := filepath.Join(ObjRoot, pkg.Trail)
	if arg := stmt.Arg(2); len(arg) > 0 {
		destDir = arg[0]
	}

	var outs []*domain.File
	generator := false
	for _, name := range stmt.Targets {
		out, err := pl.proj.NewFile(pkg, name, filepath.Join(destDir, name), domain.GeneratedFile, domain.Public, true)
		if err != nil {
			return pl.fatal(stmt.Origin, err)
		}
		outs = append(outs, out)
		if pl.sourceish(filepath.Ext(name)) {
			generator = true
		}
	}
	a, err := pl.newAction(stmt.Origin, pkg, outs[0].Path, command, inputs, outs)
	if err != nil {
		return err
	}
	if generator {
		pl.proj.MarkGenerator(a)
	}
	return nil
}

// headerExts are the scan-only source extensions with no commands of their
// own.
var headerExts = map[string]bool{
	".h": true, ".hh": true, ".hpp": true, ".hxx": true, ".di": true,
}

// sourceish reports whether files of this extension are source-kind: they
// feed compilers or scanners rather than linkers.
func (pl *Planner) sourceish(ext string) bool {
	if headerExts[ext] {
		return true
	}
	if _, ok := pl.opts.Compile[ext]; ok {
		return true
	}
	_, ok := pl.opts.Generate[ext]
	return ok
}

// Package planner implements the build planner: it materialises Bubfiles
// into the package tree and action graph, drives the per-file dirty-rebuild
// state machine, and schedules ready actions over the worker pool.
package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/zerr"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/bubfile"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/options"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// Build-directory subtrees. src is set up by the bootstrap tool; the other
// four are exclusively owned by the build.
const (
	SrcRoot  = "src"
	ObjRoot  = "obj"
	PrivRoot = "priv"
	DistRoot = "dist"
	TmpRoot  = "tmp"
)

// Planner owns all build state. It runs single-threaded; workers only ever
// see resolved commands and report completions.
type Planner struct {
	opts    *options.Options
	cache   ports.DependencyStore
	exec    ports.Executor
	scanner ports.IncludeScanner
	log     ports.Logger
	tel     ports.Telemetry

	proj   *domain.Project
	parser *bubfile.Parser

	// bubfileOf maps a package node to its build file, which every action
	// declared in the package depends on.
	bubfileOf map[*domain.Node]*domain.File
	// slibByTrail resolves static-lib references in dynamic-lib rules.
	slibByTrail map[string]*domain.StaticLib
	// binaryByOut maps a binary's output file back to the binary, for
	// augmentation.
	binaryByOut map[*domain.File]domain.Binary
	// binaries in declaration order, for the describe output.
	binaries []domain.Binary

	// vertices holds the telemetry vertex of each dispatched action.
	vertices map[string]ports.Vertex

	planned bool
}

// New creates a planner over the given collaborators.
func New(
	opts *options.Options,
	cache ports.DependencyStore,
	exec ports.Executor,
	scanner ports.IncludeScanner,
	log ports.Logger,
	tel ports.Telemetry,
	conditionals []string,
) *Planner {
	return &Planner{
		opts:        opts,
		cache:       cache,
		exec:        exec,
		scanner:     scanner,
		log:         log,
		tel:         tel,
		proj:        domain.NewProject(),
		parser:      bubfile.New(opts, conditionals),
		bubfileOf:   make(map[*domain.Node]*domain.File),
		slibByTrail: make(map[string]*domain.StaticLib),
		binaryByOut: make(map[*domain.File]domain.Binary),
		vertices:    make(map[string]ports.Vertex),
	}
}

// Project exposes the planned state, for the describe command and tests.
func (pl *Planner) Project() *domain.Project { return pl.proj }

// Plan processes the root Bubfile and everything it contains.
func (pl *Planner) Plan() error {
	if pl.planned {
		return nil
	}
	if err := pl.processPackage(pl.proj.Root); err != nil {
		return err
	}
	pl.planned = true
	return nil
}

// statFile returns the modification time of path, or zero when the file is
// absent.
func statFile(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// srcPath returns the source-tree path of name inside the package.
func srcPath(pkg *domain.Node, name string) string {
	return filepath.Join(SrcRoot, pkg.Trail, name)
}

// objDirPath returns the object-tree path of name inside the package.
func objDirPath(pkg *domain.Node, name string) string {
	return filepath.Join(ObjRoot, pkg.Trail, name)
}

// depsPath is where the action's command writes discovered dependencies.
// Deriving it from the action number keeps concurrent writers apart.
func depsPath(number int) string {
	return filepath.Join(TmpRoot, fmt.Sprintf("DEPENDENCIES-%d", number))
}

// fatal attaches an origin and logs the error in the "path|line| ERROR:"
// form before returning it.
func (pl *Planner) fatal(origin domain.Origin, err error) error {
	err = domain.WithOrigin(err, origin)
	if origin.Path != "" {
		pl.log.Error(zerr.Wrap(err, origin.String()+"| ERROR"))
	} else {
		pl.log.Error(err)
	}
	return err
}

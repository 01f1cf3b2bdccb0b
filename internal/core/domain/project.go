package domain

import (
	"math"
	"sort"
	"time"

	"go.trai.ch/zerr"
)

// Project is the single context owning the package tree, the file and action
// registries, and the scheduling state. The planner runs single-threaded, so
// none of this is locked.
type Project struct {
	Root *Node

	ByTrail      map[string]*Node
	FileByPath   map[string]*File
	ActionByName map[string]*Action
	SysLibByName map[string]*SysLib

	// BinaryByContent maps every source and object file to the binary that
	// owns it; DynamicLibByContent maps a static lib to the dynamic lib that
	// packages it.
	BinaryByContent     map[*File]Binary
	DynamicLibByContent map[*StaticLib]*DynamicLib

	// AllBuilt is the set of output paths this run plans to produce; the
	// cleanup pass deletes anything else under obj, priv and dist.
	AllBuilt map[string]bool
	// Outstanding is the set of built files whose action has not completed
	// successfully this run.
	Outstanding map[*File]bool

	Queue ActionQueue

	// generators holds the numbers of incomplete generator actions, sorted
	// ascending; the head is the issue fence.
	generators []int

	nextNodeNum   int
	nextActionNum int

	// Counters for the shutdown summary.
	FilesSeen    int
	FilesBuilt   int
	FilesUpdated int
}

// NewProject creates the context with an empty root node.
func NewProject() *Project {
	p := &Project{
		ByTrail:             make(map[string]*Node),
		FileByPath:          make(map[string]*File),
		ActionByName:        make(map[string]*Action),
		SysLibByName:        make(map[string]*SysLib),
		BinaryByContent:     make(map[*File]Binary),
		DynamicLibByContent: make(map[*StaticLib]*DynamicLib),
		AllBuilt:            make(map[string]bool),
		Outstanding:         make(map[*File]bool),
	}
	p.Root = &Node{Number: p.nextNumber(), IsPackage: true}
	return p
}

func (p *Project) nextNumber() int {
	p.nextNodeNum++
	return p.nextNodeNum
}

// NewNode creates a node under parent and registers its trail.
func (p *Project) NewNode(parent *Node, name string, privacy Privacy, isPackage bool) (*Node, error) {
	trail := name
	if parent != nil && parent.Trail != "" {
		trail = parent.Trail + "/" + name
	}
	if _, exists := p.ByTrail[trail]; exists {
		return nil, zerr.With(ErrDuplicateDefinition, "trail", trail)
	}
	n := &Node{
		Name:      name,
		Trail:     trail,
		Privacy:   privacy,
		Number:    p.nextNumber(),
		IsPackage: isPackage,
	}
	if parent != nil {
		parent.AddChild(n)
	}
	p.ByTrail[trail] = n
	return n, nil
}

// NewFile creates a file node under parent and registers its path. Built
// files join the outstanding set.
func (p *Project) NewFile(parent *Node, name, path string, kind FileKind, privacy Privacy, built bool) (*File, error) {
	if prev, exists := p.FileByPath[path]; exists {
		return nil, zerr.With(zerr.With(ErrDuplicateDefinition, "path", path), "previous", prev.Trail)
	}
	trail := name
	if parent != nil && parent.Trail != "" {
		trail = parent.Trail + "/" + name
	}
	if _, exists := p.ByTrail[trail]; exists {
		return nil, zerr.With(ErrDuplicateDefinition, "trail", trail)
	}
	f := &File{
		Node: Node{
			Name:    name,
			Trail:   trail,
			Privacy: privacy,
			Number:  p.nextNumber(),
		},
		Path:  path,
		Kind:  kind,
		Built: built,
	}
	if parent != nil {
		parent.AddChild(&f.Node)
	}
	p.ByTrail[trail] = &f.Node
	p.FileByPath[path] = f
	p.FilesSeen++
	if built {
		f.State = FilePending
		p.AllBuilt[path] = true
		p.Outstanding[f] = true
		p.FilesBuilt++
	} else {
		f.State = FileUpToDate
	}
	return f, nil
}

// NewSysLib returns the registered system library, creating it on first use.
func (p *Project) NewSysLib(name string) *SysLib {
	if lib, ok := p.SysLibByName[name]; ok {
		return lib
	}
	lib := &SysLib{Name: name, Number: p.nextNumber()}
	p.SysLibByName[name] = lib
	return lib
}

// NewAction creates and registers an action producing builds.
func (p *Project) NewAction(origin Origin, name, command string, inputs, builds []*File) (*Action, error) {
	if _, exists := p.ActionByName[name]; exists {
		return nil, WithOrigin(zerr.With(ErrDuplicateDefinition, "action", name), origin)
	}
	if len(builds) == 0 {
		return nil, WithOrigin(zerr.With(ErrConfig, "action", name), origin)
	}
	p.nextActionNum++
	a := &Action{
		Origin:  origin,
		Name:    name,
		Number:  p.nextActionNum,
		Command: command,
		Inputs:  inputs,
		Builds:  builds,
	}
	for _, b := range builds {
		b.Action = a
	}
	for _, in := range inputs {
		a.Depends = append(a.Depends, in)
		for _, b := range builds {
			in.AddDependedBy(b)
		}
	}
	p.ActionByName[name] = a
	return a, nil
}

// MarkGenerator flags the action as a generator and adds it to the fence
// set.
func (p *Project) MarkGenerator(a *Action) {
	if a.Generator {
		return
	}
	a.Generator = true
	p.generators = append(p.generators, a.Number)
	sort.Ints(p.generators)
}

// Fence returns the number of the next incomplete generator. Actions
// numbered above the fence may not be issued.
func (p *Project) Fence() int {
	if len(p.generators) == 0 {
		return math.MaxInt
	}
	return p.generators[0]
}

// GeneratorDone removes the generator's number from the fence set and
// reports whether the fence advanced.
func (p *Project) GeneratorDone(a *Action) bool {
	for i, num := range p.generators {
		if num == a.Number {
			p.generators = append(p.generators[:i], p.generators[i+1:]...)
			return i == 0
		}
	}
	return false
}

// CheckCanDepend validates the edge consumer→dep against declaration order,
// package containment and the visibility calculus, and records the
// cross-package reference.
func (p *Project) CheckCanDepend(consumer, dep *File) error {
	fail := func(reason string) error {
		err := zerr.With(ErrRuleViolation, "reason", reason)
		err = zerr.With(err, "from", consumer.Path)
		err = zerr.With(err, "to", dep.Path)
		return err
	}
	if consumer.Number <= dep.Number && !dep.IsDescendantOf(&consumer.Node) {
		return fail("forward reference")
	}
	cPkg, dPkg := consumer.Node.Package(), dep.Node.Package()
	if cPkg != nil && dPkg != nil && cPkg != dPkg && cPkg.IsDescendantOf(dPkg) {
		return fail("dependency on an enclosing package")
	}
	anc := consumer.Node.CommonAncestor(&dep.Node)
	if anc == nil {
		return fail("no common ancestor")
	}
	if !dep.Node.VisibleFrom(anc) {
		err := fail("not visible")
		return zerr.With(err, "viewpoint", anc.Trail)
	}
	if cPkg != nil && dPkg != nil && cPkg != dPkg {
		if err := cPkg.AddRefer(dPkg); err != nil {
			return err
		}
	}
	return nil
}

// StatAll records a stat function result for built outputs at startup.
// Files with no on-disk presence keep a zero ModTime, which dirtiness checks
// read as "missing".
func (p *Project) StatAll(stat func(path string) time.Time) {
	for f := range p.Outstanding {
		f.ModTime = stat(f.Path)
	}
}

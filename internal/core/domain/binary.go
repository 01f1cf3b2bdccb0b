package domain

import (
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Binary is a built File that aggregates source Files and their compiled
// objects: a static library, a dynamic library or an executable.
type Binary interface {
	// OutFile returns the built artifact.
	OutFile() *File
	// Objects returns the object files the binary aggregates.
	Objects() []*File
	// SysLibs returns the system libraries the binary requires.
	SysLibs() []*SysLib
	// LinkName returns the bare name used on link lines.
	LinkName() string
}

// binaryCore carries the state shared by all binary variants.
type binaryCore struct {
	Sources    []*File
	Objs       []*File
	ReqSysLibs []*SysLib
	// SourceExt is the language-family signature of the sources. Pure .c
	// mixes with any family; everything else must agree.
	SourceExt string
}

func (b *binaryCore) Objects() []*File   { return b.Objs }
func (b *binaryCore) SysLibs() []*SysLib { return b.ReqSysLibs }

// AdmitExt folds ext into the binary's source-extension signature, rejecting
// mixed language families.
func (b *binaryCore) AdmitExt(ext string) error {
	switch {
	case ext == ".c":
		if b.SourceExt == "" {
			b.SourceExt = ext
		}
	case b.SourceExt == "" || b.SourceExt == ".c":
		b.SourceExt = ext
	case b.SourceExt != ext:
		return zerr.With(zerr.With(ErrRuleViolation,
			"reason", "mixed source extensions"), "extensions", b.SourceExt+" "+ext)
	}
	return nil
}

// StaticLib archives the objects of its sources. Public static libs are
// distributable: the archive lives under dist/lib and the public sources are
// exported to dist/include.
type StaticLib struct {
	binaryCore
	Node          *Node
	File          *File
	Public        bool
	PublicSources []*File
}

func (l *StaticLib) OutFile() *File { return l.File }

// LinkName collapses a library named after its package so that package p/lo
// with lib lo links as "p-lo-s", not "p-lo-lo-s".
func (l *StaticLib) LinkName() string {
	trail := l.Node.Trail
	if l.Node.Parent != nil && l.Node.Name == l.Node.Parent.Name {
		trail = l.Node.Parent.Trail
	}
	return strings.ReplaceAll(trail, "/", "-") + "-s"
}

// DynamicLib packages a declared set of static libraries into one shared
// object. Contents are exclusive: no static lib may appear in two dynamic
// libs.
type DynamicLib struct {
	binaryCore
	Node     *Node
	File     *File
	Contents []*StaticLib
}

func (d *DynamicLib) OutFile() *File { return d.File }

func (d *DynamicLib) LinkName() string { return d.Node.Name }

// Objects returns the objects of every contained static lib.
func (d *DynamicLib) Objects() []*File {
	var objs []*File
	for _, lib := range d.Contents {
		objs = append(objs, lib.Objs...)
	}
	return objs
}

// ExeKind distinguishes the three executable flavours.
type ExeKind int

const (
	DistExe ExeKind = iota
	PrivExe
	TestExe
)

// Exe links the objects of its sources into an executable. Test exes own a
// second built file, the test result, produced by running the exe.
type Exe struct {
	binaryCore
	Node        *Node
	File        *File
	Kind        ExeKind
	TestResult  *File
	Timeout     time.Duration
	RuntimeDeps []*File
}

func (e *Exe) OutFile() *File { return e.File }

func (e *Exe) LinkName() string { return e.Node.Name }

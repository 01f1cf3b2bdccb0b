package domain

import "time"

// FileKind is the sealed set of file variants. Behaviour that differs per
// kind (augmentation, include scanning) is dispatched at the call sites.
type FileKind int

const (
	SourceFile FileKind = iota
	GeneratedFile
	ObjectFile
	StaticLibFile
	DynamicLibFile
	ExeFile
	TestResultFile
	MiscFile
)

// FileState is the position of a File in its build lifecycle.
type FileState int

const (
	// FilePending means the file's action has not been issued yet.
	FilePending FileState = iota
	// FileIssued means the file's action has been queued or dispatched.
	FileIssued
	// FileUpToDate means the on-disk artifact is current but the file's
	// includes have not yet been scanned and settled.
	FileUpToDate
	// FileClean means up to date with all scanned include deps clean.
	FileClean
)

// File is a Node bound to one on-disk artifact, source or built.
type File struct {
	Node
	Path    string
	Kind    FileKind
	Built   bool
	ModTime time.Time
	State   FileState

	// Action produces the file; nil for sources.
	Action *Action
	// DependedBy holds reverse edges: files whose cleanliness or issue
	// depends on this one.
	DependedBy map[*File]bool
	// Includes holds the scanned in-project include dependencies.
	Includes []*File
	// Used marks the file as consumed by a Binary.
	Used bool
	// Augmented marks that augmentAction has run.
	Augmented bool
	// Scanned marks that the include scan has run.
	Scanned bool
}

// AddDependedBy registers consumer as a reverse edge.
func (f *File) AddDependedBy(consumer *File) {
	if f.DependedBy == nil {
		f.DependedBy = make(map[*File]bool)
	}
	f.DependedBy[consumer] = true
}

// SourceKind reports whether the file is scanned for includes once up to
// date.
func (f *File) SourceKind() bool {
	return f.Kind == SourceFile || f.Kind == GeneratedFile
}

// Clean reports whether the file has fully settled this run.
func (f *File) Clean() bool {
	return f.State == FileClean
}

// SysLib is an external system library. The number orders it on link lines.
type SysLib struct {
	Name   string
	Number int
}

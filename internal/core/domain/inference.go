package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

// InferLibs resolves the link set of a dynamic library or executable by
// closing over the dependency-cache entries of its objects. It runs at
// augmentation time, when the objects have just become up to date and their
// cache entries are authoritative for this run.
//
// lookup returns the cached build-dir-relative dependency paths of an
// object. The returned libs are bare linker names ordered static libs
// first, then dynamic libs, then system libs, each group by owning
// declaration number descending. deps are the library files the target must
// now wait for.
func (p *Project) InferLibs(target Binary, lookup func(objPath string) []string) (libs []string, deps []*File, err error) {
	targetDlib, targetIsDlib := target.(*DynamicLib)
	targetNumber := targetNode(target).Number

	var (
		statics  []*StaticLib
		dynamics []*DynamicLib
		system   []*SysLib

		seenObj  = make(map[*File]bool)
		seenSlib = make(map[*StaticLib]bool)
		seenDlib = make(map[*DynamicLib]bool)
		seenSys  = make(map[*SysLib]bool)
	)

	addSys := func(reqs []*SysLib) {
		for _, s := range reqs {
			if !seenSys[s] {
				seenSys[s] = true
				system = append(system, s)
			}
		}
	}
	addSys(target.SysLibs())

	var accumulate func(obj *File) error
	accumulate = func(obj *File) error {
		if seenObj[obj] {
			return nil
		}
		seenObj[obj] = true
		for _, path := range lookup(obj.Path) {
			file, ok := p.FileByPath[path]
			if !ok {
				return zerr.With(zerr.With(ErrUnknownEntity, "path", path), "object", obj.Path)
			}
			container, ok := p.BinaryByContent[file]
			if !ok {
				// Outputs of explicit generate rules belong to no binary
				// and impose no link requirement.
				if file.Kind == GeneratedFile || file.Kind == MiscFile {
					continue
				}
				return zerr.With(zerr.With(ErrUnknownEntity,
					"reason", "file not owned by any binary"), "path", file.Path)
			}
			addSys(container.SysLibs())
			if container == target {
				continue
			}
			slib, ok := container.(*StaticLib)
			if !ok {
				return zerr.With(zerr.With(zerr.With(ErrRuleViolation,
					"reason", "dependency reaches into another binary"),
					"target", targetNode(target).Trail), "via", file.Path)
			}
			if targetIsDlib && p.DynamicLibByContent[slib] == targetDlib {
				continue
			}
			dlib := p.DynamicLibByContent[slib]
			if dlib != nil && dlib.Node.Number < targetNumber {
				if !seenDlib[dlib] {
					seenDlib[dlib] = true
					dynamics = append(dynamics, dlib)
					deps = append(deps, dlib.File)
					for _, content := range dlib.Contents {
						for _, o := range content.Objs {
							if err := accumulate(o); err != nil {
								return err
							}
						}
					}
				}
				continue
			}
			if targetIsDlib {
				return zerr.With(zerr.With(ErrRuleViolation,
					"reason", "static lib required by dynamic lib is not packaged in an earlier dynamic lib"),
					"pair", targetNode(target).Trail+" -> "+slib.Node.Trail)
			}
			if !seenSlib[slib] {
				seenSlib[slib] = true
				statics = append(statics, slib)
				deps = append(deps, slib.File)
				for _, o := range slib.Objs {
					if err := accumulate(o); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	for _, obj := range target.Objects() {
		if err := accumulate(obj); err != nil {
			return nil, nil, err
		}
	}

	sort.Slice(statics, func(i, j int) bool { return statics[i].Node.Number > statics[j].Node.Number })
	sort.Slice(dynamics, func(i, j int) bool { return dynamics[i].Node.Number > dynamics[j].Node.Number })
	sort.Slice(system, func(i, j int) bool { return system[i].Number > system[j].Number })

	for _, s := range statics {
		libs = append(libs, s.LinkName())
	}
	for _, d := range dynamics {
		libs = append(libs, d.LinkName())
	}
	for _, s := range system {
		libs = append(libs, s.Name)
	}
	return libs, deps, nil
}

func targetNode(b Binary) *Node {
	switch t := b.(type) {
	case *StaticLib:
		return t.Node
	case *DynamicLib:
		return t.Node
	case *Exe:
		return t.Node
	}
	return nil
}

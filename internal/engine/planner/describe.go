package planner

import (
	"gopkg.in/yaml.v3"

	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
)

// Description is the YAML-renderable view of the planned project, produced
// by `bub graph`.
type Description struct {
	Packages []PackageDesc `yaml:"packages"`
}

// PackageDesc describes one package and its binaries.
type PackageDesc struct {
	Trail    string       `yaml:"trail"`
	Privacy  string       `yaml:"privacy"`
	Binaries []BinaryDesc `yaml:"binaries,omitempty"`
}

// BinaryDesc describes one binary: its output, sources and link command.
type BinaryDesc struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Output  string   `yaml:"output"`
	Sources []string `yaml:"sources,omitempty"`
	SysLibs []string `yaml:"sys-libs,omitempty"`
	Command string   `yaml:"command,omitempty"`
}

// Describe plans the project (without building) and renders it as YAML.
// The dependency cache is flushed back untouched: describing a project must
// not eat the cache the startup read unlinked.
func (pl *Planner) Describe() (string, error) {
	if err := pl.Plan(); err != nil {
		return "", err
	}
	if err := pl.cache.Flush(); err != nil {
		return "", err
	}

	byPkg := make(map[*domain.Node][]BinaryDesc)
	var pkgOrder []*domain.Node
	seen := make(map[*domain.Node]bool)

	for _, bin := range pl.binaries {
		node := binaryNode(bin)
		pkg := node.Package()
		if !seen[pkg] {
			seen[pkg] = true
			pkgOrder = append(pkgOrder, pkg)
		}
		byPkg[pkg] = append(byPkg[pkg], pl.describeBinary(bin))
	}

	var desc Description
	for _, pkg := range pkgOrder {
		trail := pkg.Trail
		if trail == "" {
			trail = "/"
		}
		desc.Packages = append(desc.Packages, PackageDesc{
			Trail:    trail,
			Privacy:  pkg.Privacy.String(),
			Binaries: byPkg[pkg],
		})
	}

	out, err := yaml.Marshal(&desc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (pl *Planner) describeBinary(bin domain.Binary) BinaryDesc {
	node := binaryNode(bin)
	d := BinaryDesc{
		Name:   node.Name,
		Output: bin.OutFile().Path,
	}
	for _, s := range bin.SysLibs() {
		d.SysLibs = append(d.SysLibs, s.Name)
	}
	if a := bin.OutFile().Action; a != nil {
		d.Command = a.Command
	}
	switch b := bin.(type) {
	case *domain.StaticLib:
		d.Kind = "static-lib"
		if b.Public {
			d.Kind = "public-lib"
		}
		for _, s := range b.Sources {
			d.Sources = append(d.Sources, s.Path)
		}
	case *domain.DynamicLib:
		d.Kind = "dynamic-lib"
		for _, c := range b.Contents {
			d.Sources = append(d.Sources, c.Node.Trail)
		}
	case *domain.Exe:
		switch b.Kind {
		case domain.DistExe:
			d.Kind = "dist-exe"
		case domain.PrivExe:
			d.Kind = "priv-exe"
		case domain.TestExe:
			d.Kind = "test-exe"
		}
		for _, s := range b.Sources {
			d.Sources = append(d.Sources, s.Path)
		}
	}
	return d
}

func binaryNode(bin domain.Binary) *domain.Node {
	switch b := bin.(type) {
	case *domain.StaticLib:
		return b.Node
	case *domain.DynamicLib:
		return b.Node
	case *domain.Exe:
		return b.Node
	}
	return nil
}

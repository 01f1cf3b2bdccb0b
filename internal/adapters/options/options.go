// Package options loads the key=value options file written by the
// build-directory bootstrap tool and classifies its build commands.
package options

import (
	"os"
	"strings"

	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
	"go.trai.ch/zerr"
)

// FileName is the options file the bootstrap tool writes into the build
// directory.
const FileName = "Buboptions"

// Reserved output extensions; each may only appear as the sole output of a
// link or compile command key.
var reserved = map[string]bool{"obj": true, "slib": true, "dlib": true, "exe": true}

// Generate describes a generate command: it produces one output per suffix
// from each input.
type Generate struct {
	Command  string
	Suffixes []string
}

// Options holds the parsed variable and command tables. Command maps are
// keyed by input extension including the dot (".cpp").
type Options struct {
	Vars map[string][]string

	Compile  map[string]string
	Generate map[string]Generate
	SlibCmd  map[string]string
	DlibCmd  map[string]string
	ExeCmd   map[string]string
}

// Load reads the options file at path.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path) //nolint:gosec // build-dir file
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read options file")
	}
	return Parse(path, string(data))
}

// Parse parses the options file content. Lines are `key = value`; only the
// first " = " separates, so values may contain '='.
func Parse(path, content string) (*Options, error) {
	o := &Options{
		Vars:     make(map[string][]string),
		Compile:  make(map[string]string),
		Generate: make(map[string]Generate),
		SlibCmd:  make(map[string]string),
		DlibCmd:  make(map[string]string),
		ExeCmd:   make(map[string]string),
	}
	for i, line := range strings.Split(content, "\n") {
		origin := domain.Origin{Path: path, Line: i + 1}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, found := strings.Cut(trimmed, " = ")
		if !found {
			return nil, domain.WithOrigin(zerr.With(domain.ErrConfig, "line", trimmed), origin)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if strings.HasPrefix(key, ".") {
			if err := o.addCommand(origin, key, value); err != nil {
				return nil, err
			}
			continue
		}
		if _, exists := o.Vars[key]; exists {
			return nil, domain.WithOrigin(zerr.With(domain.ErrDuplicateDefinition, "variable", key), origin)
		}
		o.Vars[key] = strings.Fields(value)
	}
	return o, nil
}

// addCommand classifies a build-command key of the form
// ".<in-ext>.<out-ext>[.<out-ext>...]".
func (o *Options) addCommand(origin domain.Origin, key, command string) error {
	parts := strings.Split(key[1:], ".")
	if len(parts) < 2 {
		return domain.WithOrigin(zerr.With(domain.ErrConfig, "command-key", key), origin)
	}
	in := "." + parts[0]
	outs := parts[1:]

	fail := func(reason string) error {
		err := zerr.With(domain.ErrConfig, "command-key", key)
		return domain.WithOrigin(zerr.With(err, "reason", reason), origin)
	}

	if len(outs) == 1 && reserved[outs[0]] {
		var table map[string]string
		switch outs[0] {
		case "obj":
			if o.hasSourceCommand(in) {
				return fail("input extension already owns a compile or generate command")
			}
			table = o.Compile
		case "slib":
			table = o.SlibCmd
		case "dlib":
			table = o.DlibCmd
		case "exe":
			table = o.ExeCmd
		}
		if _, exists := table[in]; exists {
			return fail("duplicate command")
		}
		table[in] = command
		return nil
	}

	suffixes := make([]string, len(outs))
	for i, out := range outs {
		if reserved[out] {
			return fail("reserved extension in generate outputs")
		}
		suffixes[i] = "." + out
	}
	if o.hasSourceCommand(in) {
		return fail("input extension already owns a compile or generate command")
	}
	o.Generate[in] = Generate{Command: command, Suffixes: suffixes}
	return nil
}

// hasSourceCommand reports whether in already owns a compile or generate
// command.
func (o *Options) hasSourceCommand(in string) bool {
	if _, ok := o.Compile[in]; ok {
		return true
	}
	_, ok := o.Generate[in]
	return ok
}

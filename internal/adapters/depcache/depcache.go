// Package depcache persists per-output dependency lists across runs.
package depcache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// FileName is the cache file in the build directory.
const FileName = "dependency-cache"

// Store implements ports.DependencyStore over a line-oriented file: one
// output path per line followed by its dependency paths, whitespace
// separated.
//
// The file is read once at construction and immediately unlinked, so a
// crashed run can never leave a lying cache behind: the cache is
// correct-or-absent. Flush rewrites it via a temporary file and rename.
type Store struct {
	path    string
	entries map[string][]string
}

// NewStore reads and unlinks the cache file at path. A missing file is an
// empty cache.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    filepath.Clean(path),
		entries: make(map[string][]string),
	}
	data, err := os.ReadFile(s.path) //nolint:gosec // build-dir file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, zerr.Wrap(err, "failed to read dependency cache")
	}
	if err := os.Remove(s.path); err != nil {
		return nil, zerr.Wrap(err, "failed to unlink dependency cache")
	}
	for _, line := range strings.Split(string(data), "\n") {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		s.entries[tokens[0]] = tokens[1:]
	}
	return s, nil
}

// Lookup returns the cached dependency paths of output.
func (s *Store) Lookup(output string) ([]string, bool) {
	deps, ok := s.entries[output]
	return deps, ok
}

// Update replaces the cache entry for output.
func (s *Store) Update(output string, deps []string) {
	s.entries[output] = deps
}

// Flush writes all entries to a temporary file and renames it into place.
// Entries are sorted so the file is stable across runs.
func (s *Store) Flush() error {
	outputs := make([]string, 0, len(s.entries))
	for output := range s.entries {
		outputs = append(outputs, output)
	}
	sort.Strings(outputs)

	var b strings.Builder
	for _, output := range outputs {
		b.WriteString(output)
		for _, dep := range s.entries[output] {
			b.WriteByte(' ')
			b.WriteString(dep)
		}
		b.WriteByte('\n')
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil { //nolint:gosec // build-dir file
		return zerr.Wrap(err, "failed to write dependency cache")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return zerr.Wrap(err, "failed to rename dependency cache into place")
	}
	return nil
}

// ParseDepsFile parses the content a build command wrote to its deps path:
// whitespace-separated tokens with backslash line continuations. If the
// content contains parentheses, only the text inside them is the payload
// (rule-syntax compiler variants). Makefile-style target tokens (trailing
// ':') are dropped.
func ParseDepsFile(content string) []string {
	if strings.ContainsRune(content, '(') {
		var inner []string
		rest := content
		for {
			start := strings.IndexByte(rest, '(')
			if start < 0 {
				break
			}
			end := strings.IndexByte(rest[start:], ')')
			if end < 0 {
				break
			}
			inner = append(inner, rest[start+1:start+end])
			rest = rest[start+end+1:]
		}
		content = strings.Join(inner, " ")
	}
	var deps []string
	for _, tok := range strings.Fields(content) {
		if tok == "\\" {
			continue
		}
		tok = strings.TrimSuffix(tok, "\\")
		if strings.HasSuffix(tok, ":") {
			continue
		}
		if tok != "" {
			deps = append(deps, tok)
		}
	}
	return deps
}

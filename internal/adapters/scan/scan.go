// Package scan extracts in-project includes from C-family sources and
// imports from D-family sources.
package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

var (
	cExts = map[string]bool{
		".c": true, ".h": true,
		".cc": true, ".hh": true,
		".cpp": true, ".hpp": true,
		".cxx": true, ".hxx": true,
	}
	dExts = map[string]bool{".d": true, ".di": true}
)

// Scanner reads source files and returns their in-project include paths.
// Angle-bracket includes and imports whose first segment is listed in
// externals are skipped.
type Scanner struct {
	externals map[string]bool
}

// New creates a scanner. externals lists D import roots that resolve
// outside the project (typically the EXTERNALS options variable).
func New(externals []string) *Scanner {
	set := make(map[string]bool, len(externals))
	for _, e := range externals {
		set[e] = true
	}
	return &Scanner{externals: set}
}

// Scan extracts includes from the file at path, dispatching on extension.
// Files of neither family scan to nothing.
func (s *Scanner) Scan(path string) ([]string, error) {
	ext := filepath.Ext(path)
	if !cExts[ext] && !dExts[ext] {
		return nil, nil
	}
	f, err := os.Open(path) //nolint:gosec // build-dir file
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open source file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // read-only

	var includes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if cExts[ext] {
			if inc, ok := cInclude(line); ok {
				includes = append(includes, inc)
			}
			continue
		}
		includes = append(includes, s.dImports(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to scan source file"), "path", path)
	}
	return includes, nil
}

// cInclude extracts the path of a `#include "..."` directive. Angle-bracket
// includes are system headers and skipped.
func cInclude(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	rest := strings.TrimSpace(trimmed[1:])
	if !strings.HasPrefix(rest, "include") {
		return "", false
	}
	rest = strings.TrimSpace(rest[len("include"):])
	if len(rest) < 2 || rest[0] != '"' {
		return "", false
	}
	end := strings.IndexByte(rest[1:], '"')
	if end < 0 {
		return "", false
	}
	return rest[1 : 1+end], true
}

// dImports extracts the module paths of an `import a.b, c.d;` statement,
// mapping each module to its source path. Renamed imports (`import x = a.b`)
// resolve to the right-hand module.
func (s *Scanner) dImports(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "public ")
	trimmed = strings.TrimPrefix(trimmed, "static ")
	if !strings.HasPrefix(trimmed, "import ") {
		return nil
	}
	body := strings.TrimPrefix(trimmed, "import ")
	if i := strings.IndexByte(body, ';'); i >= 0 {
		body = body[:i]
	}
	var paths []string
	for _, part := range strings.Split(body, ",") {
		mod := strings.TrimSpace(part)
		// Selective imports: `import a.b : foo`.
		if i := strings.IndexByte(mod, ':'); i >= 0 {
			mod = strings.TrimSpace(mod[:i])
		}
		// Renamed imports: `import x = a.b`.
		if i := strings.IndexByte(mod, '='); i >= 0 {
			mod = strings.TrimSpace(mod[i+1:])
		}
		if mod == "" {
			continue
		}
		segments := strings.Split(mod, ".")
		if s.externals[segments[0]] {
			continue
		}
		paths = append(paths, filepath.Join(segments...)+".d")
	}
	return paths
}

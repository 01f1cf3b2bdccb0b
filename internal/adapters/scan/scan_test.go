package scan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/scan"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScan_CIncludes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hi.cpp", `
#include "p/lo/lo.h"
#include <vector>
  #  include "p/hi/util.h"
// #include "commented.h" is still a directive? no, not a hash at start
int main() { return 0; }
`)

	s := scan.New(nil)
	incs, err := s.Scan(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"p/lo/lo.h", "p/hi/util.h"}, incs)
}

func TestScan_DImports(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.d", `
import std.stdio;
import p.lo.lo, p.hi.util;
public import p.base;
import renamed = p.other;
import p.sel : thing;
void main() {}
`)

	s := scan.New([]string{"std", "core"})
	incs, err := s.Scan(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("p", "lo", "lo") + ".d",
		filepath.Join("p", "hi", "util") + ".d",
		filepath.Join("p", "base") + ".d",
		filepath.Join("p", "other") + ".d",
		filepath.Join("p", "sel") + ".d",
	}, incs)
}

func TestScan_UnknownExtensionScansToNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.txt", `#include "not/scanned.h"`)

	s := scan.New(nil)
	incs, err := s.Scan(path)
	require.NoError(t, err)
	assert.Empty(t, incs)
}

func TestScan_MissingFile(t *testing.T) {
	s := scan.New(nil)
	_, err := s.Scan(filepath.Join(t.TempDir(), "absent.cpp"))
	assert.Error(t, err)
}

package planner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/depcache"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/logger"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/options"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/scan"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/telemetry"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/worker"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
	"github.com/GrahamStJack/bottom-up-build/internal/engine/planner"
)

// buboptions uses portable stand-ins for real compilers: objects are copies
// of their sources, the "compiler" emits a deps file by scanning quoted
// includes, and the exe link line appends the resolved libs.
const buboptions = `.cpp.obj = cp ${INPUT} ${OUTPUT} ; for f in $(sed -n 's/#include "\(.*\)"/\1/p' ${INPUT}); do if [ -f src/$f ]; then echo src/$f; elif [ -f obj/$f ]; then echo obj/$f; fi; done > ${DEPS}
.cpp.slib = cat ${INPUT} > ${OUTPUT}
.cpp.dlib = cat ${INPUT} > ${OUTPUT}
.cpp.exe = cat ${INPUT} > ${OUTPUT} && chmod +x ${OUTPUT} && echo ${LIBS} >> ${OUTPUT}
`

// newBuildDir materialises a build directory: Buboptions plus the given
// src-relative files.
func newBuildDir(t *testing.T, files map[string]string) {
	t.Helper()
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(options.FileName, []byte(buboptions), 0o644))
	for name, content := range files {
		path := filepath.Join("src", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// newPlanner wires a planner over real adapters, one per build run, the way
// a real invocation would.
func newPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	opts, err := options.Load(options.FileName)
	require.NoError(t, err)
	cache, err := depcache.NewStore(depcache.FileName)
	require.NoError(t, err)
	log := logger.New()
	return planner.New(opts, cache, worker.NewPool(log), scan.New(nil), log, telemetry.NewNoOp(), nil)
}

func build(t *testing.T) (*planner.Planner, error) {
	t.Helper()
	pl := newPlanner(t)
	return pl, pl.Build(context.Background(), 2)
}

func touchFuture(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
}

func TestBuild_SingleStaticLib(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":   "contain p;",
		"p/Bubfile": "static-lib foo : foo.h : foo.cpp;",
		"p/foo.h":   "int foo();\n",
		"p/foo.cpp": "#include \"p/foo.h\"\nint foo() { return 1; }\n",
	})

	pl, err := build(t)
	require.NoError(t, err)

	assert.FileExists(t, "obj/p/foo.o")
	assert.FileExists(t, "obj/libp-foo-s.a")
	assert.Equal(t, 2, pl.Project().FilesUpdated)

	// An immediate rebuild does nothing.
	pl2, err := build(t)
	require.NoError(t, err)
	assert.Equal(t, 0, pl2.Project().FilesUpdated)
}

func TestBuild_PublicLibExportsHeaders(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":   "contain p;",
		"p/Bubfile": "public-lib foo : foo.h : foo.cpp;",
		"p/foo.h":   "int foo();\n",
		"p/foo.cpp": "#include \"p/foo.h\"\nint foo() { return 1; }\n",
	})

	_, err := build(t)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join("dist", "lib", "libp-foo-s.a"))
	assert.FileExists(t, filepath.Join("dist", "include", "p", "foo.h"))
}

func TestBuild_HeaderTouchRebuildsOnlyDependents(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":     "contain p q;",
		"p/Bubfile":   "static-lib foo : foo.h : foo.cpp;",
		"p/foo.h":     "int foo();\n",
		"p/foo.cpp":   "#include \"p/foo.h\"\nint foo() { return 1; }\n",
		"q/Bubfile":   "static-lib bar : bar.h : bar.cpp;",
		"q/bar.h":     "int bar();\n",
		"q/bar.cpp":   "#include \"q/bar.h\"\nint bar() { return 2; }\n",
	})

	_, err := build(t)
	require.NoError(t, err)

	touchFuture(t, filepath.Join("src", "p", "foo.h"))

	pl, err := build(t)
	require.NoError(t, err)
	// Only foo.o and the p lib rebuild; q is untouched.
	assert.Equal(t, 2, pl.Project().FilesUpdated)
}

func TestBuild_InfersLibraryLink(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":      "contain p;",
		"p/Bubfile":    "contain lo hi;",
		"p/lo/Bubfile": "static-lib lo : lo.h : lo.cpp;",
		"p/lo/lo.h":    "int lo();\n",
		"p/lo/lo.cpp":  "#include \"p/lo/lo.h\"\nint lo() { return 1; }\n",
		"p/hi/Bubfile": "dist-exe hi : hi.cpp;",
		"p/hi/hi.cpp":  "#include \"p/lo/lo.h\"\nint main() { return lo(); }\n",
	})

	_, err := build(t)
	require.NoError(t, err)

	exe, err := os.ReadFile(filepath.Join("dist", "bin", "hi"))
	require.NoError(t, err)
	assert.Contains(t, string(exe), "p-lo-s")

	// Touching lo.cpp rebuilds lo.o, the lo lib and the hi exe.
	touchFuture(t, filepath.Join("src", "p", "lo", "lo.cpp"))
	pl, err := build(t)
	require.NoError(t, err)
	assert.Equal(t, 3, pl.Project().FilesUpdated)
}

func TestBuild_DynamicLibPreemptsStatic(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":      "contain p;",
		"p/Bubfile":    "contain lo hi;",
		"p/lo/Bubfile": "static-lib lo : lo.h : lo.cpp;\ndynamic-lib lo-dyn : lo;",
		"p/lo/lo.h":    "int lo();\n",
		"p/lo/lo.cpp":  "#include \"p/lo/lo.h\"\nint lo() { return 1; }\n",
		"p/hi/Bubfile": "dist-exe hi : hi.cpp;",
		"p/hi/hi.cpp":  "#include \"p/lo/lo.h\"\nint main() { return lo(); }\n",
	})

	_, err := build(t)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join("dist", "lib", "liblo-dyn.so"))
	exe, err := os.ReadFile(filepath.Join("dist", "bin", "hi"))
	require.NoError(t, err)
	assert.Contains(t, string(exe), "lo-dyn")
	assert.NotContains(t, string(exe), "p-lo-s")
}

func TestBuild_VisibilityViolationAborts(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":     "contain p;",
		"p/Bubfile":   "contain a : protected;\ncontain b;",
		"p/a/Bubfile": "static-lib foo : foo.h : foo.cpp;",
		"p/a/foo.h":   "int foo();\n",
		"p/a/foo.cpp": "#include \"p/a/foo.h\"\nint foo() { return 1; }\n",
		"p/b/Bubfile": "dist-exe hi : hi.cpp;",
		"p/b/hi.cpp":  "#include \"p/a/foo.h\"\nint main() { return 0; }\n",
	})

	_, err := build(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuleViolation)
}

func TestBuild_UnknownIncludeAborts(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":   "contain p;",
		"p/Bubfile": "static-lib foo : foo.h : foo.cpp;",
		"p/foo.h":   "int foo();\n",
		"p/foo.cpp": "#include \"p/nowhere.h\"\nint foo() { return 1; }\n",
	})

	_, err := build(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)
}

func TestBuild_GeneratedHeaderFeedsLaterExe(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":     "contain p;",
		"p/Bubfile":   "generate msg.h : cp ${INPUT} ${OUTPUT} : msg.tpl;\ndist-exe hi : hi.cpp;",
		"p/msg.tpl":   "int msg();\n",
		"p/hi.cpp":    "#include \"p/msg.h\"\nint main() { return 0; }\n",
	})

	_, err := build(t)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join("obj", "p", "msg.h"))
	assert.FileExists(t, filepath.Join("dist", "bin", "hi"))
}

func TestBuild_StaleOutputsAreDeleted(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":   "contain p;",
		"p/Bubfile": "static-lib foo : foo.h : foo.cpp;",
		"p/foo.h":   "int foo();\n",
		"p/foo.cpp": "#include \"p/foo.h\"\nint foo() { return 1; }\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join("obj", "gone"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("obj", "gone", "stale.o"), []byte("old"), 0o644))

	_, err := build(t)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join("obj", "gone", "stale.o"))
	assert.NoDirExists(t, filepath.Join("obj", "gone"))
}

func TestBuild_CacheSurvivesAndRecovers(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":   "contain p;",
		"p/Bubfile": "static-lib foo : foo.h : foo.cpp;",
		"p/foo.h":   "int foo();\n",
		"p/foo.cpp": "#include \"p/foo.h\"\nint foo() { return 1; }\n",
	})

	_, err := build(t)
	require.NoError(t, err)
	assert.FileExists(t, depcache.FileName)

	// Deleting the cache forces a full rebuild, which still succeeds and
	// rewrites the cache.
	require.NoError(t, os.Remove(depcache.FileName))
	pl, err := build(t)
	require.NoError(t, err)
	assert.Equal(t, 2, pl.Project().FilesUpdated)
	assert.FileExists(t, depcache.FileName)
}

func TestBuild_TestExeProducesResultStamp(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile": "contain p;",
		"p/Bubfile": "test-exe check : check.cpp : : 30;",
		// The fake exe is a shell script: the link command concatenates the
		// objects and marks the result executable.
		"p/check.cpp": "exit 0\n",
	})

	pl, err := build(t)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join("priv", "p", "check-passed"))
	result, ok := pl.Project().FileByPath[filepath.Join("priv", "p", "check-passed")]
	require.True(t, ok)
	assert.Equal(t, domain.TestResultFile, result.Kind)
}

func TestGraph_DescribesPlannedTree(t *testing.T) {
	newBuildDir(t, map[string]string{
		"Bubfile":   "contain p;",
		"p/Bubfile": "static-lib foo : foo.h : foo.cpp;",
		"p/foo.h":   "int foo();\n",
		"p/foo.cpp": "#include \"p/foo.h\"\nint foo() { return 1; }\n",
	})

	pl := newPlanner(t)
	out, err := pl.Describe()
	require.NoError(t, err)
	assert.Contains(t, out, "trail: p")
	assert.Contains(t, out, "kind: static-lib")
	assert.Contains(t, out, "output: obj/libp-foo-s.a")
}

package depcache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/depcache"
)

func TestStore_ReadsAndUnlinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependency-cache")
	content := "obj/p/foo.o src/p/foo.cpp src/p/foo.h /usr/include/stdio.h\nobj/p/bar.o src/p/bar.cpp\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := depcache.NewStore(path)
	require.NoError(t, err)

	// The backing file is gone: a crashed run cannot leave a lying cache.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	deps, ok := s.Lookup("obj/p/foo.o")
	require.True(t, ok)
	assert.Equal(t, []string{"src/p/foo.cpp", "src/p/foo.h", "/usr/include/stdio.h"}, deps)

	_, ok = s.Lookup("obj/p/missing.o")
	assert.False(t, ok)
}

func TestStore_MissingFileIsEmptyCache(t *testing.T) {
	s, err := depcache.NewStore(filepath.Join(t.TempDir(), "dependency-cache"))
	require.NoError(t, err)
	_, ok := s.Lookup("anything")
	assert.False(t, ok)
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependency-cache")
	content := "obj/a.o src/a.cpp\nobj/b.o src/b.cpp src/b.h\nobj/empty.o\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := depcache.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	// No edits: the flushed line set equals the input.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "obj/a.o src/a.cpp\nobj/b.o src/b.cpp src/b.h\nobj/empty.o\n", string(data))
}

func TestStore_UpdateReplacesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependency-cache")
	s, err := depcache.NewStore(path)
	require.NoError(t, err)

	s.Update("obj/a.o", []string{"src/a.cpp", "src/a.h"})
	s.Update("obj/a.o", []string{"src/a.cpp"})
	require.NoError(t, s.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "obj/a.o src/a.cpp\n", string(data))
}

func TestParseDepsFile(t *testing.T) {
	cases := map[string]struct {
		content string
		want    []string
	}{
		"plain tokens": {
			content: "src/a.cpp src/a.h",
			want:    []string{"src/a.cpp", "src/a.h"},
		},
		"gcc style with continuations": {
			content: "obj/a.o: src/a.cpp \\\n src/a.h \\\n /usr/include/stdio.h\n",
			want:    []string{"src/a.cpp", "src/a.h", "/usr/include/stdio.h"},
		},
		"rule syntax keeps parenthesised payload": {
			content: "depsImport a.b (src/a/b.d) : private : c.d (src/c/d.d)\n",
			want:    []string{"src/a/b.d", "src/c/d.d"},
		},
		"empty": {
			content: "",
			want:    nil,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, depcache.ParseDepsFile(tc.content))
		})
	}
}

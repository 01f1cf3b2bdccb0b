package bubfile_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/bubfile"
	"github.com/GrahamStJack/bottom-up-build/internal/adapters/options"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
)

func newParser(t *testing.T, conditionals ...string) *bubfile.Parser {
	t.Helper()
	opts, err := options.Parse("Buboptions", "SRCS = util.cpp extra.cpp\n")
	require.NoError(t, err)
	return bubfile.New(opts, conditionals)
}

func TestParse_Statements(t *testing.T) {
	p := newParser(t)
	stmts, err := p.Parse("src/p/Bubfile", `
# a package build file
contain lo hi : protected;
static-lib math : math.h : math.cpp impl.cpp : m;
`)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	contain := stmts[0]
	assert.Equal(t, "contain", contain.Rule)
	assert.Equal(t, []string{"lo", "hi"}, contain.Targets)
	assert.Equal(t, []string{"protected"}, contain.Arg(0))
	assert.Equal(t, 3, contain.Origin.Line)

	lib := stmts[1]
	assert.Equal(t, "static-lib", lib.Rule)
	assert.Equal(t, []string{"math"}, lib.Targets)
	assert.Equal(t, []string{"math.h"}, lib.Arg(0))
	assert.Equal(t, []string{"math.cpp", "impl.cpp"}, lib.Arg(1))
	assert.Equal(t, []string{"m"}, lib.Arg(2))
	assert.Nil(t, lib.Arg(3))
}

func TestParse_SeparatorsNeedNoWhitespace(t *testing.T) {
	p := newParser(t)
	stmts, err := p.Parse("Bubfile", "static-lib m:m.h:m.cpp;")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, []string{"m"}, stmts[0].Targets)
	assert.Equal(t, []string{"m.h"}, stmts[0].Arg(0))
	assert.Equal(t, []string{"m.cpp"}, stmts[0].Arg(1))
}

func TestParse_VariableExpansion(t *testing.T) {
	p := newParser(t)
	stmts, err := p.Parse("Bubfile", "dist-exe tool : main.cpp ${SRCS};")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, []string{"main.cpp", "util.cpp", "extra.cpp"}, stmts[0].Arg(0))
}

func TestParse_Conditionals(t *testing.T) {
	content := `
static-lib m : m.h : m.cpp [posix] ( posix.cpp ) [win32] ( win32.cpp );
`
	p := newParser(t, "posix")
	stmts, err := p.Parse("Bubfile", content)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, []string{"m.cpp", "posix.cpp"}, stmts[0].Arg(1))
}

func TestParse_Errors(t *testing.T) {
	p := newParser(t)
	cases := map[string]string{
		"unterminated statement":   "static-lib m : m.h : m.cpp",
		"too many fields":          "a b : c : d : e : f : g;",
		"tag without parens":       "static-lib m : [posix] m.h : m.cpp;",
		"unterminated conditional": "static-lib m : [posix] ( m.h : m.cpp;",
		"nested conditional":       "static-lib m : [a] ( [b] ( x ) ) : y;",
		"rule without targets":     "contain;",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Parse("Bubfile", content)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}
}

func TestParse_Golden(t *testing.T) {
	p := newParser(t, "posix")
	stmts, err := p.Parse("src/Bubfile", `
# top level
contain util net : protected;
static-lib util : util.h : util.cpp [posix] ( posix.cpp );
dynamic-lib util-dyn : util;
test-exe util-test : util_test.cpp : : 30;
misc README.md : doc;
generate tables.cpp : gen-tables ${SRCS} : tables.def;
`)
	require.NoError(t, err)

	var b strings.Builder
	for _, s := range stmts {
		fmt.Fprintf(&b, "%d %s %v", s.Origin.Line, s.Rule, s.Targets)
		for _, arg := range s.Args {
			fmt.Fprintf(&b, " : %v", arg)
		}
		b.WriteString("\n")
	}

	g := goldie.New(t)
	g.Assert(t, "parse", []byte(b.String()))
}

package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
)

func newFileT(t *testing.T, proj *domain.Project, parent *domain.Node, name, path string, built bool) *domain.File {
	t.Helper()
	f, err := proj.NewFile(parent, name, path, domain.SourceFile, domain.Public, built)
	require.NoError(t, err)
	return f
}

func TestActionQueue_DequeuesInDeclarationOrder(t *testing.T) {
	proj := domain.NewProject()
	pkg, err := proj.NewNode(proj.Root, "p", domain.Public, true)
	require.NoError(t, err)

	var actions []*domain.Action
	for _, name := range []string{"one", "two", "three"} {
		out := newFileT(t, proj, pkg, name, "obj/p/"+name, true)
		a, err := proj.NewAction(domain.Origin{}, name, "true", nil, []*domain.File{out})
		require.NoError(t, err)
		actions = append(actions, a)
	}

	var q domain.ActionQueue
	q.Push(actions[2])
	q.Push(actions[0])
	q.Push(actions[1])

	assert.Equal(t, "one", q.Pop().Name)
	assert.Equal(t, "two", q.Pop().Name)
	assert.Equal(t, "three", q.Pop().Name)
	assert.Nil(t, q.Pop())
}

func TestAction_AddDependency(t *testing.T) {
	proj := domain.NewProject()
	pkg, err := proj.NewNode(proj.Root, "p", domain.Public, true)
	require.NoError(t, err)

	in := newFileT(t, proj, pkg, "in.cpp", "src/p/in.cpp", false)
	out := newFileT(t, proj, pkg, "out.o", "obj/p/out.o", true)
	hdr := newFileT(t, proj, pkg, "hdr.h", "src/p/hdr.h", false)

	a, err := proj.NewAction(domain.Origin{}, "compile", "cc", []*domain.File{in}, []*domain.File{out})
	require.NoError(t, err)
	a.Seal()

	require.NoError(t, a.AddDependency(hdr))
	assert.True(t, a.HasDependency(hdr))
	assert.True(t, hdr.DependedBy[out])

	// Adding an existing dependency is a no-op.
	require.NoError(t, a.AddDependency(hdr))
	assert.Len(t, a.Depends, 2)

	a.Issued = true
	other := newFileT(t, proj, pkg, "other.h", "src/p/other.h", false)
	assert.Error(t, a.AddDependency(other))
}

func TestAction_MultiOutputIsFrozenOnceSealed(t *testing.T) {
	proj := domain.NewProject()
	pkg, err := proj.NewNode(proj.Root, "p", domain.Public, true)
	require.NoError(t, err)

	in := newFileT(t, proj, pkg, "msg.idl", "src/p/msg.idl", false)
	outH := newFileT(t, proj, pkg, "msg.h", "obj/p/msg.h", true)
	outC := newFileT(t, proj, pkg, "msg.cpp", "obj/p/msg.cpp", true)
	hdr := newFileT(t, proj, pkg, "extra.h", "src/p/extra.h", false)

	a, err := proj.NewAction(domain.Origin{}, "generate", "idl", []*domain.File{in}, []*domain.File{outH, outC})
	require.NoError(t, err)

	// During construction further deps are fine.
	require.NoError(t, a.AddDependency(hdr))

	a.Seal()
	other := newFileT(t, proj, pkg, "late.h", "src/p/late.h", false)
	err = a.AddDependency(other)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuleViolation)
}

func TestAction_BumpNewest(t *testing.T) {
	a := &domain.Action{}
	early := time.Unix(100, 0)
	late := time.Unix(200, 0)

	a.BumpNewest(late)
	a.BumpNewest(early)
	assert.Equal(t, late, a.Newest)

	a.BumpNewest(domain.MaxNewest)
	assert.Equal(t, domain.MaxNewest, a.Newest)
}

func TestProject_GeneratorFence(t *testing.T) {
	proj := domain.NewProject()
	pkg, err := proj.NewNode(proj.Root, "p", domain.Public, true)
	require.NoError(t, err)

	outA := newFileT(t, proj, pkg, "a.h", "obj/p/a.h", true)
	genA, err := proj.NewAction(domain.Origin{}, "gen-a", "gen", nil, []*domain.File{outA})
	require.NoError(t, err)
	outB := newFileT(t, proj, pkg, "b.h", "obj/p/b.h", true)
	genB, err := proj.NewAction(domain.Origin{}, "gen-b", "gen", nil, []*domain.File{outB})
	require.NoError(t, err)

	proj.MarkGenerator(genA)
	proj.MarkGenerator(genB)

	assert.Equal(t, genA.Number, proj.Fence())

	assert.True(t, proj.GeneratorDone(genA))
	assert.Equal(t, genB.Number, proj.Fence())

	assert.True(t, proj.GeneratorDone(genB))
	assert.Greater(t, proj.Fence(), genB.Number)
}

func TestProject_CheckCanDepend(t *testing.T) {
	proj := domain.NewProject()
	p, err := proj.NewNode(proj.Root, "p", domain.Public, true)
	require.NoError(t, err)
	a, err := proj.NewNode(p, "a", domain.Protected, true)
	require.NoError(t, err)
	b, err := proj.NewNode(p, "b", domain.Public, true)
	require.NoError(t, err)

	afoo := newFileT(t, proj, a, "foo.h", "src/p/a/foo.h", false)
	bhdr := newFileT(t, proj, b, "hdr.h", "src/p/b/hdr.h", false)
	bsrc := newFileT(t, proj, b, "hi.cpp", "src/p/b/hi.cpp", false)

	// Later files may depend on earlier visible ones.
	require.NoError(t, proj.CheckCanDepend(bsrc, bhdr))

	// Forward references are rejected.
	err = proj.CheckCanDepend(bhdr, bsrc)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuleViolation)

	// Contents of a protected package are not reachable from a sibling.
	err = proj.CheckCanDepend(bsrc, afoo)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuleViolation)
}

func TestProject_DuplicateRegistrations(t *testing.T) {
	proj := domain.NewProject()
	p, err := proj.NewNode(proj.Root, "p", domain.Public, true)
	require.NoError(t, err)

	_, err = proj.NewNode(proj.Root, "p", domain.Public, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateDefinition)

	newFileT(t, proj, p, "x.h", "src/p/x.h", false)
	_, err = proj.NewFile(p, "x2.h", "src/p/x.h", domain.SourceFile, domain.Public, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateDefinition)
}

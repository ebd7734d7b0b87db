package astindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"groovyls/internal/compiler"
	"groovyls/internal/compiler/fake"
	"groovyls/internal/config"
	"groovyls/internal/position"
)

func compileFixture(t *testing.T, sources map[string]string) map[string]compiler.Module {
	t.Helper()
	factory := fake.NewFactory()
	unit := factory.New(nil)
	for uri, text := range sources {
		require.NoError(t, unit.AddSource(uri, uri, text))
	}
	require.NoError(t, unit.Compile(context.Background(), compiler.PhaseResolved))

	modules := make(map[string]compiler.Module)
	for _, su := range unit.SourceUnits() {
		modules[su.URI()] = su.Module()
	}
	return modules
}

// Scenario (a) from spec.md §8: tight-range tie-break prefers the class
// declaration over the enclosing module at a position inside "class Foo".
func TestNodeAt_TightRangeTieBreak(t *testing.T) {
	modules := compileFixture(t, map[string]string{
		"Foo.groovy": "class Foo {\n  void bar() {}\n}\n",
	})
	ix, err := VisitFull(context.Background(), modules, config.Default())
	require.NoError(t, err)

	node, ok := ix.NodeAt("Foo.groovy", pos(0, 6))
	require.True(t, ok)
	require.Equal(t, compiler.KindClassDecl, node.Kind())
}

func TestNodeAt_OutOfRangeReturnsFalse(t *testing.T) {
	modules := compileFixture(t, map[string]string{
		"Foo.groovy": "class Foo {\n}\n",
	})
	ix, err := VisitFull(context.Background(), modules, config.Default())
	require.NoError(t, err)

	_, ok := ix.NodeAt("Foo.groovy", pos(999, 0))
	require.False(t, ok)
}

func TestIndex_ClassByNameAndDeps(t *testing.T) {
	modules := compileFixture(t, map[string]string{
		"Foo.groovy": "package com.example\nimport java.util.List\nimport com.example.Bar\nclass Foo extends Bar {\n}\n",
		"Bar.groovy": "package com.example\nclass Bar {\n}\n",
	})
	ix, err := VisitFull(context.Background(), modules, config.Default())
	require.NoError(t, err)

	_, ok := ix.ClassByName("com.example.Foo")
	require.True(t, ok)

	deps := ix.DepsForURI("Foo.groovy")
	_, hasBar := deps["com.example.Bar"]
	require.True(t, hasBar)
	_, hasJavaUtil := deps["java.util.List"]
	require.False(t, hasJavaUtil, "runtime namespace should be filtered")
}

// spec.md §8 invariant 8: incremental visit preserves node identity for
// untouched URIs.
func TestVisitIncremental_PreservesUntouchedIdentity(t *testing.T) {
	modules := compileFixture(t, map[string]string{
		"A.groovy": "class A {\n}\n",
		"B.groovy": "class B {\n}\n",
	})
	full, err := VisitFull(context.Background(), modules, config.Default())
	require.NoError(t, err)

	beforeB := full.NodesForURI("B.groovy")

	changedModules := compileFixture(t, map[string]string{
		"A.groovy": "class A {\n  void x() {}\n}\n",
	})
	merged := map[string]compiler.Module{"A.groovy": changedModules["A.groovy"]}
	incr, err := VisitIncremental(context.Background(), merged, full, map[string]struct{}{"A.groovy": {}}, config.Default())
	require.NoError(t, err)

	afterB := incr.NodesForURI("B.groovy")
	require.Equal(t, len(beforeB), len(afterB))
	for i := range beforeB {
		require.Same(t, beforeB[i], afterB[i])
	}
}

// spec.md §3's "optional lazy reverse reference index": every superclass
// reference naming a given FQN is found regardless of which file visits
// first, and the declaration itself is not among its own references.
func TestReferencesTo_FindsEveryReferringImport(t *testing.T) {
	modules := compileFixture(t, map[string]string{
		"Base.groovy": "class Base {\n}\n",
		"SubA.groovy": "class SubA extends Base {\n}\n",
		"SubB.groovy": "class SubB extends Base {\n}\n",
	})
	ix, err := VisitFull(context.Background(), modules, config.Default())
	require.NoError(t, err)

	refs := ix.ReferencesTo("Base")
	require.Len(t, refs, 2)

	var uris []string
	for _, r := range refs {
		uris = append(uris, r.URI)
		require.Equal(t, compiler.KindSuperclassRef, r.Node.Kind())
	}
	require.ElementsMatch(t, []string{"SubA.groovy", "SubB.groovy"}, uris)

	require.Empty(t, ix.ReferencesTo("NoSuchClass"))
}

func pos(line, col int) position.Position {
	return position.Position{Line: line, Column: col}
}

package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"groovyls/internal/position"
)

func TestDefinition_ResolvesSuperclassRefToDeclaration(t *testing.T) {
	sv, mgr, _ := newTestService(t, 0)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Base.groovy"), "class Base {\n}\n")
	writeFile(t, filepath.Join(root, "Sub.groovy"), "class Sub extends Base {\n}\n")

	s, err := mgr.RegisterScope(root)
	require.NoError(t, err)
	require.NoError(t, s.SetClasspath(context.Background(), nil))
	require.NoError(t, s.CompileFull(context.Background()))

	subURI := "file://" + filepath.Join(root, "Sub.groovy")
	baseURI := "file://" + filepath.Join(root, "Base.groovy")

	loc, ok := sv.Definition(s, subURI, position.Position{Line: 0, Column: 19})
	require.True(t, ok)
	require.Equal(t, baseURI, loc.URI)
}

func TestDefinition_UnresolvedFQNReturnsNotOK(t *testing.T) {
	sv, mgr, _ := newTestService(t, 0)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Sub.groovy"), "class Sub extends java.lang.Object {\n}\n")

	s, err := mgr.RegisterScope(root)
	require.NoError(t, err)
	require.NoError(t, s.SetClasspath(context.Background(), nil))
	require.NoError(t, s.CompileFull(context.Background()))

	subURI := "file://" + filepath.Join(root, "Sub.groovy")
	_, ok := sv.Definition(s, subURI, position.Position{Line: 0, Column: 19})
	require.False(t, ok, "a classpath-external superclass has no declaration in this scope's index")
}

func TestReferences_FindsEveryReferringSite(t *testing.T) {
	sv, mgr, _ := newTestService(t, 0)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Base.groovy"), "class Base {\n}\n")
	writeFile(t, filepath.Join(root, "SubA.groovy"), "class SubA extends Base {\n}\n")
	writeFile(t, filepath.Join(root, "SubB.groovy"), "class SubB extends Base {\n}\n")

	s, err := mgr.RegisterScope(root)
	require.NoError(t, err)
	require.NoError(t, s.SetClasspath(context.Background(), nil))
	require.NoError(t, s.CompileFull(context.Background()))

	baseURI := "file://" + filepath.Join(root, "Base.groovy")
	subAURI := "file://" + filepath.Join(root, "SubA.groovy")
	subBURI := "file://" + filepath.Join(root, "SubB.groovy")

	refs, ok := sv.References(s, baseURI, position.Position{Line: 0, Column: 6})
	require.True(t, ok)
	require.Len(t, refs, 2)
	require.Equal(t, subAURI, refs[0].URI)
	require.Equal(t, subBURI, refs[1].URI)
}

func TestReferences_InvalidPositionReturnsNotOK(t *testing.T) {
	sv, mgr, _ := newTestService(t, 0)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Foo.groovy"), "class Foo {\n}\n")

	s, err := mgr.RegisterScope(root)
	require.NoError(t, err)
	require.NoError(t, s.SetClasspath(context.Background(), nil))
	require.NoError(t, s.CompileFull(context.Background()))

	uri := "file://" + filepath.Join(root, "Foo.groovy")
	_, ok := sv.References(s, uri, position.Position{Line: 99, Column: 0})
	require.False(t, ok)
}

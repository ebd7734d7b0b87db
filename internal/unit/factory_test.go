package unit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"groovyls/internal/compiler"
	"groovyls/internal/compiler/fake"
	"groovyls/internal/tracker"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestCreate_SeedsFromDiskAndOpenBuffers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "Foo.groovy"), "class Foo {\n}\n")
	writeFile(t, filepath.Join(root, "src", "Bar.groovy"), "class Bar {\n}\n")

	tr := tracker.New()
	barURI := "file://" + filepath.Join(root, "src", "Bar.groovy")
	require.NoError(t, tr.Open(barURI, "class Bar {\n  def x\n}\n", 1))

	f := NewFactory(root, ".groovy", tr, fake.NewFactory())
	cu, err := f.Create(nil)
	require.NoError(t, err)
	require.NoError(t, cu.Compile(context.Background(), compiler.PhaseResolved))

	names := map[string]string{}
	for _, su := range cu.SourceUnits() {
		names[su.Name()] = su.Text()
	}
	require.Contains(t, names, "Foo.groovy")
	require.Contains(t, names, "Bar.groovy")
	require.Contains(t, names["Bar.groovy"], "def x", "open buffer text should win over disk")
}

func TestCreate_PrunesExcludedSubRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "A.groovy"), "class A {\n}\n")
	writeFile(t, filepath.Join(root, "nested", "B.groovy"), "class B {\n}\n")

	tr := tracker.New()
	f := NewFactory(root, ".groovy", tr, fake.NewFactory())
	f.SetExcludedSubRoots([]string{filepath.Join(root, "nested")})

	cu, err := f.Create(nil)
	require.NoError(t, err)

	var names []string
	for _, su := range cu.SourceUnits() {
		names = append(names, su.Name())
	}
	require.Contains(t, names, "A.groovy")
	require.NotContains(t, names, "B.groovy")
}

func TestCreate_GeneratesSyntheticJavaStub(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "Use.groovy"), "class Use {\n}\n")
	writeFile(t, filepath.Join(root, "src", "main", "java", "com", "acme", "Helper.java"),
		"package com.acme;\npublic class Helper {\n}\n")

	tr := tracker.New()
	f := NewFactory(root, ".groovy", tr, fake.NewFactory())
	cu, err := f.Create(nil)
	require.NoError(t, err)

	var stubURIs []string
	for _, su := range cu.SourceUnits() {
		if su.Name() == "com.acme.Helper" {
			stubURIs = append(stubURIs, su.URI())
		}
	}
	require.Len(t, stubURIs, 1)
}

func TestCreateIncremental_OnlyAddsRequestedURIs(t *testing.T) {
	root := t.TempDir()
	fooPath := filepath.Join(root, "src", "Foo.groovy")
	writeFile(t, fooPath, "class Foo {\n}\n")
	writeFile(t, filepath.Join(root, "src", "Bar.groovy"), "class Bar {\n}\n")

	tr := tracker.New()
	f := NewFactory(root, ".groovy", tr, fake.NewFactory())
	// Prime the file cache first.
	_, err := f.Create(nil)
	require.NoError(t, err)

	included := map[string]struct{}{"file://" + fooPath: {}}
	cu, err := f.CreateIncremental(nil, included)
	require.NoError(t, err)

	var names []string
	for _, su := range cu.SourceUnits() {
		names = append(names, su.Name())
	}
	require.Equal(t, []string{"Foo.groovy"}, names)
}

func TestInvalidateFileCache_PicksUpNewFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "Foo.groovy"), "class Foo {\n}\n")

	tr := tracker.New()
	f := NewFactory(root, ".groovy", tr, fake.NewFactory())
	cu1, err := f.Create(nil)
	require.NoError(t, err)
	require.Len(t, cu1.SourceUnits(), 1)

	writeFile(t, filepath.Join(root, "src", "Bar.groovy"), "class Bar {\n}\n")
	f.InvalidateFileCache()

	cu2, err := f.Create(nil)
	require.NoError(t, err)
	require.Len(t, cu2.SourceUnits(), 2)
}

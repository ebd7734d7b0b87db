package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"groovyls/internal/compiler/fake"
	"groovyls/internal/config"
	"groovyls/internal/position"
	"groovyls/internal/tracker"
	"groovyls/internal/unit"
)

func setup(t *testing.T) (*Orchestrator, *tracker.Tracker, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root, 0o755))
	tr := tracker.New()
	f := unit.NewFactory(root, ".groovy", tr, fake.NewFactory())
	return New(f, tr, config.Default()), tr, root
}

func TestCompileAndVisit_BuildsIndexFromDiskSources(t *testing.T) {
	o, _, root := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Foo.groovy"), []byte("class Foo {\n}\n"), 0o644))

	_, ix, err := o.CompileAndVisit(context.Background(), nil)
	require.NoError(t, err)
	_, ok := ix.ClassByName("Foo")
	require.True(t, ok)
}

func TestInjectCompletionPlaceholder_RoundTripsByteForByte(t *testing.T) {
	o, tr, _ := setup(t)
	uri := "file:///scratch/Foo.groovy"
	original := "class Foo {\n  def bar() {\n    \n  }\n}\n"
	require.NoError(t, tr.Open(uri, original, 1))

	err := o.WithCompletionPlaceholder(uri, position.Position{Line: 2, Column: 4}, func() error {
		spliced, _ := tr.Get(uri)
		require.Contains(t, spliced, completionPlaceholder)
		require.NotEqual(t, original, spliced)
		return nil
	})
	require.NoError(t, err)

	restored, _ := tr.Get(uri)
	require.Equal(t, original, restored)
}

func TestInjectCompletionPlaceholder_ClosesDanglingConstructor(t *testing.T) {
	o, tr, _ := setup(t)
	uri := "file:///scratch/Bar.groovy"
	original := "class Bar {\n  def x = new Foo\n}\n"
	require.NoError(t, tr.Open(uri, original, 1))

	// Cursor right after "new Foo" on line 1.
	col := len("  def x = new Foo")
	err := o.WithCompletionPlaceholder(uri, position.Position{Line: 1, Column: col}, func() error {
		spliced, _ := tr.Get(uri)
		require.Contains(t, spliced, completionPlaceholder+"()")
		return nil
	})
	require.NoError(t, err)

	restored, _ := tr.Get(uri)
	require.Equal(t, original, restored)
}

func TestInjectCompletionPlaceholder_RestoresEvenOnError(t *testing.T) {
	o, tr, _ := setup(t)
	uri := "file:///scratch/Baz.groovy"
	original := "class Baz {\n}\n"
	require.NoError(t, tr.Open(uri, original, 1))

	err := o.WithCompletionPlaceholder(uri, position.Position{Line: 0, Column: 0}, func() error {
		return errors.New("boom")
	})
	require.Error(t, err)

	restored, _ := tr.Get(uri)
	require.Equal(t, original, restored)
}

func TestInjectCompletionPlaceholder_ErrorsOnClosedDocument(t *testing.T) {
	o, _, _ := setup(t)
	_, err := o.InjectCompletionPlaceholder("file:///scratch/NotOpen.groovy", position.Position{})
	require.Error(t, err)
}

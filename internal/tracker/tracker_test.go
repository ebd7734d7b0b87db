package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_ErrorsIfAlreadyOpen(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Open("file:///a.groovy", "class A {}", 1))
	require.Error(t, tr.Open("file:///a.groovy", "class A {}", 1))
}

func TestChange_NoopIfNotOpen(t *testing.T) {
	tr := New()
	tr.Change("file:///missing.groovy", "ignored", 1)
	_, ok := tr.Get("file:///missing.groovy")
	require.False(t, ok)
}

func TestClose_FallsBackToDisk(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Open("file:///a.groovy", "class A {}", 1))
	tr.Close("file:///a.groovy")

	_, ok := tr.Get("file:///a.groovy")
	require.False(t, ok)
	require.Contains(t, tr.ChangedURIs(), "file:///a.groovy")
}

func TestChangedUnder_DrainsOnlyMatchingPrefix(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Open("file:///proj/a.groovy", "a", 1))
	require.NoError(t, tr.Open("file:///other/b.groovy", "b", 1))

	changed := tr.ChangedUnder("file:///proj/")
	require.ElementsMatch(t, []string{"file:///proj/a.groovy"}, changed)
	require.True(t, tr.HasChangedUnder("file:///other/"))
}

func TestRoundTrip_SetThenRestore(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Open("file:///a.groovy", "original", 1))
	tr.Set("file:///a.groovy", "original-with-placeholder")
	tr.Set("file:///a.groovy", "original")

	text, ok := tr.Get("file:///a.groovy")
	require.True(t, ok)
	require.Equal(t, "original", text)
}

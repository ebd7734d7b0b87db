package diagnostics

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"groovyls/internal/astindex"
	"groovyls/internal/compiler"
	"groovyls/internal/compiler/fake"
	"groovyls/internal/config"
	"groovyls/internal/position"
)

func indexFor(t *testing.T, uri, text string) *astindex.Index {
	t.Helper()
	f := fake.NewFactory()
	cu := f.New(nil)
	require.NoError(t, cu.AddSource("x", uri, text))
	require.NoError(t, cu.Compile(context.Background(), compiler.PhaseResolved))

	modules := make(map[string]compiler.Module)
	for _, su := range cu.SourceUnits() {
		modules[su.URI()] = su.Module()
	}
	ix, err := astindex.VisitFull(context.Background(), modules, config.Default())
	require.NoError(t, err)
	return ix
}

func TestFromMessages_DedupesIdenticalTuples(t *testing.T) {
	msgs := []compiler.Message{
		{SourceURI: "/proj/Foo.groovy", Line: 1, Column: 2, EndLine: 1, EndColumn: 5, Text: "boom", Severity: compiler.SeverityError},
		{SourceURI: "/proj/Foo.groovy", Line: 1, Column: 2, EndLine: 1, EndColumn: 5, Text: "boom", Severity: compiler.SeverityError},
	}
	out := FromMessages(msgs)
	require.Len(t, out["file:///proj/Foo.groovy"], 1)
}

func TestFromMessages_NoLocationFallsBackToOrigin(t *testing.T) {
	msgs := []compiler.Message{
		{SourceURI: "/proj/Foo.groovy", Line: -1, Column: -1, Text: "catastrophic", Severity: compiler.SeverityError},
	}
	out := FromMessages(msgs)
	d := out["file:///proj/Foo.groovy"][0]
	require.Equal(t, 0, d.Range.Start.Line)
	require.Equal(t, 0, d.Range.Start.Column)
	require.Equal(t, 0, d.Range.End.Line)
	require.Equal(t, 0, d.Range.End.Column)
}

func TestFromMessages_PreservesDistinctRangesOnSameLine(t *testing.T) {
	msgs := []compiler.Message{
		{SourceURI: "/proj/Foo.groovy", Line: 1, Column: 2, EndLine: 1, EndColumn: 5, Text: "first", Severity: compiler.SeverityWarning},
		{SourceURI: "/proj/Foo.groovy", Line: 1, Column: 9, EndLine: 1, EndColumn: 12, Text: "second", Severity: compiler.SeverityWarning},
	}
	want := []Diagnostic{
		{
			URI:      "file:///proj/Foo.groovy",
			Range:    position.Range{Start: position.Position{Line: 1, Column: 2}, End: position.Position{Line: 1, Column: 5}},
			Severity: compiler.SeverityWarning,
			Message:  "first",
		},
		{
			URI:      "file:///proj/Foo.groovy",
			Range:    position.Range{Start: position.Position{Line: 1, Column: 9}, End: position.Position{Line: 1, Column: 12}},
			Severity: compiler.SeverityWarning,
			Message:  "second",
		},
	}
	got := FromMessages(msgs)["file:///proj/Foo.groovy"]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeURI_TolerantOfWindowsAndPOSIX(t *testing.T) {
	require.Equal(t, "file:///proj/Foo.groovy", NormalizeURI("/proj/Foo.groovy"))
	require.Equal(t, "file:///C:/proj/Foo.groovy", NormalizeURI(`C:\proj\Foo.groovy`))
	require.Equal(t, "file:///proj/Foo.groovy", NormalizeURI("file:///proj/Foo.groovy"))
}

// Scenario (e) from spec.md §8: unused-import detection.
func TestDetectUnusedImports_FlagsNeverReferenced(t *testing.T) {
	uri := "file:///proj/Foo.groovy"
	text := "package proj\nimport proj.other.Helper\nimport proj.other.Used\nclass Foo {\n  def f() {\n    return Used.of()\n  }\n}\n"
	ix := indexFor(t, uri, text)

	diags := DetectUnusedImports(ix, uri, text)
	require.Len(t, diags, 1)
	require.Contains(t, diags[0].Message, "Helper")
}

func TestDetectUnusedImports_SkipsBuiltins(t *testing.T) {
	uri := "file:///proj/Foo.groovy"
	text := "package proj\nimport proj.other.List\nclass Foo {\n}\n"
	ix := indexFor(t, uri, text)

	diags := DetectUnusedImports(ix, uri, text)
	require.Empty(t, diags, "List is an always-used builtin simple name")
}

// Scenario (f) from spec.md §8: stale diagnostics clear when a file drops
// out of the compile set.
func TestReconcile_ClearsStaleDiagnostics(t *testing.T) {
	h := NewHandler()

	first := h.Reconcile([]string{"file:///a", "file:///b"}, map[string][]Diagnostic{
		"file:///a": {{URI: "file:///a", Message: "boom"}},
	})
	require.Contains(t, first, "file:///a")

	second := h.Reconcile([]string{"file:///b"}, map[string][]Diagnostic{})
	require.Contains(t, second, "file:///a")
	require.Empty(t, second["file:///a"], "a dropped out of the compile set, so its diagnostics clear")
}

package classpath

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"groovyls/internal/config"
)

type countingScanner struct {
	scans int
}

func (s *countingScanner) Scan(ctx context.Context, urls []string) (*ScanResult, error) {
	s.scans++
	syms := make([]Symbol, 0, len(urls))
	for _, u := range urls {
		syms = append(syms, Symbol{FQN: "pkg.Type", SimpleName: "Type", Package: "pkg", Kind: KindClass, OwningPath: u})
	}
	return &ScanResult{URLs: urls, Symbols: syms}, nil
}

func noPersistConfig() *config.Config {
	cfg := config.Default()
	cfg.Classpath.PersistToDisk = false
	return cfg
}

// Scenario (c) from spec.md §8: superset classpath reuse.
func TestAcquire_SupersetReuse(t *testing.T) {
	scanner := &countingScanner{}
	cache := New(scanner, noPersistConfig(), "")

	clA := []string{"/libs/J1.jar", "/libs/J2.jar", "/libs/J3.jar"}
	clB := []string{"/libs/J1.jar", "/libs/J2.jar"}

	hA, err := cache.Acquire(context.Background(), clA)
	require.NoError(t, err)
	hB, err := cache.Acquire(context.Background(), clB)
	require.NoError(t, err)

	require.Equal(t, 1, cache.Size())
	require.Equal(t, 1, scanner.scans, "B's scan should be skipped via superset reuse")
	require.Nil(t, hA.OwnFiles())
	require.NotNil(t, hB.OwnFiles())
	_, hasJ3 := hB.OwnFiles()[Canonicalize("/libs/J3.jar")]
	require.False(t, hasJ3, "B's own-files filter must exclude the disjoint J3")

	cache.Release(hA)
	cache.Release(hB)
	require.Equal(t, 0, cache.Size())
}

func TestAcquire_ExactMatchIncrementsRefcount(t *testing.T) {
	scanner := &countingScanner{}
	cache := New(scanner, noPersistConfig(), "")

	urls := []string{"/libs/J1.jar"}
	h1, err := cache.Acquire(context.Background(), urls)
	require.NoError(t, err)
	h2, err := cache.Acquire(context.Background(), urls)
	require.NoError(t, err)

	require.Equal(t, 1, cache.Size())
	require.Equal(t, 1, scanner.scans)

	cache.Release(h1)
	require.Equal(t, 1, cache.Size(), "refcount should still be 1 after one release")
	cache.Release(h2)
	require.Equal(t, 0, cache.Size())
}

func TestAcquire_OverlapReuse(t *testing.T) {
	scanner := &countingScanner{}
	cache := New(scanner, noPersistConfig(), "")

	base := []string{"/a.jar", "/b.jar", "/c.jar", "/d.jar", "/e.jar", "/f.jar", "/g.jar", "/h.jar", "/i.jar", "/j.jar"}
	_, err := cache.Acquire(context.Background(), base)
	require.NoError(t, err)

	// 90% overlap: 9 of 10 shared, one new.
	overlapping := append(append([]string{}, base[:9]...), "/new.jar")
	_, err = cache.Acquire(context.Background(), overlapping)
	require.NoError(t, err)

	require.Equal(t, 1, cache.Size(), "overlap above threshold should reuse the existing scan")
	require.Equal(t, 1, scanner.scans)
}

func TestAcquire_EmptyClasspathIsNotAnError(t *testing.T) {
	scanner := &countingScanner{}
	cache := New(scanner, noPersistConfig(), "")

	h, err := cache.Acquire(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, h.Result().Symbols)
}

func TestSymbolIndex_FiltersToOwnPaths(t *testing.T) {
	result := &ScanResult{Symbols: []Symbol{
		{FQN: "a.A", OwningPath: "/a.jar"},
		{FQN: "b.B", OwningPath: "/b.jar"},
		{FQN: "rt.Object", OwningPath: ""},
	}}
	idx := NewSymbolIndex(result)

	own := map[string]struct{}{"/a.jar": {}}
	filtered := idx.SymbolsFor(own)
	names := make([]string, 0, len(filtered))
	for _, s := range filtered {
		names = append(names, s.FQN)
	}
	require.ElementsMatch(t, []string{"a.A", "rt.Object"}, names)
}

package classpath

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"groovyls/internal/config"
	"groovyls/internal/logging"
)

// entry is one cached scan, refcounted (spec.md §3 classpath scan entry).
type entry struct {
	key      string
	result   *ScanResult
	urlSet   map[string]struct{}
	refcount int

	// symOnce/symIndex is the derived SymbolIndex (§4.5), built lazily the
	// first time any handle onto this entry asks for it and shared by
	// every handle acquired against the same scan thereafter — it lives
	// and dies with the entry, so it's reference-counted alongside the scan
	// without needing a refcount of its own (spec.md §4.5 "built lazily per
	// shared scan; reference-counted alongside the scan").
	symOnce  sync.Once
	symIndex *SymbolIndex
}

// Handle is returned to an acquirer. ownFiles is nil when the cached scan
// is exactly the requester's classpath (an "exact hit"); otherwise it holds
// the requester's own canonical URL set so downstream filters (§4.5) can
// drop symbols that belong to some other, wider scan.
type Handle struct {
	cache    *Cache
	entry    *entry
	ownFiles map[string]struct{}
}

// Result returns the underlying scan result.
func (h *Handle) Result() *ScanResult { return h.entry.result }

// OwnFiles returns the requester's own URL set, or nil if no filtering is needed.
func (h *Handle) OwnFiles() map[string]struct{} { return h.ownFiles }

// SymbolIndex returns the scan's derived symbol index (§4.5), building it
// once per entry no matter how many handles share it.
func (h *Handle) SymbolIndex() *SymbolIndex {
	h.entry.symOnce.Do(func() {
		h.entry.symIndex = NewSymbolIndex(h.entry.result)
	})
	return h.entry.symIndex
}

// Symbols returns this handle's own-scope view of the scan: every symbol
// whose owning classpath element belongs to this acquirer (or is a runtime
// symbol), per SymbolIndex.SymbolsFor and this handle's OwnFiles filter.
func (h *Handle) Symbols() []Symbol {
	return h.SymbolIndex().SymbolsFor(h.ownFiles)
}

// Cache is the process-wide, reference-counted classpath-scan store
// described in spec.md §4.4. One mutex guards refcount and eviction; the
// external scan itself is deduplicated across concurrent identical
// requests via singleflight rather than held under that mutex.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	scanner Scanner
	cfg     *config.Config
	disk    *diskCache
	group   singleflight.Group
}

// New builds a Cache. cacheDir is the on-disk classgraph cache root
// (spec.md §6: "<user-home>/.<product>/cache/classgraph/"); pass "" to
// disable persistence regardless of cfg.Classpath.PersistToDisk.
func New(scanner Scanner, cfg *config.Config, cacheDir string) *Cache {
	var disk *diskCache
	if cfg.Classpath.PersistToDisk && cacheDir != "" {
		disk = newDiskCache(cacheDir)
	}
	return &Cache{
		entries: make(map[string]*entry),
		scanner: scanner,
		cfg:     cfg,
		disk:    disk,
	}
}

// CanonicalKey computes the classpath hash key (spec.md §4.4 step 1):
// canonicalize each URL, sort, UTF-8 join with "\n", SHA-256 hex.
func CanonicalKey(urls []string) (string, []string) {
	canon := make([]string, len(urls))
	for i, u := range urls {
		canon[i] = Canonicalize(u)
	}
	sort.Strings(canon)
	sum := sha256.Sum256([]byte(strings.Join(canon, "\n")))
	return hex.EncodeToString(sum[:]), canon
}

// Canonicalize normalizes a classpath URL per SPEC_FULL.md §12: absolute,
// symlink-resolved when it exists on disk, trailing slash stripped,
// case-preserved.
func Canonicalize(u string) string {
	abs, err := filepath.Abs(u)
	if err != nil {
		abs = u
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return strings.TrimRight(abs, string(filepath.Separator))
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, i := range items {
		s[i] = struct{}{}
	}
	return s
}

// Acquire implements the spec.md §4.4 lookup protocol: exact hit, superset
// hit, overlap hit (>= cfg threshold), then miss (delegate to Scanner).
func (c *Cache) Acquire(ctx context.Context, urls []string) (*Handle, error) {
	log := logging.Get(logging.CategoryClasspath)
	key, canon := CanonicalKey(urls)
	requested := toSet(canon)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.refcount++
		c.mu.Unlock()
		log.Debug("classpath cache exact hit")
		return &Handle{cache: c, entry: e, ownFiles: nil}, nil
	}

	if e, ownFiles, ok := c.findSuperset(requested); ok {
		e.refcount++
		c.mu.Unlock()
		log.Debug("classpath cache superset hit")
		return &Handle{cache: c, entry: e, ownFiles: ownFiles}, nil
	}

	if e, ok := c.findOverlap(requested); ok {
		e.refcount++
		c.mu.Unlock()
		log.Debug("classpath cache overlap hit")
		return &Handle{cache: c, entry: e, ownFiles: requested}, nil
	}
	c.mu.Unlock()

	// Miss: scan, deduplicating concurrent identical misses.
	scanAny, err, _ := c.group.Do(key, func() (interface{}, error) {
		if c.disk != nil {
			if cached, ok := c.disk.load(key); ok {
				return cached, nil
			}
		}
		result, err := c.scanner.Scan(ctx, canon)
		if err != nil {
			return nil, fmt.Errorf("classpath: scan failed: %w", err)
		}
		if c.disk != nil {
			c.disk.store(key, result)
		}
		return result, nil
	})
	if err != nil {
		log.Error("classpath scan failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	result := scanAny.(*ScanResult)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		// Another goroutine created the entry while we scanned (lost the
		// singleflight race at the cache-map level, not the scanner level).
		e.refcount++
		return &Handle{cache: c, entry: e, ownFiles: nil}, nil
	}
	e := &entry{key: key, result: result, urlSet: requested, refcount: 1}
	c.entries[key] = e
	log.Debug("classpath cache miss: stored new scan")
	return &Handle{cache: c, entry: e, ownFiles: nil}, nil
}

func (c *Cache) findSuperset(requested map[string]struct{}) (*entry, map[string]struct{}, bool) {
	for _, e := range c.entries {
		if isStrictSuperset(e.urlSet, requested) {
			return e, requested, true
		}
	}
	return nil, nil, false
}

func isStrictSuperset(superset, subset map[string]struct{}) bool {
	if len(superset) <= len(subset) {
		return false
	}
	for u := range subset {
		if _, ok := superset[u]; !ok {
			return false
		}
	}
	return true
}

func (c *Cache) findOverlap(requested map[string]struct{}) (*entry, bool) {
	if len(requested) == 0 {
		return nil, false
	}
	var best *entry
	var bestRatio float64
	for _, e := range c.entries {
		overlap := 0
		for u := range requested {
			if _, ok := e.urlSet[u]; ok {
				overlap++
			}
		}
		ratio := float64(overlap) / float64(len(requested))
		if ratio > bestRatio {
			best = e
			bestRatio = ratio
		}
	}
	if best != nil && bestRatio >= c.cfg.Classpath.OverlapThreshold {
		return best, true
	}
	return nil, false
}

// Release decrements a handle's refcount, evicting the entry at zero
// (spec.md §8 invariant 5).
func (c *Cache) Release(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h.entry.refcount--
	if h.entry.refcount <= 0 {
		delete(c.entries, h.entry.key)
	}
}

// InvalidateUnder deletes every cache entry whose URL set contains a path
// under projectRoot (spec.md §4.4 invalidate_under).
func (c *Cache) InvalidateUnder(projectRoot string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	root := Canonicalize(projectRoot)
	for key, e := range c.entries {
		for u := range e.urlSet {
			if strings.HasPrefix(u, root) {
				delete(c.entries, key)
				break
			}
		}
	}
}

// Size returns the number of resident cache entries (spec.md §8 invariant 5:
// "size() == 0 after all handles are released").
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

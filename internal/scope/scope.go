// Package scope implements the per-project scope manager of spec.md §4.9:
// routing a URI to its owning project scope, holding each scope's index
// behind a reader-writer lock, and evicting idle scopes under an LRU cap.
package scope

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"groovyls/internal/astindex"
	"groovyls/internal/classpath"
	"groovyls/internal/compiler"
	"groovyls/internal/depgraph"
	"groovyls/internal/orchestrator"
	"groovyls/internal/unit"
)

// Scope owns one project's compilation state: its file factory, dependency
// graph, classpath handle and the current AST index snapshot.
type Scope struct {
	Root string

	factory      *unit.Factory
	orchestrator *orchestrator.Orchestrator
	deps         *depgraph.Graph
	watcher      *unit.Watcher

	cpMu     sync.Mutex
	cpHandle *classpath.Handle
	cpCache  *classpath.Cache
	cpURLs   []string

	// ixMu serializes writers; readers hold its read lock only while loading
	// ixSnap, and the snapshot they get back is immutable, so queries on it
	// take no lock (spec.md §3 invariant iii).
	ixMu  sync.RWMutex
	ixSnap *astindex.Index
	cu    compiler.CompilationUnit
}

func newScope(root string, factory *unit.Factory, orch *orchestrator.Orchestrator, cpCache *classpath.Cache) *Scope {
	return &Scope{
		Root:         root,
		factory:      factory,
		orchestrator: orch,
		deps:         depgraph.New(),
		cpCache:      cpCache,
	}
}

// Index returns the current AST index snapshot. It takes the read lock, so
// it waits while a compile holds the write lock; the returned snapshot is
// immutable and needs no lock afterwards.
func (s *Scope) Index() *astindex.Index {
	s.ixMu.RLock()
	defer s.ixMu.RUnlock()
	return s.ixSnap
}

// WriteLock acquires the scope's single-writer lock. CompileFull and
// CompileIncremental take it internally for the duration of their own
// compile; a placeholder-assisted completion/signature-help compile must
// hold it across its whole inject-placeholder -> compile -> visit ->
// restore-document sequence instead, since that sequence mutates the
// shared tracker buffer other readers and writers of this scope must never
// observe mid-mutation (spec.md §4.9, §4.10 compile_for_completion, §5 "the
// write-lock is held across (placeholder-inject -> compile -> visit ->
// restore)", §9 "must hold the scope write-lock to prevent any other
// consumer from seeing the mutated buffer"). Callers MUST pair every
// WriteLock with a WriteUnlock on every exit path.
func (s *Scope) WriteLock() { s.ixMu.Lock() }

// WriteUnlock releases the lock acquired by WriteLock.
func (s *Scope) WriteUnlock() { s.ixMu.Unlock() }

// DepGraph returns the scope's dependency graph.
func (s *Scope) DepGraph() *depgraph.Graph { return s.deps }

// Orchestrator returns the scope's compile-and-visit orchestrator.
func (s *Scope) Orchestrator() *orchestrator.Orchestrator { return s.orchestrator }

// Factory returns the scope's compilation-unit factory.
func (s *Scope) Factory() *unit.Factory { return s.factory }

// SetClasspath acquires a (possibly shared) classpath scan for urls,
// releasing any previously held handle, and invalidates the cached
// compilation unit so the next compile picks up the new classpath (spec.md
// §4.9 set_additional_classpath / §4.4 acquire/release lifecycle).
func (s *Scope) SetClasspath(ctx context.Context, urls []string) error {
	s.cpMu.Lock()
	defer s.cpMu.Unlock()

	h, err := s.cpCache.Acquire(ctx, urls)
	if err != nil {
		return fmt.Errorf("scope: acquire classpath: %w", err)
	}
	if s.cpHandle != nil {
		s.cpCache.Release(s.cpHandle)
	}
	s.cpHandle = h
	s.cpURLs = urls
	s.factory.SetAdditionalClasspath(urls)
	return nil
}

// Classpath returns the URLs last passed to SetClasspath.
func (s *Scope) Classpath() []string {
	s.cpMu.Lock()
	defer s.cpMu.Unlock()
	return s.cpURLs
}

// ClasspathSymbols returns this scope's own-classpath view of its shared
// classpath scan (spec.md §3 "classpath symbol-index handle
// (reference-counted)", §4.5) — nil if the scope has never had a
// classpath set. This is the AST index's reconciliation partner named in
// spec.md §1(d): compilation-unit/import resolution lives in the AST
// index, but a consumer asking "what classpath types exist" goes through
// here instead of the raw scan result.
func (s *Scope) ClasspathSymbols() []classpath.Symbol {
	s.cpMu.Lock()
	defer s.cpMu.Unlock()
	if s.cpHandle == nil {
		return nil
	}
	return s.cpHandle.Symbols()
}

// ClasspathHandle returns the scope's currently held classpath scan handle,
// or nil if none has been acquired yet.
func (s *Scope) ClasspathHandle() *classpath.Handle {
	s.cpMu.Lock()
	defer s.cpMu.Unlock()
	return s.cpHandle
}

// releaseClasspath drops the scope's classpath handle, called on eviction.
func (s *Scope) releaseClasspath() {
	s.cpMu.Lock()
	defer s.cpMu.Unlock()
	if s.cpHandle != nil {
		s.cpCache.Release(s.cpHandle)
		s.cpHandle = nil
	}
}

// CompileFull recompiles the whole scope and replaces its index wholesale
// (spec.md §4.7/§4.9, the non-incremental path).
func (s *Scope) CompileFull(ctx context.Context) error {
	s.ixMu.Lock()
	defer s.ixMu.Unlock()

	cu, ix, err := s.orchestrator.CompileAndVisit(ctx, s.cpURLs)
	if err != nil {
		return err
	}
	s.cu = cu
	s.ixSnap = ix
	s.syncDepGraph()
	return nil
}

// CompileIncremental recompiles only changedURIs (plus their transitive
// dependents, already folded into changedURIs by the caller) and merges the
// result into the prior index (spec.md §4.9 compile_and_visit incremental
// path).
func (s *Scope) CompileIncremental(ctx context.Context, changedURIs map[string]struct{}) error {
	s.ixMu.Lock()
	defer s.ixMu.Unlock()

	cu, err := s.orchestrator.CompileIncremental(ctx, s.cpURLs, changedURIs)
	if err != nil {
		return err
	}
	ix, err := s.orchestrator.VisitIncremental(ctx, cu, s.ixSnap, changedURIs)
	if err != nil {
		return err
	}
	s.cu = cu
	s.ixSnap = ix
	s.syncDepGraph()
	return nil
}

// syncDepGraph refreshes the dependency graph edges for every URI currently
// in the index; caller must hold ixMu.
func (s *Scope) syncDepGraph() {
	if s.ixSnap == nil {
		return
	}
	for _, uri := range s.ixSnap.SortedURIs() {
		s.deps.Update(uri, s.dependencyURIs(uri))
	}
}

// dependencyURIs resolves a file's referenced fully-qualified class names
// to the URIs that declare them, for depgraph.Graph.Update (spec.md §4.3:
// the dependency graph edges are file-to-file, built from the AST index's
// FQN-level deps_by_uri). A dep whose declaring class isn't in this scope's
// index (an external/classpath type) contributes no edge.
func (s *Scope) dependencyURIs(uri string) map[string]struct{} {
	out := make(map[string]struct{})
	for fqn := range s.ixSnap.DepsForURI(uri) {
		decl, ok := s.ixSnap.ClassByName(fqn)
		if !ok {
			continue
		}
		_, declURI, ok := s.ixSnap.Parent(decl)
		if !ok {
			continue
		}
		out[declURI] = struct{}{}
	}
	return out
}

// CompilationUnit returns the compilation unit from the most recent
// compile, or nil if the scope has never compiled.
func (s *Scope) CompilationUnit() compiler.CompilationUnit {
	s.ixMu.RLock()
	defer s.ixMu.RUnlock()
	return s.cu
}

// attachWatcher starts a disk-change watcher debounced by interval,
// invalidating the factory's file cache on any change under Root.
func (s *Scope) attachWatcher(interval time.Duration) error {
	w, err := unit.NewWatcher(s.Root, s.factory, interval)
	if err != nil {
		return err
	}
	s.watcher = w
	w.Start()
	return nil
}

func (s *Scope) close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	s.releaseClasspath()
}

// isUnder reports whether child is Root-relative under parent.
func isUnder(parent, child string) bool {
	if parent == child {
		return false
	}
	return strings.HasPrefix(child, strings.TrimRight(parent, "/")+"/")
}

package astindex

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"groovyls/internal/compiler"
	"groovyls/internal/config"
	"groovyls/internal/logging"
)

// perFileVisit is what visitOneFile produces for one URI; it's assembled
// independently per file (safe to parallelize) and merged into the shared
// maps afterward under no lock, since the merge happens before the snapshot
// is ever shared with a reader (spec.md §4.2 snapshot step 1).
type perFileVisit struct {
	uri     string
	nodes   []entry
	classes []compiler.ClassDecl
	parents map[compiler.Node]parentInfo
	deps    map[string]struct{}
}

// VisitFull builds a brand-new Index for every module in units, replacing
// the whole prior index (spec.md §4.2 "A full re-visit replaces the whole
// index"). modules maps URI to the module produced by the compiler for that
// URI; a nil module (compile failure) contributes no nodes for that URI.
func VisitFull(ctx context.Context, modules map[string]compiler.Module, cfg *config.Config) (*Index, error) {
	return visitURIs(ctx, modules, nil, allURIs(modules), cfg)
}

// VisitIncremental rebuilds only the URIs in changed, carrying forward
// everything else from prev byte-for-byte (spec.md §4.2 steps 2-5, §8
// invariant 8). prev may be nil, in which case this behaves like VisitFull
// restricted to `changed` (callers are expected to union `changed` with
// every URI prev doesn't know about when that matters).
func VisitIncremental(ctx context.Context, modules map[string]compiler.Module, prev *Index, changed map[string]struct{}, cfg *config.Config) (*Index, error) {
	return visitURIs(ctx, modules, prev, changed, cfg)
}

func allURIs(modules map[string]compiler.Module) map[string]struct{} {
	out := make(map[string]struct{}, len(modules))
	for u := range modules {
		out[u] = struct{}{}
	}
	return out
}

func visitURIs(ctx context.Context, modules map[string]compiler.Module, prev *Index, target map[string]struct{}, cfg *config.Config) (*Index, error) {
	log := logging.Get(logging.CategoryIndex)

	ix := &Index{
		nodesByURI:    make(map[string][]entry),
		classesByURI:  make(map[string][]compiler.ClassDecl),
		classesByName: make(map[string]compiler.ClassDecl),
		parentByNode:  make(map[compiler.Node]parentInfo),
		depsByURI:     make(map[string]map[string]struct{}),
	}

	// Step 2-3: shallow-copy everything outside `target` from prev. The
	// copied slices are never mutated — they're wrapped by re-slicing with
	// identical backing arrays, an unmodifiable view in spirit.
	if prev != nil {
		for uri, entries := range prev.nodesByURI {
			if _, changed := target[uri]; changed {
				continue
			}
			ix.nodesByURI[uri] = entries[:len(entries):len(entries)]
			ix.classesByURI[uri] = prev.classesByURI[uri]
			if deps, ok := prev.depsByURI[uri]; ok {
				// Cloned, not aliased: resolveStarImports below may still
				// add newly-resolved names to a carried-forward URI's deps
				// set, and prev is a published, immutable snapshot other
				// readers may be holding concurrently (spec.md §3 invariant
				// iii, §8 invariant 8).
				cloned := make(map[string]struct{}, len(deps))
				for d := range deps {
					cloned[d] = struct{}{}
				}
				ix.depsByURI[uri] = cloned
			}
		}
		for n, info := range prev.parentByNode {
			if _, changed := target[info.uri]; changed {
				continue
			}
			ix.parentByNode[n] = info
		}
		for name, decl := range prev.classesByName {
			owner := declaringURI(prev, decl)
			if _, changed := target[owner]; changed {
				continue
			}
			ix.classesByName[name] = decl
		}
	}

	// Step 4: populate fresh entries for target URIs, visited in parallel
	// (at most GOMAXPROCS at a time, via errgroup's SetLimit) — each file's visit is
	// independent, only the merge touches shared state.
	uris := make([]string, 0, len(target))
	for u := range target {
		uris = append(uris, u)
	}

	results := make([]*perFileVisit, len(uris))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, uri := range uris {
		i, uri := i, uri
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			mod := modules[uri]
			if mod == nil {
				return nil
			}
			results[i] = visitOneFile(uri, mod, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("visit: aborted")
		return nil, err
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		ix.nodesByURI[r.uri] = r.nodes
		ix.classesByURI[r.uri] = r.classes
		for _, c := range r.classes {
			ix.classesByName[c.Name()] = c
		}
		for n, p := range r.parents {
			ix.parentByNode[n] = p
		}
		ix.depsByURI[r.uri] = r.deps
	}

	// Conservative star-import resolution (spec.md §4.2) needs the complete
	// set of known class names, which is only settled once every URI has
	// merged above.
	resolveStarImports(ix)

	log.Debug("visit complete")
	return ix, nil
}

func declaringURI(ix *Index, decl compiler.ClassDecl) string {
	for uri, classes := range ix.classesByURI {
		for _, c := range classes {
			if c == decl {
				return uri
			}
		}
	}
	return ""
}

func visitOneFile(uri string, mod compiler.Module, cfg *config.Config) *perFileVisit {
	r := &perFileVisit{
		uri:     uri,
		parents: make(map[compiler.Node]parentInfo),
		deps:    make(map[string]struct{}),
	}

	var walk func(n compiler.Node, parent compiler.Node)
	walk = func(n compiler.Node, parent compiler.Node) {
		if n.Synthetic() {
			return
		}

		r.nodes = append(r.nodes, entry{node: n})
		r.parents[n] = parentInfo{parent: parent, uri: uri}

		if cd, ok := n.(compiler.ClassDecl); ok {
			r.classes = append(r.classes, cd)
		}
		if imp, ok := n.(compiler.ImportDecl); ok {
			recordDep(r.deps, imp.Target(), cfg)
		}

		for _, c := range n.Children() {
			walk(c, n)
		}
	}

	for _, c := range mod.Children() {
		walk(c, mod)
	}

	return r
}

func recordDep(deps map[string]struct{}, fqn string, cfg *config.Config) {
	if isFiltered(fqn, cfg) {
		return
	}
	deps[fqn] = struct{}{}
}

func isFiltered(fqn string, cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	for _, prefix := range cfg.Runtime.FilteredNamespacePrefixes {
		if hasPrefix(fqn, prefix) {
			return true
		}
	}
	return false
}

func hasPrefix(fqn, prefix string) bool {
	if len(fqn) < len(prefix) {
		return false
	}
	if fqn[:len(prefix)] != prefix {
		return false
	}
	return len(fqn) == len(prefix) || fqn[len(prefix)] == '.'
}

// resolveStarImports conservatively expands star imports (spec.md §4.2
// "Star imports resolve conservatively against all currently-known class
// names with that prefix") by adding every known class under that package
// prefix to the importing file's deps set.
func resolveStarImports(ix *Index) {
	allNames := ix.AllClassNames()
	for uri, entries := range ix.nodesByURI {
		for _, e := range entries {
			imp, ok := e.node.(compiler.ImportDecl)
			if !ok {
				continue
			}
			if e.node.Kind() != compiler.KindStarImport && e.node.Kind() != compiler.KindStaticStarImport {
				continue
			}
			prefix := imp.Target()
			for _, name := range allNames {
				if hasPrefix(name, prefix) {
					if ix.depsByURI[uri] == nil {
						ix.depsByURI[uri] = make(map[string]struct{})
					}
					ix.depsByURI[uri][name] = struct{}{}
				}
			}
		}
	}
}

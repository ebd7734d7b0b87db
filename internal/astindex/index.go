// Package astindex implements the AST index described in spec.md §3/§4.2:
// a per-scope, identity-keyed index over opaque compiler.Node handles with
// copy-on-write snapshot semantics so readers never take a lock.
package astindex

import (
	"sort"
	"sync"

	"groovyls/internal/compiler"
	"groovyls/internal/position"
)

// entry wraps a node within its owning URI's nodesByURI slice, in the
// document order it was visited.
type entry struct {
	node compiler.Node
}

type parentInfo struct {
	parent compiler.Node
	uri    string
}

// Index is an immutable, per-scope snapshot (spec.md §3 invariant iii). All
// read methods are lock-free; construction happens off to the side in
// VisitFull/VisitIncremental and is published by a single pointer swap in
// the owning scope.
type Index struct {
	nodesByURI    map[string][]entry
	classesByURI  map[string][]compiler.ClassDecl
	classesByName map[string]compiler.ClassDecl
	parentByNode  map[compiler.Node]parentInfo
	depsByURI     map[string]map[string]struct{}

	// refsOnce/refsByFQN is the "optional lazy reverse reference index" of
	// spec.md §3: built on first use rather than during the visit, since
	// most compile rounds never ask for it (node_at/completion don't). Safe
	// to populate lazily on a published, otherwise-immutable snapshot — the
	// sync.Once gives every reader the same happens-before-published view.
	refsOnce  sync.Once
	refsByFQN map[string][]Reference
}

// Reference is one referring node found by ReferencesTo: the import,
// superclass or interface reference node itself, plus the URI it was
// visited under.
type Reference struct {
	URI  string
	Node compiler.Node
}

// ReferencesTo returns every import/superclass/interface-reference node
// across the whole index whose Target() equals fqn (spec.md §3's lazy
// reverse reference index, keyed here by declared name rather than by node
// since the opaque compiler.Node model has no identifier-reference kind of
// its own — every cross-file reference the index sees arrives as an
// ImportDecl).
func (ix *Index) ReferencesTo(fqn string) []Reference {
	ix.refsOnce.Do(ix.buildReverseRefs)
	return ix.refsByFQN[fqn]
}

func (ix *Index) buildReverseRefs() {
	ix.refsByFQN = make(map[string][]Reference)
	for uri, entries := range ix.nodesByURI {
		for _, e := range entries {
			imp, ok := e.node.(compiler.ImportDecl)
			if !ok {
				continue
			}
			fqn := imp.Target()
			ix.refsByFQN[fqn] = append(ix.refsByFQN[fqn], Reference{URI: uri, Node: e.node})
		}
	}
}

// NodesForURI returns the nodes visited for uri in document order.
func (ix *Index) NodesForURI(uri string) []compiler.Node {
	entries := ix.nodesByURI[uri]
	out := make([]compiler.Node, len(entries))
	for i, e := range entries {
		out[i] = e.node
	}
	return out
}

// HasURI reports whether any non-synthetic node was visited for uri
// (spec.md §8 invariant 1).
func (ix *Index) HasURI(uri string) bool {
	_, ok := ix.nodesByURI[uri]
	return ok
}

// ClassesForURI returns the class declarations found in uri.
func (ix *Index) ClassesForURI(uri string) []compiler.ClassDecl {
	return ix.classesByURI[uri]
}

// ClassByName resolves a fully-qualified class name within this scope.
func (ix *Index) ClassByName(fqn string) (compiler.ClassDecl, bool) {
	c, ok := ix.classesByName[fqn]
	return c, ok
}

// Parent returns a node's parent and owning URI, or ok=false for a
// top-level (module) node or a node not present in this index.
func (ix *Index) Parent(n compiler.Node) (compiler.Node, string, bool) {
	p, ok := ix.parentByNode[n]
	if !ok {
		return nil, "", false
	}
	return p.parent, p.uri, true
}

// DepsForURI returns the set of fully-qualified class names uri references,
// after runtime-namespace filtering (spec.md §4.2).
func (ix *Index) DepsForURI(uri string) map[string]struct{} {
	return ix.depsByURI[uri]
}

// NodeAt implements spec.md §4.2's node_at query: scan nodesByURI[uri],
// select the range containing p, tie-break by (1) latest start, (2)
// earliest end, (3) descendant-over-ancestor except class-over-constructor
// when ranges are identical.
func (ix *Index) NodeAt(uri string, p position.Position) (compiler.Node, bool) {
	entries := ix.nodesByURI[uri]
	var best *entry
	var bestDepth int
	for i := range entries {
		e := &entries[i]
		r := position.Range{Start: e.node.Start(), End: e.node.End()}
		if !r.Contains(p) {
			continue
		}
		if best == nil {
			best = e
			bestDepth = depthOf(ix, e.node, uri)
			continue
		}
		br := position.Range{Start: best.node.Start(), End: best.node.End()}
		switch {
		case e.node.Start() != best.node.Start():
			if best.node.Start().Less(e.node.Start()) {
				best = e
				bestDepth = depthOf(ix, e.node, uri)
			}
		case r.End != br.End:
			if e.node.End().Less(best.node.End()) {
				best = e
				bestDepth = depthOf(ix, e.node, uri)
			}
		default:
			// Identical ranges: prefer descendant, except class-over-constructor.
			if best.node.Kind() == compiler.KindConstructorDecl && e.node.Kind() == compiler.KindClassDecl {
				best = e
				bestDepth = depthOf(ix, e.node, uri)
				continue
			}
			if e.node.Kind() == compiler.KindConstructorDecl && best.node.Kind() == compiler.KindClassDecl {
				continue
			}
			d := depthOf(ix, e.node, uri)
			if d > bestDepth {
				best = e
				bestDepth = d
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best.node, true
}

func depthOf(ix *Index, n compiler.Node, uri string) int {
	depth := 0
	cur := n
	for {
		p, _, ok := ix.Parent(cur)
		if !ok || p == nil {
			break
		}
		depth++
		cur = p
		if depth > 10_000 {
			break // defends node_at against a malformed/cyclic parent chain
		}
	}
	return depth
}

// SortedURIs returns every URI with at least one indexed node, sorted — used
// for deterministic workspace-symbol fan-out (SPEC_FULL.md §12).
func (ix *Index) SortedURIs() []string {
	uris := make([]string, 0, len(ix.nodesByURI))
	for u := range ix.nodesByURI {
		uris = append(uris, u)
	}
	sort.Strings(uris)
	return uris
}

// AllClassNames returns every class FQN known to this index, for conservative
// star-import resolution (spec.md §4.2).
func (ix *Index) AllClassNames() []string {
	names := make([]string, 0, len(ix.classesByName))
	for n := range ix.classesByName {
		names = append(names, n)
	}
	return names
}

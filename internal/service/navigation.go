package service

import (
	"sort"

	"groovyls/internal/compiler"
	"groovyls/internal/position"
	"groovyls/internal/scope"
)

// Location pairs a node with the URI it was found under, the shape every
// position-based query in this file returns (spec.md §6: `definition`,
// `references` are part of the core's exposed query surface alongside
// `node_at`).
type Location struct {
	URI  string
	Node compiler.Node
}

// targetFQN extracts the fully-qualified name a node refers to: its own
// name if it's a class declaration, or the name it imports/extends/
// implements if it's an import/superclass/interface reference. Any other
// node kind has no FQN to resolve (spec.md §4.2 only populates deps_by_uri
// from those node shapes).
func targetFQN(n compiler.Node) (string, bool) {
	switch t := n.(type) {
	case compiler.ClassDecl:
		return t.Name(), true
	case compiler.ImportDecl:
		return t.Target(), true
	default:
		return "", false
	}
}

// Definition resolves the node under (uri, pos) to the class declaration it
// names: the declaration itself if the cursor is already on one, or the
// declaration its FQN resolves to via classes_by_name otherwise (spec.md §6
// `definition`). Returns ok=false for an invalid position, a node with no
// resolvable FQN, or an FQN outside this scope's index (an external/
// classpath type — spec.md §7 "invalid position" and "missing document" are
// both local, no-diagnostic failures). Loading the snapshot via s.Index()
// waits for any compile holding the scope's write-lock; the lookups on the
// snapshot itself take no lock.
func (sv *Service) Definition(s *scope.Scope, uri string, p position.Position) (Location, bool) {
	ix := s.Index()
	if ix == nil {
		return Location{}, false
	}
	n, ok := ix.NodeAt(uri, p)
	if !ok {
		return Location{}, false
	}
	fqn, ok := targetFQN(n)
	if !ok {
		return Location{}, false
	}
	decl, ok := ix.ClassByName(fqn)
	if !ok {
		return Location{}, false
	}
	_, declURI, ok := ix.Parent(decl)
	if !ok {
		return Location{}, false
	}
	return Location{URI: declURI, Node: decl}, true
}

// References resolves the node under (uri, pos) to its FQN and returns
// every import/superclass/interface-reference node across the scope's
// index that names it, via the AST index's lazy reverse reference index
// (spec.md §6 `references`, §3 "optional lazy reverse reference index").
// Results are sorted by URI for deterministic output; the declaration
// itself is not included (references means referring sites, not the
// declaration).
func (sv *Service) References(s *scope.Scope, uri string, p position.Position) ([]Location, bool) {
	ix := s.Index()
	if ix == nil {
		return nil, false
	}
	n, ok := ix.NodeAt(uri, p)
	if !ok {
		return nil, false
	}
	fqn, ok := targetFQN(n)
	if !ok {
		return nil, false
	}
	refs := ix.ReferencesTo(fqn)
	out := make([]Location, len(refs))
	for i, r := range refs {
		out[i] = Location{URI: r.URI, Node: r.Node}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].URI != out[j].URI {
			return out[i].URI < out[j].URI
		}
		return out[i].Node.Start().Less(out[j].Node.Start())
	})
	return out, true
}

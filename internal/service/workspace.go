package service

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Symbol is one workspace-symbol search result.
type Symbol struct {
	Name string
	URI  string
}

// WorkspaceSymbols fans a substring query out across every resident scope
// concurrently, returning matches sorted by (URI, Name) for deterministic
// output across runs (SPEC_FULL.md §12 supplement: the distilled spec names
// workspace-symbol search but not its ordering guarantee).
func (sv *Service) WorkspaceSymbols(ctx context.Context, query string) ([]Symbol, error) {
	scopes := sv.scopes.Scopes()
	perScope := make([][]Symbol, len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range scopes {
		i, s := i, s
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			ix := s.Index()
			if ix == nil {
				return nil
			}
			var matches []Symbol
			for _, uri := range ix.SortedURIs() {
				for _, cd := range ix.ClassesForURI(uri) {
					if strings.Contains(cd.Name(), query) {
						matches = append(matches, Symbol{Name: cd.Name(), URI: uri})
					}
				}
			}
			perScope[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Symbol
	for _, m := range perScope {
		all = append(all, m...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].URI != all[j].URI {
			return all[i].URI < all[j].URI
		}
		return all[i].Name < all[j].Name
	})
	return all, nil
}

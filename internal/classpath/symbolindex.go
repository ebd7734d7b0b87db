package classpath

// SymbolIndex filters a shared scan result down to a scope's own classpath
// subset (spec.md §4.5). It's built lazily per shared scan and is cheap to
// construct, so no reference counting of its own is needed beyond the
// underlying Handle's.
type SymbolIndex struct {
	all        []Symbol
	byPackage  map[string][]Symbol
}

// NewSymbolIndex wraps a scan result.
func NewSymbolIndex(result *ScanResult) *SymbolIndex {
	si := &SymbolIndex{
		all:       result.Symbols,
		byPackage: make(map[string][]Symbol),
	}
	for _, s := range result.Symbols {
		si.byPackage[s.Package] = append(si.byPackage[s.Package], s)
	}
	return si
}

// AllSymbols returns every symbol in the underlying scan, unfiltered.
func (si *SymbolIndex) AllSymbols() []Symbol { return si.all }

// Packages returns every distinct package name present in the scan.
func (si *SymbolIndex) Packages() []string {
	out := make([]string, 0, len(si.byPackage))
	for p := range si.byPackage {
		out = append(out, p)
	}
	return out
}

// SymbolsFor returns only symbols owned by ownPaths, plus any runtime
// symbol (OwningPath == ""). A nil ownPaths means no filtering is needed
// (an exact-hit acquisition, spec.md §4.4 step 2).
func (si *SymbolIndex) SymbolsFor(ownPaths map[string]struct{}) []Symbol {
	if ownPaths == nil {
		return si.all
	}
	out := make([]Symbol, 0, len(si.all))
	for _, s := range si.all {
		if s.OwningPath == "" {
			out = append(out, s)
			continue
		}
		if _, ok := ownPaths[s.OwningPath]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Package classpath implements the reference-counted classpath-scan cache
// and its derived symbol index (spec.md §3/§4.4/§4.5).
package classpath

import "context"

// SymbolKind discriminates the three kinds of classpath symbol named in
// spec.md §3.
type SymbolKind int

const (
	KindClass SymbolKind = iota
	KindField
	KindMethod
)

// Symbol is a single classpath-scanned entity.
type Symbol struct {
	FQN        string
	SimpleName string
	Package    string
	Kind       SymbolKind
	// OwningPath is the classpath element (jar or directory) this symbol
	// came from, or "" for a JVM runtime symbol (spec.md §3 invariant).
	OwningPath string
}

// ScanResult is what an external classpath Scanner produces for one URL set.
type ScanResult struct {
	URLs    []string
	Symbols []Symbol
}

// Scanner is the external classpath scanner collaborator (spec.md §4.4
// step 5: "Delegate to the external scanner"). Implementations may take
// seconds; Cache.Acquire runs this inline on the acquiring goroutine, which
// in Scope.SetClasspath holds the scope's classpath mutex (not its index
// write-lock).
type Scanner interface {
	Scan(ctx context.Context, urls []string) (*ScanResult, error)
}

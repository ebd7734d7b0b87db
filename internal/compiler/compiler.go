// Package compiler defines the boundary to the external compiler front-end
// (spec.md §6, §9): the core never parses source itself and never mutates
// the AST it is handed. Every type here is an interface onto an opaque
// handle owned by that external collaborator; the core only reads them and
// indexes references (internal/astindex), never structural equality.
package compiler

import (
	"context"

	"groovyls/internal/position"
)

// Phase names a front-end compilation phase. The core always drives to
// PhaseResolved ("resolved-AST phase" in spec.md §4.7); earlier phases exist
// so a fake/test front end can simulate partial failure.
type Phase int

const (
	PhaseParse Phase = iota
	PhaseConversion
	PhaseSemanticAnalysis
	PhaseResolved
)

// NodeKind discriminates the handful of node shapes the AST index cares
// about (spec.md §4.2); everything else indexes as KindOther.
type NodeKind int

const (
	KindModule NodeKind = iota
	KindClassDecl
	KindConstructorDecl
	KindMethodDecl
	KindImport
	KindStarImport
	KindStaticImport
	KindStaticStarImport
	KindSuperclassRef
	KindInterfaceRef
	KindOther
)

// Node is an opaque AST node handle. Implementations must be comparable by
// identity (a pointer or pointer-wrapping struct) — spec.md §4.2/§9 forbid
// equality-keyed maps because many front-end node types define loose
// structural equality.
type Node interface {
	Kind() NodeKind
	Start() position.Position
	End() position.Position
	// Synthetic marks nodes the front end generated itself rather than
	// parsed from source text; synthetic nodes are never indexed. Text the
	// core splices in (Java stubs, placeholders) is parsed as ordinary
	// source, so its nodes are not synthetic and are indexed.
	Synthetic() bool
	// Children returns the node's immediate AST children in document order.
	// The core drives its own visitor recursively over this rather than
	// relying on a callback-based visitor from the front end.
	Children() []Node
}

// ClassDecl is a Node that also introduces a fully-qualified class name.
type ClassDecl interface {
	Node
	Name() string
}

// ImportDecl is a Node that references another fully-qualified name —
// regular/star/static/static-star imports and superclass/interface
// references all implement this (spec.md §4.2).
type ImportDecl interface {
	Node
	// Target is the fully-qualified name being imported or referenced.
	Target() string
	// Alias is the local binding name for a static import's member, or ""
	// for every other import kind.
	Alias() string
}

// Module is the root Node for a single compiled source file.
type Module interface {
	Node
	URI() string
}

// Severity mirrors the LSP four-level diagnostic severity enum (see
// SPEC_FULL.md §12: the distilled spec names compiler errors and
// unused-import warnings but not an explicit severity set).
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Message is a single diagnostic message as produced by the front end's
// error collector. Line/column are -1 when the front end could not locate
// the problem (spec.md §4.8 step 2 fallback).
type Message struct {
	SourceURI string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Text      string
	Severity  Severity
}

// ErrorCollector exposes every message accumulated by a compile pass.
type ErrorCollector interface {
	Messages() []Message
}

// SourceUnit is one source file within a CompilationUnit.
type SourceUnit interface {
	URI() string
	Name() string
	Text() string
	// Module returns the root AST node, or nil if this file failed to reach
	// PhaseResolved (spec.md §4.10 "compiler failed to produce any module").
	Module() Module
}

// CompilationUnit is the compilation-unit builder described in spec.md §6:
// add sources, compile to a phase, iterate source units, retrieve errors.
type CompilationUnit interface {
	AddSource(name, uri, text string) error
	Compile(ctx context.Context, phase Phase) error
	SourceUnits() []SourceUnit
	Errors() ErrorCollector
}

// Factory constructs a fresh, empty CompilationUnit configured against a
// classpath. internal/unit.Factory wraps this with source-seeding,
// exclusion and stub-injection policy (spec.md §4.6).
type Factory interface {
	New(classpath []string) CompilationUnit
}

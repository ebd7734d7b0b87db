package service

import (
	"context"
	"fmt"

	"groovyls/internal/compiler"
	"groovyls/internal/orchestrator"
	"groovyls/internal/position"
	"groovyls/internal/scope"
)

// CompileForCompletion recompiles uri alone with a completion placeholder
// spliced at p, returning the node found at that position in a throwaway
// index, and guarantees the document's original text is restored before
// returning (spec.md §4.7 step 3, §8 invariant 7). The scope's own
// persisted index and compilation unit are left untouched.
func (sv *Service) CompileForCompletion(ctx context.Context, s *scope.Scope, uri string, p position.Position) (compiler.Node, error) {
	return sv.compileForPlaceholder(ctx, s, uri, p, s.Orchestrator().InjectCompletionPlaceholder)
}

// CompileForSignatureHelp is CompileForCompletion's signature-help
// counterpart (spec.md §4.7 step 3).
func (sv *Service) CompileForSignatureHelp(ctx context.Context, s *scope.Scope, uri string, p position.Position) (compiler.Node, error) {
	return sv.compileForPlaceholder(ctx, s, uri, p, s.Orchestrator().InjectSignatureHelpPlaceholder)
}

type placeholderInjector func(uri string, p position.Position) (orchestrator.Restore, error)

func (sv *Service) compileForPlaceholder(ctx context.Context, s *scope.Scope, uri string, p position.Position, inject placeholderInjector) (compiler.Node, error) {
	orch := s.Orchestrator()

	// Hold the scope write-lock across the whole inject -> compile -> visit
	// -> restore sequence (spec.md §4.10, §5, §9): otherwise a concurrent
	// CompileFull/CompileIncremental, or a second placeholder-assisted
	// compile on another thread, can observe the tracker's buffer with the
	// placeholder still spliced in.
	s.WriteLock()
	defer s.WriteUnlock()

	restore, err := inject(uri, p)
	if err != nil {
		return nil, fmt.Errorf("service: inject placeholder: %w", err)
	}
	defer restore()

	cu, err := orch.CompileIncremental(ctx, s.Classpath(), map[string]struct{}{uri: {}})
	if err != nil {
		return nil, fmt.Errorf("service: placeholder compile: %w", err)
	}
	ix, err := orch.VisitFull(ctx, cu)
	if err != nil {
		return nil, fmt.Errorf("service: placeholder visit: %w", err)
	}

	node, _ := ix.NodeAt(uri, p)
	return node, nil
}

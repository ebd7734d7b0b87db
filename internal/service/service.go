// Package service implements the top-level compilation service of spec.md
// §4.10: routing requests to their owning scope, expanding an incremental
// recompile to its minimal transitive-dependent set (promoting to a full
// recompile past the configured fallback fraction), and producing the
// reconciled diagnostic set for a compile round.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"groovyls/internal/config"
	"groovyls/internal/diagnostics"
	"groovyls/internal/logging"
	"groovyls/internal/scope"
)

// Service is the engine's single entry point for LSP-facing operations.
type Service struct {
	scopes *scope.Manager
	cfg    *config.Config

	diagMu       sync.Mutex
	diagHandlers map[string]*diagnostics.Handler
}

// New builds a Service over scopes, using cfg for the incremental fallback
// fraction and dependency-graph traversal depth.
func New(scopes *scope.Manager, cfg *config.Config) *Service {
	return &Service{
		scopes:       scopes,
		cfg:          cfg,
		diagHandlers: make(map[string]*diagnostics.Handler),
	}
}

func (sv *Service) diagHandlerFor(root string) *diagnostics.Handler {
	sv.diagMu.Lock()
	defer sv.diagMu.Unlock()
	if h, ok := sv.diagHandlers[root]; ok {
		return h
	}
	h := diagnostics.NewHandler()
	sv.diagHandlers[root] = h
	return h
}

// EnsureCompiled resolves uri to its owning scope, compiling it fully if it
// has never been compiled (spec.md §4.10 ensure_compiled).
func (sv *Service) EnsureCompiled(ctx context.Context, uri, defaultRoot string) (*scope.Scope, error) {
	s, err := sv.scopes.FindScope(uri, defaultRoot)
	if err != nil {
		return nil, fmt.Errorf("service: find scope: %w", err)
	}
	if s.Index() == nil {
		if err := s.CompileFull(ctx); err != nil {
			return nil, fmt.Errorf("service: initial compile: %w", err)
		}
	}
	return s, nil
}

// CompileAndVisit recompiles s to reflect changedURIs, expanding the
// recompile set to their transitive dependents and promoting to a full
// recompile when that set exceeds cfg.Incremental.FallbackFraction of the
// scope's known source count (spec.md §4.10 compile_and_visit, §8 scenario
// (d)). It returns the reconciled per-URI diagnostic set to publish.
func (sv *Service) CompileAndVisit(ctx context.Context, s *scope.Scope, changedURIs []string) (map[string][]diagnostics.Diagnostic, error) {
	log := logging.Get(logging.CategoryCompile)
	compileID := uuid.NewString()

	if s.Index() == nil || len(changedURIs) == 0 {
		log.Debug("full compile", zap.String("compile_id", compileID), zap.String("root", s.Root))
		if err := s.CompileFull(ctx); err != nil {
			return nil, err
		}
		return sv.collectDiagnostics(s)
	}

	seeds := toSet(changedURIs)
	dependents := s.DepGraph().TransitiveDependents(seeds, sv.cfg.DepGraph.MaxTransitiveDepth)
	expanded := unionSets(seeds, dependents)

	total := len(s.Index().SortedURIs())
	if total > 0 && float64(len(expanded))/float64(total) > sv.cfg.Incremental.FallbackFraction {
		log.Debug("incremental set exceeds fallback fraction, promoting to full recompile",
			zap.String("compile_id", compileID), zap.Int("expanded", len(expanded)), zap.Int("total", total))
		if err := s.CompileFull(ctx); err != nil {
			return nil, err
		}
		return sv.collectDiagnostics(s)
	}

	log.Debug("incremental compile", zap.String("compile_id", compileID), zap.Int("expanded", len(expanded)))
	if err := s.CompileIncremental(ctx, expanded); err != nil {
		return nil, err
	}
	return sv.collectDiagnostics(s)
}

// collectDiagnostics gathers compiler-reported messages and unused-import
// findings for every source unit in s's most recent compile, reconciling
// against the scope's previously published set so stale entries clear
// (spec.md §4.8, §8 scenario (f)).
func (sv *Service) collectDiagnostics(s *scope.Scope) (map[string][]diagnostics.Diagnostic, error) {
	cu := s.CompilationUnit()
	if cu == nil {
		return nil, nil
	}

	fresh := diagnostics.FromMessages(cu.Errors().Messages())

	ix := s.Index()
	var compiledURIs []string
	for _, su := range cu.SourceUnits() {
		uri := su.URI()
		compiledURIs = append(compiledURIs, uri)
		if ix == nil || !ix.HasURI(uri) {
			continue
		}
		unused := diagnostics.DetectUnusedImports(ix, uri, su.Text())
		fresh[uri] = append(fresh[uri], unused...)
	}

	handler := sv.diagHandlerFor(s.Root)
	return handler.Reconcile(compiledURIs, fresh), nil
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, i := range items {
		out[i] = struct{}{}
	}
	return out
}

func unionSets(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

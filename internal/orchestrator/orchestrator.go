// Package orchestrator drives a single compile-and-visit pass (spec.md
// §4.7): compiling a unit.Factory's output to the resolved-AST phase,
// feeding the result into internal/astindex, and managing the placeholder
// splice used for completion and signature help.
package orchestrator

import (
	"context"
	"fmt"

	"groovyls/internal/astindex"
	"groovyls/internal/compiler"
	"groovyls/internal/config"
	"groovyls/internal/logging"
	"groovyls/internal/tracker"
	"groovyls/internal/unit"
)

// Orchestrator wires a project's unit.Factory to the AST index builder.
type Orchestrator struct {
	factory *unit.Factory
	tracker *tracker.Tracker
	cfg     *config.Config
}

// New builds an Orchestrator over factory, using tracker for placeholder
// splicing and cfg for the index builder's runtime-namespace filter.
func New(factory *unit.Factory, tr *tracker.Tracker, cfg *config.Config) *Orchestrator {
	return &Orchestrator{factory: factory, tracker: tr, cfg: cfg}
}

// Compile builds a fresh compilation unit over classpath and drives it to
// the resolved-AST phase (spec.md §4.7 step 1).
func (o *Orchestrator) Compile(ctx context.Context, classpath []string) (compiler.CompilationUnit, error) {
	cu, err := o.factory.Create(classpath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create compilation unit: %w", err)
	}
	if err := cu.Compile(ctx, compiler.PhaseResolved); err != nil {
		return nil, fmt.Errorf("orchestrator: compile: %w", err)
	}
	return cu, nil
}

// CompileIncremental builds a compilation unit restricted to includedURIs
// and drives it to the resolved-AST phase (spec.md §4.7 step 1, incremental
// variant).
func (o *Orchestrator) CompileIncremental(ctx context.Context, classpath []string, includedURIs map[string]struct{}) (compiler.CompilationUnit, error) {
	cu, err := o.factory.CreateIncremental(classpath, includedURIs)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create incremental compilation unit: %w", err)
	}
	if err := cu.Compile(ctx, compiler.PhaseResolved); err != nil {
		return nil, fmt.Errorf("orchestrator: compile: %w", err)
	}
	return cu, nil
}

// modulesOf collects every source unit's module, keyed by URI. A source
// that failed to reach PhaseResolved contributes a nil module (spec.md
// §4.10 "compiler failed to produce any module").
func modulesOf(cu compiler.CompilationUnit) map[string]compiler.Module {
	out := make(map[string]compiler.Module)
	for _, su := range cu.SourceUnits() {
		out[su.URI()] = su.Module()
	}
	return out
}

// VisitFull replaces the whole AST index with the result of cu (spec.md
// §4.7 step 2, full variant).
func (o *Orchestrator) VisitFull(ctx context.Context, cu compiler.CompilationUnit) (*astindex.Index, error) {
	return astindex.VisitFull(ctx, modulesOf(cu), o.cfg)
}

// VisitIncremental rebuilds only changed's URIs, carrying forward
// everything else from prev (spec.md §4.7 step 2, incremental variant).
func (o *Orchestrator) VisitIncremental(ctx context.Context, cu compiler.CompilationUnit, prev *astindex.Index, changed map[string]struct{}) (*astindex.Index, error) {
	return astindex.VisitIncremental(ctx, modulesOf(cu), prev, changed, o.cfg)
}

// CompileAndVisit combines Compile and VisitFull, the common case when no
// prior index is being carried forward.
func (o *Orchestrator) CompileAndVisit(ctx context.Context, classpath []string) (compiler.CompilationUnit, *astindex.Index, error) {
	log := logging.Get(logging.CategoryCompile)
	cu, err := o.Compile(ctx, classpath)
	if err != nil {
		return nil, nil, err
	}
	ix, err := o.VisitFull(ctx, cu)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("compile and visit complete")
	return cu, ix, nil
}

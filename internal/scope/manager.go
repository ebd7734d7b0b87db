package scope

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"

	"groovyls/internal/classpath"
	"groovyls/internal/compiler"
	"groovyls/internal/config"
	"groovyls/internal/logging"
	"groovyls/internal/orchestrator"
	"groovyls/internal/tracker"
	"groovyls/internal/unit"
)

// WatchDebounce is the default interval a newly registered scope's disk
// watcher coalesces filesystem events over before invalidating the file
// cache.
const WatchDebounce = 300 * time.Millisecond

// Manager finds and registers project scopes, evicting the least-recently
// used ones once more than cfg.Scope.KeepCount are resident (spec.md §4.9).
type Manager struct {
	cfg        *config.Config
	cpCache    *classpath.Cache
	compilers  compiler.Factory
	tracker    *tracker.Tracker
	sourceExt  string

	mu     sync.Mutex
	byRoot map[string]*Scope
	lru    *lru.Cache[string, *Scope]
}

// NewManager builds a Manager. sourceExt is the language's source
// extension (".groovy"), cpCache the process-wide classpath scan cache, and
// compilers the external compiler front end's Factory.
func NewManager(cfg *config.Config, cpCache *classpath.Cache, compilers compiler.Factory, tr *tracker.Tracker, sourceExt string) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		cpCache:   cpCache,
		compilers: compilers,
		tracker:   tr,
		sourceExt: sourceExt,
		byRoot:    make(map[string]*Scope),
	}
	evictionCache, err := lru.NewWithEvict(cfg.Scope.KeepCount, m.onEvict)
	if err != nil {
		return nil, fmt.Errorf("scope: build LRU: %w", err)
	}
	m.lru = evictionCache
	return m, nil
}

func (m *Manager) onEvict(root string, s *Scope) {
	log := logging.Get(logging.CategoryScope)
	log.Debug("scope evicted")
	s.close()
	delete(m.byRoot, root)
}

// RegisterScope creates (or returns the existing) scope rooted at root,
// wiring excluded sub-roots against every other already-registered scope so
// sibling/nested projects never double-compile each other's files (spec.md
// §4.9 register_scope).
func (m *Manager) RegisterScope(root string) (*Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byRoot[root]; ok {
		m.lru.Get(root) // bump recency
		return existing, nil
	}

	factory := unit.NewFactory(root, m.sourceExt, m.tracker, m.compilers)
	orch := orchestrator.New(factory, m.tracker, m.cfg)
	s := newScope(root, factory, orch, m.cpCache)

	if err := s.attachWatcher(WatchDebounce); err != nil {
		logging.Get(logging.CategoryScope).Warn("scope: watcher attach failed")
	}

	m.byRoot[root] = s
	m.wireExclusions()
	m.lru.Add(root, s)
	return s, nil
}

// wireExclusions updates every registered scope's excluded sub-roots: a
// scope excludes every other registered root nested strictly beneath it.
func (m *Manager) wireExclusions() {
	for root, s := range m.byRoot {
		var excluded []string
		for other := range m.byRoot {
			if isUnder(root, other) {
				excluded = append(excluded, other)
			}
		}
		s.factory.SetExcludedSubRoots(excluded)
	}
}

// FindScope resolves uri to its owning scope via longest-prefix match over
// registered roots, falling back to a workspace-wide default scope rooted
// at defaultRoot if none matches (spec.md §4.9 find_scope).
func (m *Manager) FindScope(uri, defaultRoot string) (*Scope, error) {
	m.mu.Lock()
	var best *Scope
	var bestRoot string
	for root, s := range m.byRoot {
		if !strings.HasPrefix(uri, toFileURI(root)) {
			continue
		}
		if len(root) > len(bestRoot) {
			best = s
			bestRoot = root
		}
	}
	m.mu.Unlock()

	if best != nil {
		m.mu.Lock()
		m.lru.Get(bestRoot)
		m.mu.Unlock()
		return best, nil
	}
	return m.RegisterScope(defaultRoot)
}

func toFileURI(root string) string {
	if strings.HasPrefix(root, "file://") {
		return root
	}
	return "file://" + root
}

// InvalidateClasspath re-acquires urls for the scope rooted at root (spec.md
// §4.9 invalidate_classpath).
func (m *Manager) InvalidateClasspath(ctx context.Context, root string, urls []string) error {
	m.mu.Lock()
	s, ok := m.byRoot[root]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("scope: no scope registered at %s", root)
	}
	return s.SetClasspath(ctx, urls)
}

// Scopes returns every currently resident scope, for workspace-wide
// fan-out (SPEC_FULL.md §11 workspace-symbol wiring).
func (m *Manager) Scopes() []*Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Scope, 0, len(m.byRoot))
	for _, s := range m.byRoot {
		out = append(out, s)
	}
	return out
}

// Len returns the number of resident scopes.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byRoot)
}

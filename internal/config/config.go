// Package config loads the tunables enumerated in spec.md §6: the LRU soft
// cap on resident scopes, the classpath scan cache's overlap/reuse
// threshold, the dependency graph's transitive-traversal depth, the
// incremental-recompile fallback fraction, and the set of runtime namespace
// prefixes filtered out of dependency extraction. Shape follows the
// teacher's internal/config package: a single YAML-backed struct with a
// DefaultConfig constructor and env-var overrides for the numeric knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every engine tunable. Zero value is invalid; use Default().
type Config struct {
	Scope     ScopeConfig     `yaml:"scope"`
	Classpath ClasspathConfig `yaml:"classpath_cache"`
	DepGraph  DepGraphConfig  `yaml:"dep_graph"`
	Incremental IncrementalConfig `yaml:"incremental"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ScopeConfig struct {
	// KeepCount is the LRU soft cap on resident project scopes (default 16).
	KeepCount int `yaml:"keep_count"`
}

type ClasspathConfig struct {
	// OverlapThreshold is the minimum |requested ∩ cached| / |requested|
	// ratio for reusing a non-superset scan entry (default 0.90).
	OverlapThreshold float64 `yaml:"overlap_threshold"`
	// PersistToDisk controls whether scans are written to the on-disk cache.
	PersistToDisk bool `yaml:"persist_to_disk"`
}

type DepGraphConfig struct {
	// MaxTransitiveDepth bounds BFS traversal of the dependency graph (default 5).
	MaxTransitiveDepth int `yaml:"max_transitive_depth"`
}

type IncrementalConfig struct {
	// FallbackFraction: if the expanded recompile set exceeds this fraction
	// of a scope's source count, promote to a full recompile (default 0.5).
	FallbackFraction float64 `yaml:"fallback_fraction"`
}

type RuntimeConfig struct {
	// FilteredNamespacePrefixes are FQN prefixes dropped from deps_by_uri
	// (standard-library / JVM runtime packages).
	FilteredNamespacePrefixes []string `yaml:"filtered_namespace_prefixes"`
}

type LoggingConfig struct {
	DebugMode bool `yaml:"debug_mode"`
	Level     string `yaml:"level"`
}

// Default returns the spec-mandated defaults (spec.md §6).
func Default() *Config {
	return &Config{
		Scope: ScopeConfig{KeepCount: 16},
		Classpath: ClasspathConfig{
			OverlapThreshold: 0.90,
			PersistToDisk:    true,
		},
		DepGraph:    DepGraphConfig{MaxTransitiveDepth: 5},
		Incremental: IncrementalConfig{FallbackFraction: 0.5},
		Runtime: RuntimeConfig{
			FilteredNamespacePrefixes: []string{
				"java.lang", "java.util", "java.io", "java.nio",
				"groovy.lang", "groovy.util", "groovy.transform",
			},
		},
		Logging: LoggingConfig{DebugMode: false, Level: "info"},
	}
}

// Load reads a YAML config file and overlays it onto the defaults, then
// applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets operators tune the numeric knobs without editing
// the YAML file, following the teacher's GROOVYLS_* env convention.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envInt("GROOVYLS_SCOPE_KEEP_COUNT"); ok {
		cfg.Scope.KeepCount = v
	}
	if v, ok := envFloat("GROOVYLS_CLASSPATH_OVERLAP_THRESHOLD"); ok {
		cfg.Classpath.OverlapThreshold = v
	}
	if v, ok := envInt("GROOVYLS_DEP_GRAPH_MAX_DEPTH"); ok {
		cfg.DepGraph.MaxTransitiveDepth = v
	}
	if v, ok := envFloat("GROOVYLS_INCREMENTAL_FALLBACK_FRACTION"); ok {
		cfg.Incremental.FallbackFraction = v
	}
	if v := os.Getenv("GROOVYLS_DEBUG"); v != "" {
		cfg.Logging.DebugMode = strings.EqualFold(v, "true") || v == "1"
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

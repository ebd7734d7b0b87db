// Package logging provides the engine's side-channel logging (spec.md §7:
// "Logging is the responsibility of a thin side-channel supplied at
// construction"). It wraps zap with the teacher's category convention: one
// named sub-logger per subsystem, gated by a debug flag, with an optional
// JSON-lines sink under the project's cache directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line.
type Category string

const (
	CategoryScope       Category = "scope"
	CategoryIndex       Category = "index"
	CategoryCompile     Category = "compile"
	CategoryClasspath   Category = "classpath"
	CategoryDiagnostics Category = "diagnostics"
	CategoryTracker     Category = "tracker"
	CategoryUnit        Category = "unit"
	CategoryDepGraph    Category = "depgraph"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	named   = make(map[Category]*Logger)
	sinkDir string
)

// Logger is a category-scoped handle onto the base zap logger.
type Logger struct {
	z *zap.Logger
}

// Configure installs the base zap logger used by every category. Call once
// at startup; safe to call again in tests to reset state. debug controls
// whether Debug-level lines are emitted at all (matches the teacher's
// debug_mode gate) and projectCacheDir, if non-empty, sends output to a
// JSON-lines file at <projectCacheDir>/logs/engine.log instead of stderr.
func Configure(debug bool, projectCacheDir string) error {
	mu.Lock()
	defer mu.Unlock()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if projectCacheDir != "" {
		dir := filepath.Join(projectCacheDir, "logs")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("logging: create log dir: %w", err)
		}
		cfg.OutputPaths = []string{filepath.Join(dir, "engine.log")}
		sinkDir = dir
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	z, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("logging: build zap logger: %w", err)
	}

	base = z
	named = make(map[Category]*Logger)
	return nil
}

func ensureBase() *zap.Logger {
	if base != nil {
		return base
	}
	z, _ := zap.NewDevelopment()
	base = z
	return base
}

// Get returns (creating if necessary) the logger for a category.
func Get(cat Category) *Logger {
	mu.RLock()
	if l, ok := named[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := named[cat]; ok {
		return l
	}
	l := &Logger{z: ensureBase().Named(string(cat))}
	named[cat] = l
	return l
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Sync flushes the base logger. Best-effort: zap returns spurious errors on
// stderr/stdout on some platforms, so callers may ignore the result.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return nil
	}
	return base.Sync()
}

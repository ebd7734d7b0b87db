package main

import (
	"context"
	"fmt"

	"groovyls/internal/classpath"
	"groovyls/internal/compiler/fake"
	"groovyls/internal/config"
	"groovyls/internal/logging"
	"groovyls/internal/scope"
	"groovyls/internal/service"
	"groovyls/internal/tracker"
)

// fixtureScanner is a no-op classpath.Scanner: scopectl drives the fake
// compiler front end (internal/compiler/fake), which never resolves real
// jar symbols, so there's nothing for a real scanner to contribute here.
type fixtureScanner struct{}

func (fixtureScanner) Scan(ctx context.Context, urls []string) (*classpath.ScanResult, error) {
	return &classpath.ScanResult{URLs: urls}, nil
}

// buildService wires a fresh engine instance rooted at nothing in
// particular; callers register whatever project scopes they need.
func buildService(debug bool) (*service.Service, *scope.Manager, error) {
	cfg := config.Default()
	cfg.Logging.DebugMode = debug
	if err := logging.Configure(cfg.Logging.DebugMode, classpath.DefaultCacheDir()); err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}

	cpCache := classpath.New(fixtureScanner{}, cfg, classpath.DefaultCacheDir())
	tr := tracker.New()
	mgr, err := scope.NewManager(cfg, cpCache, fake.NewFactory(), tr, ".groovy")
	if err != nil {
		return nil, nil, fmt.Errorf("build scope manager: %w", err)
	}
	return service.New(mgr, cfg), mgr, nil
}

// Package unit implements the compilation-unit factory of spec.md §4.6:
// building a compiler.CompilationUnit rooted at a project, seeding sources
// from disk and open buffers, excluding sibling project roots and
// generating synthetic Java-source stubs.
package unit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"groovyls/internal/compiler"
	"groovyls/internal/logging"
	"groovyls/internal/tracker"
)

var excludedDirNames = map[string]struct{}{
	"build": {}, "target": {}, "out": {},
	".gradle": {}, ".git": {}, "node_modules": {},
}

// Factory builds compilation units for a single project root.
type Factory struct {
	root       string
	sourceExt  string
	tracker    *tracker.Tracker
	compilers  compiler.Factory

	mu               sync.Mutex
	excludedSubRoots []string
	additionalCP     []string
	fileCacheValid   bool
	fileCache        []string // absolute paths of collected source files
	unitValid        bool
	javaStubsByFQN   map[string]string // FQN -> synthetic stub text, refreshed each Create
}

// NewFactory builds a Factory rooted at root, seeding sources with the
// language's sourceExt (".groovy") and driving compiler units via compilers.
func NewFactory(root, sourceExt string, tr *tracker.Tracker, compilers compiler.Factory) *Factory {
	return &Factory{
		root:      root,
		sourceExt: sourceExt,
		tracker:   tr,
		compilers: compilers,
	}
}

// SetExcludedSubRoots configures sibling project roots to prune from the
// file walk (spec.md §4.9 register_scope wiring this to other scope roots).
func (f *Factory) SetExcludedSubRoots(roots []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excludedSubRoots = roots
	f.fileCacheValid = false
}

// SetAdditionalClasspath replaces the extra classpath entries merged in at
// Create time; invalidates the cached compilation unit (spec.md §4.6).
func (f *Factory) SetAdditionalClasspath(list []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.additionalCP = list
	f.unitValid = false
}

// InvalidateCompilationUnit forces the next Create to rebuild from scratch.
func (f *Factory) InvalidateCompilationUnit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unitValid = false
}

// InvalidateFileCache forces the next Create to rescan disk for sources.
func (f *Factory) InvalidateFileCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileCacheValid = false
}

// Create builds a compilation unit over every source under the project
// root (spec.md §4.6 steps 1-4).
func (f *Factory) Create(classpath []string) (compiler.CompilationUnit, error) {
	return f.build(classpath, nil)
}

// CreateIncremental builds a compilation unit containing only the given
// URIs as sources (spec.md §4.6 step 5), still refreshing Java stubs.
func (f *Factory) CreateIncremental(classpath []string, includedURIs map[string]struct{}) (compiler.CompilationUnit, error) {
	return f.build(classpath, includedURIs)
}

func (f *Factory) build(classpath []string, includedURIs map[string]struct{}) (compiler.CompilationUnit, error) {
	log := logging.Get(logging.CategoryUnit)
	f.mu.Lock()
	if !f.fileCacheValid {
		files, err := f.scanSources()
		if err != nil {
			f.mu.Unlock()
			return nil, fmt.Errorf("unit: scan sources: %w", err)
		}
		f.fileCache = files
		f.fileCacheValid = true
	}
	files := append([]string(nil), f.fileCache...)
	full := append(append([]string(nil), classpath...), f.additionalCP...)
	f.mu.Unlock()

	cu := f.compilers.New(full)

	for _, path := range files {
		uri := "file://" + path
		if includedURIs != nil {
			if _, ok := includedURIs[uri]; !ok {
				continue
			}
		}
		text, ok := f.readSource(path, uri)
		if !ok {
			continue
		}
		if err := cu.AddSource(filepath.Base(path), uri, text); err != nil {
			log.Warn("unit: add source failed")
		}
	}

	// Open virtual (non-file:) buffers, e.g. jar-entry URIs, are simply
	// never reached above: the seeding loop only ever walks disk-scanned
	// `file:` paths, so such documents are skipped without any extra check
	// needed here (spec.md §4.6 step 4).

	f.refreshJavaStubs(cu, includedURIs)

	return cu, nil
}

func (f *Factory) readSource(path, uri string) (string, bool) {
	if text, ok := f.tracker.Get(uri); ok {
		return text, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (f *Factory) scanSources() ([]string, error) {
	excluded := make(map[string]struct{}, len(f.excludedSubRoots))
	for _, r := range f.excludedSubRoots {
		excluded[filepath.Clean(r)] = struct{}{}
	}

	var files []string
	err := filepath.Walk(f.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort walk; unreadable entries are skipped
		}
		if info.IsDir() {
			base := info.Name()
			if path != f.root && strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			if _, bad := excludedDirNames[base]; bad {
				return filepath.SkipDir
			}
			if _, bad := excluded[filepath.Clean(path)]; bad {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, f.sourceExt) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

var javaPackageRe = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`)
var javaClassRe = regexp.MustCompile(`(?:public\s+)?(?:class|interface|enum)\s+(\w+)`)

// refreshJavaStubs scans adjacent src/main/java and src/test/java roots for
// Java sources and emits synthetic "package X" / "class Y {" / "}" stubs
// (one declaration per line, so the front end parses the package and
// class) for any FQN not already present among the real sources added
// above (spec.md §4.6 step 3). Stubs for files that have since been
// deleted are dropped.
func (f *Factory) refreshJavaStubs(cu compiler.CompilationUnit, includedURIs map[string]struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]struct{})
	for _, su := range cu.SourceUnits() {
		seen[su.Name()] = struct{}{}
	}

	stubs := make(map[string]string)
	for _, javaRoot := range []string{"src/main/java", "src/test/java"} {
		root := filepath.Join(f.root, javaRoot)
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil || info.IsDir() || !strings.HasSuffix(path, ".java") {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			fqn, stub := javaStub(string(data))
			if fqn == "" {
				return nil
			}
			if _, already := seen[fqn]; already {
				return nil
			}
			stubs[fqn] = stub
			return nil
		})
	}
	f.javaStubsByFQN = stubs

	for fqn, stub := range stubs {
		uri := "stub://" + fqn
		if includedURIs != nil {
			if _, ok := includedURIs[uri]; !ok {
				continue
			}
		}
		_ = cu.AddSource(fqn, uri, stub)
	}
}

func javaStub(javaSource string) (fqn, stub string) {
	pkg := ""
	if m := javaPackageRe.FindStringSubmatch(javaSource); m != nil {
		pkg = m[1]
	}
	m := javaClassRe.FindStringSubmatch(javaSource)
	if m == nil {
		return "", ""
	}
	name := m[1]
	fqn = name
	if pkg != "" {
		fqn = pkg + "." + name
	}
	if pkg != "" {
		stub = fmt.Sprintf("package %s\nclass %s {\n}\n", pkg, name)
	} else {
		stub = fmt.Sprintf("class %s {\n}\n", name)
	}
	return fqn, stub
}

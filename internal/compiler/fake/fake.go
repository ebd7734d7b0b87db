// Package fake is a toy, regex/brace-driven stand-in for the external
// compiler front end described in spec.md §6 and internal/compiler. It is
// not a Groovy parser — it recognizes just enough surface syntax (package,
// import variants, class/constructor/method headers, brace nesting) to
// exercise the AST index, dependency graph and diagnostic pipeline
// end-to-end in tests, the same role the teacher's regex-fallback parsers
// (internal/world/ast.go parsePython/parseRust/parseTypeScript) play when a
// real tree-sitter grammar is unavailable.
package fake

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"groovyls/internal/compiler"
	"groovyls/internal/position"
)

var (
	packageRe      = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*$`)
	staticStarRe   = regexp.MustCompile(`^\s*import\s+static\s+([\w.]+)\.\*\s*$`)
	staticRe       = regexp.MustCompile(`^\s*import\s+static\s+([\w.]+)\.(\w+)\s*$`)
	starImportRe   = regexp.MustCompile(`^\s*import\s+([\w.]+)\.\*\s*$`)
	importRe       = regexp.MustCompile(`^\s*import\s+([\w.]+)\s*$`)
	classRe        = regexp.MustCompile(`^\s*(?:public\s+|private\s+)?class\s+(\w+)(?:\s+extends\s+([\w.]+))?(?:\s+implements\s+([\w.,\s]+))?\s*\{`)
	methodRe       = regexp.MustCompile(`^\s*(?:public\s+|private\s+|static\s+)*(?:def|[\w.<>\[\]]+)\s+(\w+)\s*\([^)]*\)\s*\{`)
)

type baseNode struct {
	kind      compiler.NodeKind
	start     position.Position
	end       position.Position
	synthetic bool
	children  []compiler.Node
}

func (b *baseNode) Kind() compiler.NodeKind      { return b.kind }
func (b *baseNode) Start() position.Position     { return b.start }
func (b *baseNode) End() position.Position       { return b.end }
func (b *baseNode) Synthetic() bool              { return b.synthetic }
func (b *baseNode) Children() []compiler.Node    { return b.children }

type classNode struct {
	baseNode
	name string
}

func (c *classNode) Name() string { return c.name }

type importNode struct {
	baseNode
	target string
	alias  string
}

func (i *importNode) Target() string { return i.target }
func (i *importNode) Alias() string  { return i.alias }

type moduleNode struct {
	baseNode
	uri string
	pkg string
}

func (m *moduleNode) URI() string { return m.uri }

// Unit is a fake compiler.CompilationUnit.
type Unit struct {
	classpath []string
	sources   map[string]*sourceUnit
	order     []string
	errs      *errorCollector
}

// NewFactory returns a compiler.Factory that builds fake Units.
func NewFactory() compiler.Factory { return factory{} }

type factory struct{}

func (factory) New(classpath []string) compiler.CompilationUnit {
	return &Unit{classpath: classpath, sources: make(map[string]*sourceUnit)}
}

func (u *Unit) AddSource(name, uri, text string) error {
	if _, exists := u.sources[uri]; !exists {
		u.order = append(u.order, uri)
	}
	u.sources[uri] = &sourceUnit{name: name, uri: uri, text: text}
	return nil
}

func (u *Unit) Compile(ctx context.Context, phase compiler.Phase) error {
	u.errs = &errorCollector{}
	for _, uri := range u.order {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		su := u.sources[uri]
		mod, msgs, err := parse(uri, su.text)
		if err != nil {
			u.errs.msgs = append(u.errs.msgs, compiler.Message{
				SourceURI: uri,
				Line:      -1, Column: -1, EndLine: -1, EndColumn: -1,
				Text:     fmt.Sprintf("catastrophic parse failure: %v", err),
				Severity: compiler.SeverityError,
			})
			su.module = nil
			continue
		}
		u.errs.msgs = append(u.errs.msgs, msgs...)
		if phase >= compiler.PhaseSemanticAnalysis {
			su.module = mod
		} else {
			su.module = nil
		}
	}
	return nil
}

func (u *Unit) SourceUnits() []compiler.SourceUnit {
	out := make([]compiler.SourceUnit, 0, len(u.order))
	for _, uri := range u.order {
		out = append(out, u.sources[uri])
	}
	return out
}

func (u *Unit) Errors() compiler.ErrorCollector {
	if u.errs == nil {
		return &errorCollector{}
	}
	return u.errs
}

type sourceUnit struct {
	name   string
	uri    string
	text   string
	module *moduleNode
}

func (s *sourceUnit) URI() string  { return s.uri }
func (s *sourceUnit) Name() string { return s.name }
func (s *sourceUnit) Text() string { return s.text }
func (s *sourceUnit) Module() compiler.Module {
	if s.module == nil {
		return nil
	}
	return s.module
}

type errorCollector struct {
	msgs []compiler.Message
}

func (e *errorCollector) Messages() []compiler.Message { return e.msgs }

// parse walks text line by line, tracking brace depth to find declaration
// ends. It returns non-nil msgs for unmatched braces (a syntax error). It
// always builds a module and its error result is always nil, so the
// "catastrophic failure" branch in Compile is never taken for this fake.
func parse(uri, text string) (*moduleNode, []compiler.Message, error) {
	lines := strings.Split(text, "\n")
	root := &moduleNode{baseNode: baseNode{kind: compiler.KindModule,
		start: position.Position{Line: 0, Column: 0},
		end:   position.Position{Line: len(lines) - 1, Column: maxLen(lines)},
	}, uri: uri}

	var msgs []compiler.Message
	var classStack []*classNode
	depth := 0
	classOpenDepth := map[*classNode]int{}

	appendChild := func(n compiler.Node) {
		if len(classStack) > 0 {
			top := classStack[len(classStack)-1]
			top.children = append(top.children, n)
		} else {
			root.children = append(root.children, n)
		}
	}

	for lineNo, line := range lines {
		col0 := leadingSpaces(line)

		if m := packageRe.FindStringSubmatch(line); m != nil {
			// package declarations don't need indexing as a node kind the
			// spec names; they only affect FQN resolution: root.pkg
			// qualifies the class declarations that follow (see qualify).
			root.pkg = m[1]
		} else if m := staticStarRe.FindStringSubmatch(line); m != nil {
			appendChild(&importNode{baseNode: lineNode(compiler.KindStaticStarImport, lineNo, col0, len(line)), target: m[1]})
		} else if m := staticRe.FindStringSubmatch(line); m != nil {
			appendChild(&importNode{baseNode: lineNode(compiler.KindStaticImport, lineNo, col0, len(line)), target: m[1] + "." + m[2], alias: m[2]})
		} else if m := starImportRe.FindStringSubmatch(line); m != nil {
			appendChild(&importNode{baseNode: lineNode(compiler.KindStarImport, lineNo, col0, len(line)), target: m[1]})
		} else if m := importRe.FindStringSubmatch(line); m != nil {
			appendChild(&importNode{baseNode: lineNode(compiler.KindImport, lineNo, col0, len(line)), target: m[1]})
		} else if m := classRe.FindStringSubmatch(line); m != nil {
			cn := &classNode{baseNode: lineNode(compiler.KindClassDecl, lineNo, col0, len(line)), name: qualify(root.pkg, m[1])}
			if m[2] != "" {
				cn.children = append(cn.children, &importNode{baseNode: lineNode(compiler.KindSuperclassRef, lineNo, col0, len(line)), target: m[2]})
			}
			for _, iface := range splitCSV(m[3]) {
				cn.children = append(cn.children, &importNode{baseNode: lineNode(compiler.KindInterfaceRef, lineNo, col0, len(line)), target: iface})
			}
			appendChild(cn)
			classStack = append(classStack, cn)
			classOpenDepth[cn] = depth
		} else if m := methodRe.FindStringSubmatch(line); m != nil {
			kind := compiler.KindMethodDecl
			if len(classStack) > 0 && m[1] == classStack[len(classStack)-1].name[strings.LastIndex(classStack[len(classStack)-1].name, ".")+1:] {
				kind = compiler.KindConstructorDecl
			}
			appendChild(&baseNode{kind: kind, start: position.Position{Line: lineNo, Column: col0}, end: position.Position{Line: lineNo, Column: len(line)}})
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")

		for len(classStack) > 0 && depth <= classOpenDepth[classStack[len(classStack)-1]] {
			top := classStack[len(classStack)-1]
			top.end = position.Position{Line: lineNo, Column: len(line)}
			classStack = classStack[:len(classStack)-1]
		}
	}

	if depth != 0 {
		msgs = append(msgs, compiler.Message{
			SourceURI: uri,
			Line:      len(lines) - 1, Column: 0, EndLine: len(lines) - 1, EndColumn: 0,
			Text:     "unmatched braces",
			Severity: compiler.SeverityError,
		})
	}

	return root, msgs, nil
}

func lineNode(kind compiler.NodeKind, line, startCol, endCol int) baseNode {
	return baseNode{kind: kind, start: position.Position{Line: line, Column: startCol}, end: position.Position{Line: line, Column: endCol}}
}

func leadingSpaces(s string) int {
	for i, r := range s {
		if r != ' ' && r != '\t' {
			return i
		}
	}
	return len(s)
}

func maxLen(lines []string) int {
	if len(lines) == 0 {
		return 0
	}
	return len(lines[len(lines)-1])
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package diagnostics

import (
	"fmt"
	"regexp"
	"strings"

	"groovyls/internal/astindex"
	"groovyls/internal/compiler"
	"groovyls/internal/position"
)

// alwaysUsed holds simple names Groovy imports implicitly (groovy.lang,
// java.lang and friends), which a plain usage scan could never observe
// being "used" since no explicit reference is required.
var alwaysUsed = map[string]struct{}{
	"Object": {}, "String": {}, "Integer": {}, "Long": {}, "Short": {},
	"Byte": {}, "Character": {}, "Boolean": {}, "Double": {}, "Float": {},
	"BigDecimal": {}, "BigInteger": {}, "List": {}, "Map": {}, "Set": {},
	"Closure": {}, "Range": {}, "GString": {},
}

// DetectUnusedImports flags imports whose simple name never appears outside
// the import/package lines of text (spec.md §4.8 step 4, scenario (e)).
// Star and static-star imports are skipped, since there's no single simple
// name to check usage of.
func DetectUnusedImports(ix *astindex.Index, uri, text string) []Diagnostic {
	body := stripDeclarationLines(text)

	var out []Diagnostic
	for _, n := range ix.NodesForURI(uri) {
		imp, ok := n.(compiler.ImportDecl)
		if !ok {
			continue
		}
		kind := n.Kind()
		if kind != compiler.KindImport && kind != compiler.KindStaticImport {
			continue
		}
		if n.Start().Line < 0 {
			continue // no location to report against
		}

		simple := simpleName(imp)
		if simple == "" {
			continue
		}
		if _, builtin := alwaysUsed[simple]; builtin {
			continue
		}
		if usageRe(simple).MatchString(body) {
			continue
		}

		out = append(out, Diagnostic{
			URI:      uri,
			Range:    rangeOfNode(n),
			Severity: compiler.SeverityWarning,
			Message:  fmt.Sprintf("unused import: %s", imp.Target()),
		})
	}
	return out
}

func simpleName(imp compiler.ImportDecl) string {
	if imp.Alias() != "" {
		return imp.Alias()
	}
	target := imp.Target()
	if i := strings.LastIndex(target, "."); i >= 0 {
		return target[i+1:]
	}
	return target
}

func usageRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
}

// stripDeclarationLines drops package/import lines so the import statement
// itself doesn't count as a "use" of its own simple name.
func stripDeclarationLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "package ") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func rangeOfNode(n compiler.Node) position.Range {
	return position.Range{Start: n.Start(), End: n.End()}
}

// Package diagnostics implements the diagnostic handler of spec.md §4.8:
// turning raw compiler.Message values into deduplicated, URI-normalized
// diagnostics, and reconciling a publish set so stale diagnostics for files
// no longer in a scope are cleared rather than left stuck (spec.md §8
// scenario (f)).
package diagnostics

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"groovyls/internal/compiler"
	"groovyls/internal/position"
)

// Diagnostic is one LSP-ready diagnostic.
type Diagnostic struct {
	URI      string
	Range    position.Range
	Severity compiler.Severity
	Message  string
}

// Handler converts compiler messages into diagnostics and tracks the set
// last published per project so stale entries can be cleared.
type Handler struct {
	mu            sync.Mutex
	lastPublished map[string]struct{}
}

// NewHandler returns an empty Handler.
func NewHandler() *Handler {
	return &Handler{lastPublished: make(map[string]struct{})}
}

// FromMessages converts raw compiler messages to Diagnostics, normalizing
// their source URI and range, and dropping exact duplicates (spec.md §4.8
// step 3: "identical (uri, range, severity, text) tuples collapse to one").
func FromMessages(msgs []compiler.Message) map[string][]Diagnostic {
	out := make(map[string][]Diagnostic)
	seen := make(map[string]struct{})

	for _, m := range msgs {
		uri := NormalizeURI(m.SourceURI)
		d := Diagnostic{
			URI:      uri,
			Range:    rangeOf(m),
			Severity: m.Severity,
			Message:  m.Text,
		}
		key := dedupeKey(d)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out[uri] = append(out[uri], d)
	}
	return out
}

func dedupeKey(d Diagnostic) string {
	return fmt.Sprintf("%s|%d,%d-%d,%d|%d|%s",
		d.URI, d.Range.Start.Line, d.Range.Start.Column, d.Range.End.Line, d.Range.End.Column,
		d.Severity, d.Message)
}

// rangeOf converts a message's line/column fields to a position.Range,
// falling back to (0,0)-(0,0) when the front end couldn't locate the
// problem (spec.md §4.8 step 2: line/column of -1).
func rangeOf(m compiler.Message) position.Range {
	if m.Line < 0 || m.Column < 0 {
		return position.Range{}
	}
	end := position.Position{Line: m.EndLine, Column: m.EndColumn}
	if m.EndLine < 0 || m.EndColumn < 0 {
		end = position.Position{Line: m.Line, Column: m.Column}
	}
	return position.Range{Start: position.Position{Line: m.Line, Column: m.Column}, End: end}
}

var windowsDriveRe = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// NormalizeURI tolerates the handful of source-URI shapes a JVM front end
// can hand back: an already-well-formed file: URI, a bare POSIX absolute
// path, or a Windows drive-letter path with either slash style (spec.md
// §4.8 step 1).
func NormalizeURI(raw string) string {
	if strings.HasPrefix(raw, "file://") {
		return raw
	}
	if windowsDriveRe.MatchString(raw) {
		return "file:///" + strings.ReplaceAll(raw, `\`, "/")
	}
	if strings.HasPrefix(raw, "/") {
		return "file://" + raw
	}
	return raw
}

// Reconcile returns the full set of diagnostics to publish for this round:
// fresh entries as given, plus an empty slice for any URI that was
// published last round but isn't part of compiledURIs this round (the file
// was removed from the compile set, so its diagnostics must be cleared;
// spec.md §8 scenario (f)).
func (h *Handler) Reconcile(compiledURIs []string, fresh map[string][]Diagnostic) map[string][]Diagnostic {
	h.mu.Lock()
	defer h.mu.Unlock()

	compiled := make(map[string]struct{}, len(compiledURIs))
	for _, u := range compiledURIs {
		compiled[u] = struct{}{}
	}

	out := make(map[string][]Diagnostic, len(fresh))
	next := make(map[string]struct{})
	for uri, diags := range fresh {
		out[uri] = diags
		next[uri] = struct{}{}
	}
	for uri := range h.lastPublished {
		if _, stillCompiled := compiled[uri]; stillCompiled {
			continue
		}
		if _, already := out[uri]; already {
			continue
		}
		out[uri] = nil // clear: no longer part of this scope's compile set
	}

	h.lastPublished = next
	return out
}

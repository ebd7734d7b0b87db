// Package tracker owns the in-memory buffers for open documents
// (spec.md §4.1). "Open" contents are authoritative; once a document is
// closed the scope falls back to reading disk.
package tracker

import (
	"fmt"
	"strings"
	"sync"
)

// Document is a single open-or-recently-open buffer.
type Document struct {
	Text    string
	Version int
	Open    bool
}

// Tracker is safe for concurrent use (spec.md §5: "guarded by an internal
// mutex; open/change/close and the 'changed URIs' set are atomic").
type Tracker struct {
	mu      sync.Mutex
	docs    map[string]*Document
	changed map[string]struct{}
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		docs:    make(map[string]*Document),
		changed: make(map[string]struct{}),
	}
}

// Open records a document as open. It errors if the URI is already open.
func (t *Tracker) Open(uri, text string, version int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d, ok := t.docs[uri]; ok && d.Open {
		return fmt.Errorf("tracker: %s is already open", uri)
	}
	t.docs[uri] = &Document{Text: text, Version: version, Open: true}
	t.changed[uri] = struct{}{}
	return nil
}

// Change replaces a document's contents and marks it changed. No-op if the
// URI isn't currently open (spec.md §4.1).
func (t *Tracker) Change(uri, text string, version int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.docs[uri]
	if !ok || !d.Open {
		return
	}
	d.Text = text
	d.Version = version
	t.changed[uri] = struct{}{}
}

// Close removes a document and marks it changed so the owning scope re-reads
// from disk on next compile.
func (t *Tracker) Close(uri string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.docs, uri)
	t.changed[uri] = struct{}{}
}

// Get returns the current in-memory text for uri, or ok=false if not open.
func (t *Tracker) Get(uri string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.docs[uri]
	if !ok || !d.Open {
		return "", false
	}
	return d.Text, true
}

// Set overwrites an open document's text without bumping its version or
// marking it changed — used by internal/orchestrator to splice and restore
// placeholder text around a compile (spec.md §4.7). Callers must already
// hold the owning scope's write-lock.
func (t *Tracker) Set(uri, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d, ok := t.docs[uri]; ok {
		d.Text = text
	}
}

// ChangedURIs returns every URI in the dirty set without clearing it;
// ResetChanged or ChangedUnder clear it.
func (t *Tracker) ChangedURIs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.changed))
	for u := range t.changed {
		out = append(out, u)
	}
	return out
}

// ResetChanged clears the dirty set.
func (t *Tracker) ResetChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changed = make(map[string]struct{})
}

// ChangedUnder drains (and clears) just the changed URIs rooted under root.
func (t *Tracker) ChangedUnder(root string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	for u := range t.changed {
		if isUnder(u, root) {
			out = append(out, u)
			delete(t.changed, u)
		}
	}
	return out
}

// OpenURIs returns every currently-open URI.
func (t *Tracker) OpenURIs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.docs))
	for u, d := range t.docs {
		if d.Open {
			out = append(out, u)
		}
	}
	return out
}

// HasChangedUnder reports whether any changed URI is rooted under root.
func (t *Tracker) HasChangedUnder(root string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for u := range t.changed {
		if isUnder(u, root) {
			return true
		}
	}
	return false
}

func isUnder(uri, root string) bool {
	if root == "" {
		return true
	}
	return strings.HasPrefix(uri, root)
}

package orchestrator

import (
	"fmt"
	"regexp"

	"groovyls/internal/logging"
	"groovyls/internal/position"
)

// completionPlaceholder is spliced in at the cursor so the front end sees a
// syntactically valid identifier reference to complete against (spec.md
// §4.7 step 3).
const completionPlaceholder = "__gls_completion__"

// signatureHelpPlaceholder is the single ")" spliced in to close an
// unbalanced argument list (spec.md §4.7 step 3: "splices a `)` at the
// offset to close unbalanced argument lists" — not an identifier, since an
// identifier alone never balances the open paren the cursor is sitting
// inside).
const signatureHelpPlaceholder = ")"

// danglingConstructorRe matches an incomplete "new Foo" (or "new " with no
// type name yet) expression with no argument list yet, spec.md §8 scenario
// (b). A bare "new" with no whitespace after it does not match.
var danglingConstructorRe = regexp.MustCompile(`new\s+\w*$`)

// Restore undoes a placeholder splice, restoring the document's original
// text. It is always safe to call more than once.
type Restore func()

// InjectCompletionPlaceholder splices a placeholder identifier into uri's
// open buffer at p, returning a Restore that puts the original text back.
// If p sits right after a dangling "new Foo" with no parens yet, the
// placeholder is closed with "()" so the result is a valid constructor
// call expression (spec.md §8 scenario (b)).
func (o *Orchestrator) InjectCompletionPlaceholder(uri string, p position.Position) (Restore, error) {
	return o.inject(uri, p, func(before string) string {
		if danglingConstructorRe.MatchString(before) {
			return completionPlaceholder + "()"
		}
		return completionPlaceholder
	})
}

// InjectSignatureHelpPlaceholder splices a closing ")" into uri's open
// buffer at p so an incomplete, unbalanced call expression still parses far
// enough to resolve the callee (spec.md §4.7 step 3).
func (o *Orchestrator) InjectSignatureHelpPlaceholder(uri string, p position.Position) (Restore, error) {
	return o.inject(uri, p, func(before string) string {
		return signatureHelpPlaceholder
	})
}

// insertionFunc computes the text to splice in given everything already
// before the cursor, so each placeholder kind can apply its own heuristic
// (spec.md §8 scenario (b): completion's dangling-constructor case) without
// the other borrowing it.
type insertionFunc func(before string) string

func (o *Orchestrator) inject(uri string, p position.Position, computeInsertion insertionFunc) (Restore, error) {
	log := logging.Get(logging.CategoryCompile)

	original, ok := o.tracker.Get(uri)
	if !ok {
		return nil, fmt.Errorf("orchestrator: %s is not open", uri)
	}

	idx := position.NewIndex(original)
	offset, ok := idx.PositionToOffset(p)
	if !ok {
		return nil, fmt.Errorf("orchestrator: position out of range for %s", uri)
	}

	before := original[:offset]
	after := original[offset:]

	insertion := computeInsertion(before)

	o.tracker.Set(uri, before+insertion+after)
	log.Debug("placeholder injected")

	restored := false
	return func() {
		if restored {
			return
		}
		restored = true
		o.tracker.Set(uri, original)
	}, nil
}

// WithCompletionPlaceholder injects a completion placeholder at p, runs fn,
// and guarantees the original text is restored afterward even if fn panics
// (spec.md §8 invariant 7: "placeholder injection/removal round-trips
// byte-for-byte").
func (o *Orchestrator) WithCompletionPlaceholder(uri string, p position.Position, fn func() error) error {
	restore, err := o.InjectCompletionPlaceholder(uri, p)
	if err != nil {
		return err
	}
	defer restore()
	return fn()
}

// WithSignatureHelpPlaceholder is WithCompletionPlaceholder's signature-help
// counterpart.
func (o *Orchestrator) WithSignatureHelpPlaceholder(uri string, p position.Position, fn func() error) error {
	restore, err := o.InjectSignatureHelpPlaceholder(uri, p)
	if err != nil {
		return err
	}
	defer restore()
	return fn()
}

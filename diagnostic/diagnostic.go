// Package diagnostic collects the recoverable problems found while resolving
// shapes and binding data. None of them stop a pass; they are logged at warn
// level and kept on the pass for callers to inspect.
package diagnostic

import (
	"fmt"
	"log/slog"
	"sync"
)

// Kind classifies a diagnostic.
type Kind string

// Diagnostic kinds.
const (
	// MalformedReference: a list head, sh:node or sh:property target does not resolve.
	MalformedReference Kind = "malformed-reference"
	// AmbiguousRoot: several root shapes or conformance targets; the first was used.
	AmbiguousRoot Kind = "ambiguous-root"
	// MissingConformance: the data names no shape it conforms to; a fresh form is offered.
	MissingConformance Kind = "missing-conformance"
	// UnresolvableClass: sh:class has neither a target shape nor known instances.
	UnresolvableClass Kind = "unresolvable-class"
	// BrokenList: an RDF list is unterminated, cyclic or missing rdf:first.
	BrokenList Kind = "broken-list"
	// MissingPath: a property shape has no sh:path.
	MissingPath Kind = "missing-path"
	// UnsupportedPath: sh:path is not a plain predicate IRI.
	UnsupportedPath Kind = "unsupported-path"
	// DepthLimit: fresh nested instantiation stopped at the configured depth.
	DepthLimit Kind = "depth-limit"
)

// Kinds lists every diagnostic kind.
func Kinds() []Kind {
	return []Kind{
		MalformedReference, AmbiguousRoot, MissingConformance, UnresolvableClass,
		BrokenList, MissingPath, UnsupportedPath, DepthLimit,
	}
}

// Diagnostic is one recoverable problem.
type Diagnostic struct {
	Kind    Kind
	Subject string // canonical key of the shape or node concerned
	Message string
}

func (d Diagnostic) Error() string {
	if d.Subject == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Subject, d.Message)
}

// List accumulates diagnostics for one pass.
type List struct {
	mu     sync.Mutex
	items  []Diagnostic
	logger *slog.Logger
	hooks  []func(Diagnostic)
}

// NewList creates a list that logs through logger (nil uses slog.Default()).
func NewList(logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.Default()
	}
	return &List{logger: logger}
}

// OnReport registers fn to be called for every reported diagnostic.
func (l *List) OnReport(fn func(Diagnostic)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// Report records a diagnostic. Calling Report on a nil list is a no-op.
func (l *List) Report(kind Kind, subject, format string, args ...any) Diagnostic {
	d := Diagnostic{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
	if l == nil {
		return d
	}
	l.mu.Lock()
	l.items = append(l.items, d)
	hooks := l.hooks
	l.mu.Unlock()

	l.logger.Warn(d.Message, slog.String("kind", string(kind)), slog.String("subject", subject))
	for _, fn := range hooks {
		fn(d)
	}
	return d
}

// Items returns a copy of the recorded diagnostics in report order.
func (l *List) Items() []Diagnostic {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Diagnostic(nil), l.items...)
}

// Len returns the number of recorded diagnostics.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Count returns the number of diagnostics of the given kind.
func (l *List) Count(kind Kind) int {
	n := 0
	for _, d := range l.Items() {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Has reports whether a diagnostic of the given kind was recorded.
func (l *List) Has(kind Kind) bool {
	return l.Count(kind) > 0
}

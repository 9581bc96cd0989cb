// Package model defines core data structures for funclens.
package model

// BufferID identifies an open buffer within the host.
type BufferID int

// TagKind indicates whether a tag is a definition or a reference.
type TagKind string

const (
	Definition TagKind = "def"
	Reference  TagKind = "ref"
)

// SymbolKind indicates the syntactic kind of a symbol.
type SymbolKind string

const (
	Class    SymbolKind = "class"
	Function SymbolKind = "function"
	Method   SymbolKind = "method"
)

// Func describes one discovered function or method in a buffer.
// Lines are 1-based and inclusive. EndLine is 0 when the producing
// backend did not supply a range; discovery estimates it afterwards.
// Immutable once returned from discovery.
type Func struct {
	Name      string
	Kind      SymbolKind
	StartLine int
	EndLine   int
	StartCol  int
}

// LensItem is a single provider's contribution for one function.
// Items with a zero line or empty text are dropped by the presenter.
type LensItem struct {
	Line int
	Text string
}

// Tag represents a single symbol occurrence extracted from source code.
// Definitions feed discovery; references feed the reference-count index.
type Tag struct {
	Name       string
	Kind       TagKind
	SymbolKind SymbolKind
	Line       int
	EndLine    int
	Col        int
	File       string
}

// Phase distinguishes the two render passes of one refresh cycle.
type Phase int

const (
	// PhaseStale renders from cached discovery results without waiting
	// on any backend.
	PhaseStale Phase = iota
	// PhaseFresh is the authoritative pass after discovery completes.
	PhaseFresh
)

func (p Phase) String() string {
	if p == PhaseStale {
		return "stale"
	}
	return "fresh"
}

// RenderedLens is the merged, ordered lens text for one buffer line.
type RenderedLens struct {
	Line  int
	Texts []string
}

// LensReport is the complete render result for one buffer, ready for
// terminal or TOON output.
type LensReport struct {
	File     string
	Language string
	Phase    Phase
	Lenses   []RenderedLens
}

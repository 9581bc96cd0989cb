// Package host defines the editor-side interfaces the lens core consumes:
// buffer text access, symbol query backends, and diagnostic sources. The
// file-backed implementation in this package stands in for an embedding
// editor; anything satisfying these interfaces can drive the core.
package host

import "github.com/funclens/funclens/internal/model"

// Buffer provides read access to one open text buffer.
type Buffer interface {
	ID() model.BufferID
	Path() string
	Language() string

	// Lines returns lines [start, end], 1-based inclusive. end <= 0
	// means "through the last line". Out-of-range bounds are clamped.
	Lines(start, end int) []string
	LineCount() int

	// ChangeTag is a counter that increases on every buffer mutation.
	// Discovery results are cached against it.
	ChangeTag() uint64

	Valid() bool
}

// Symbol is the raw, possibly nested result shape produced by a symbol
// backend. Discovery flattens children recursively and normalizes the
// rest. EndLine 0 means the backend supplied no range.
type Symbol struct {
	Name     string
	Kind     model.SymbolKind
	Line     int
	EndLine  int
	Col      int
	Children []Symbol
}

// SymbolSource is one symbol query backend. Multiple sources may serve
// the same buffer; discovery fans out to all of them and aggregates.
type SymbolSource interface {
	Name() string
	Supports(language string) bool

	// RequestSymbols issues one asynchronous symbol query for buf. cb is
	// invoked exactly once with this source's results (possibly empty).
	RequestSymbols(buf Buffer, cb func(symbols []Symbol, err error))
}

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarn
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarn:
		return "warn"
	case SeverityInfo:
		return "info"
	default:
		return "hint"
	}
}

// Diagnostic is one reported problem at a buffer line.
type Diagnostic struct {
	Line     int
	Severity Severity
	Message  string
}

// DiagnosticSource supplies current diagnostics for a buffer.
type DiagnosticSource interface {
	Diagnostics(buf Buffer) []Diagnostic
}

// BufferText reconstructs the full buffer content as bytes, for
// consumers that parse whole files.
func BufferText(buf Buffer) []byte {
	lines := buf.Lines(1, 0)
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	out := make([]byte, 0, n)
	for i, l := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, l...)
	}
	return out
}

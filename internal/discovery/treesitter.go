package discovery

import (
	"github.com/charmbracelet/log"

	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
	"github.com/funclens/funclens/internal/parse"
)

// TreeSitterSource is a symbol backend that parses the buffer with
// tree-sitter and reports definition tags as symbols. Results carry full
// ranges, so no end-line estimation is needed for them.
type TreeSitterSource struct {
	logger *log.Logger
}

// NewTreeSitterSource creates the tree-sitter symbol backend.
func NewTreeSitterSource(logger *log.Logger) *TreeSitterSource {
	return &TreeSitterSource{logger: logger}
}

func (t *TreeSitterSource) Name() string { return "treesitter" }

func (t *TreeSitterSource) Supports(language string) bool {
	_, ok := lang.Languages[language]
	return ok
}

// RequestSymbols parses the buffer on a separate goroutine and invokes
// cb exactly once. Each request uses a fresh parser; tree-sitter parsers
// are not safe for concurrent use.
func (t *TreeSitterSource) RequestSymbols(buf host.Buffer, cb func([]host.Symbol, error)) {
	go func() {
		l, ok := lang.Languages[buf.Language()]
		if !ok {
			cb(nil, nil)
			return
		}
		query, err := l.GetTagQuery()
		if err != nil {
			cb(nil, err)
			return
		}
		source := host.BufferText(buf)
		tags := parse.ExtractTags(l, l.NewParser(), query, source, buf.Path())

		var symbols []host.Symbol
		for i := range tags {
			tag := &tags[i]
			if tag.Kind != model.Definition {
				continue
			}
			symbols = append(symbols, host.Symbol{
				Name:    tag.Name,
				Kind:    tag.SymbolKind,
				Line:    tag.Line,
				EndLine: tag.EndLine,
				Col:     tag.Col,
			})
		}
		cb(symbols, nil)
	}()
}

// Package discovery locates function symbols in buffers: cache lookup,
// fan-out to symbol backends, normalization of nested symbol shapes,
// anonymous filtering, and end-line estimation.
package discovery

import (
	"regexp"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/funclens/funclens/internal/cache"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
)

// anonymousNames matches anonymous/lambda naming conventions across
// source languages. Numeric-array-style names ("[1]", "[2]") come from
// backends that report table entries and are not real names.
var anonymousNames = []*regexp.Regexp{
	regexp.MustCompile(`^\[\d+\]$`),
	regexp.MustCompile(`^<anonymous>$`),
	regexp.MustCompile(`^\(anonymous\)$`),
	regexp.MustCompile(`^anonymous$`),
	regexp.MustCompile(`^<lambda>$`),
	regexp.MustCompile(`^lambda$`),
	regexp.MustCompile(`^<closure>$`),
	regexp.MustCompile(`^closure$`),
}

// maxBraceScan caps how far end-line estimation reads past a function
// start. The estimator is best-effort, not a parser.
const maxBraceScan = 200

// Service is the Function Discovery Service wired to a cache and a set
// of symbol backends.
type Service struct {
	cache   *cache.Cache
	sources []host.SymbolSource
	logger  *log.Logger
}

// NewService creates a discovery service.
func NewService(c *cache.Cache, sources []host.SymbolSource, logger *log.Logger) *Service {
	return &Service{cache: c, sources: sources, logger: logger}
}

// Cache exposes the underlying discovery cache (for invalidation hooks
// and test capacity overrides).
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Cached returns the cached discovery result for buf regardless of
// change-tag validity. Used by the stale render phase.
func (s *Service) Cached(id model.BufferID) ([]model.Func, bool) {
	return s.cache.GetStale(id)
}

// Discover finds functions in buf. A valid cache entry is returned via
// cb synchronously. On miss, one asynchronous symbol request fans out to
// every capable backend; results are aggregated, normalized, written to
// the cache, and then handed to cb. Zero capable backends is an empty
// result, not an error.
func (s *Service) Discover(buf host.Buffer, cb func([]model.Func)) {
	tag := buf.ChangeTag()
	if funcs, ok := s.cache.Get(buf.ID(), tag); ok {
		cb(funcs)
		return
	}

	var capable []host.SymbolSource
	for _, src := range s.sources {
		if src.Supports(buf.Language()) {
			capable = append(capable, src)
		}
	}
	if len(capable) == 0 {
		s.logger.Debug("no symbol backend for language", "language", buf.Language())
		cb(nil)
		return
	}

	var mu sync.Mutex
	pending := len(capable)
	var all []host.Symbol

	for _, src := range capable {
		src.RequestSymbols(buf, func(symbols []host.Symbol, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Debug("symbol backend failed", "backend", src.Name(), "err", err)
			} else {
				all = append(all, symbols...)
			}
			pending--
			if pending > 0 {
				return
			}
			funcs := s.normalize(buf, all)
			s.cache.Put(buf.ID(), tag, funcs)
			cb(funcs)
		})
	}
}

// normalize flattens nested symbol trees, drops anonymous and non-callable
// entries, estimates missing end lines, and orders the result by line.
func (s *Service) normalize(buf host.Buffer, symbols []host.Symbol) []model.Func {
	l := lang.Languages[buf.Language()]

	var flat []model.Func
	var visit func(syms []host.Symbol)
	visit = func(syms []host.Symbol) {
		for i := range syms {
			sym := &syms[i]
			if keepSymbol(l, sym) {
				flat = append(flat, model.Func{
					Name:      sym.Name,
					Kind:      sym.Kind,
					StartLine: sym.Line,
					EndLine:   sym.EndLine,
					StartCol:  sym.Col,
				})
			}
			visit(sym.Children)
		}
	}
	visit(symbols)

	// Backends may report the same definition; keep the first occurrence.
	seen := make(map[funcKey]struct{}, len(flat))
	var funcs []model.Func
	for _, f := range flat {
		key := funcKey{f.Name, f.StartLine}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if f.EndLine == 0 {
			f.EndLine = estimateEndLine(buf, l, f.StartLine)
		}
		funcs = append(funcs, f)
	}

	sort.Slice(funcs, func(i, j int) bool {
		if funcs[i].StartLine != funcs[j].StartLine {
			return funcs[i].StartLine < funcs[j].StartLine
		}
		return funcs[i].StartCol < funcs[j].StartCol
	})
	return funcs
}

type funcKey struct {
	name string
	line int
}

func keepSymbol(l *lang.Language, sym *host.Symbol) bool {
	if sym.Kind != model.Function && sym.Kind != model.Method {
		return false
	}
	if sym.Line < 1 {
		return false
	}
	return !isAnonymous(l, sym.Name)
}

func isAnonymous(l *lang.Language, name string) bool {
	if name == "" {
		return true
	}
	for _, re := range anonymousNames {
		if re.MatchString(name) {
			return true
		}
	}
	if l != nil && l.IsAnonymousName(name) {
		return true
	}
	return false
}

// estimateEndLine scans forward from startLine counting balanced braces,
// skipping braces inside string literals and line comments. Approximate:
// for brace-free languages or unbalanced input it falls back to the
// start line.
func estimateEndLine(buf host.Buffer, l *lang.Language, startLine int) int {
	if l == nil || !l.Braces {
		return startLine
	}
	end := startLine + maxBraceScan - 1
	lines := buf.Lines(startLine, end)
	depth := 0
	opened := false
	for i, line := range lines {
		depth += braceDelta(line, l.LineComments, &opened)
		if opened && depth <= 0 {
			return startLine + i
		}
	}
	return startLine
}

// braceDelta returns the net brace count of one line, ignoring braces in
// string/char literals and after a line-comment opener. Lightweight
// lexical heuristic, not a tokenizer: multi-line strings are not tracked.
func braceDelta(line string, lineComments []string, opened *bool) int {
	delta := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
			continue
		case '{':
			delta++
			*opened = true
			continue
		case '}':
			delta--
			continue
		}
		for _, cm := range lineComments {
			if len(line)-i >= len(cm) && line[i:i+len(cm)] == cm {
				return delta
			}
		}
	}
	return delta
}

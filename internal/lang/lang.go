// Package lang provides a language registry mapping file extensions to
// tree-sitter languages, their embedded tag queries, and per-language
// naming conventions used by discovery.
package lang

import (
	"embed"
	"fmt"
	"regexp"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
	queryOnce  sync.Once
	query      *sitter.Query
	queryErr   error

	// AnonymousNames matches names that indicate lambdas or otherwise
	// nameless definitions in this language, checked in addition to the
	// cross-language patterns applied by discovery.
	AnonymousNames []*regexp.Regexp

	// LineComments lists line-comment openers, consumed by the end-line
	// brace-scan heuristic for backends that omit ranges.
	LineComments []string

	// Braces reports whether function bodies are brace-delimited. When
	// false the brace-scan heuristic is skipped entirely.
	Braces bool

	// FindMethodClass returns the enclosing class/module name if a
	// @definition.function is actually a method (Python/Ruby style).
	// Returns "" if not a method.
	FindMethodClass func(node *sitter.Node, source []byte) string

	// FindReceiverType returns the receiver type name for a
	// @definition.method node (Go style). Returns "" if not applicable.
	FindReceiverType func(node *sitter.Node, source []byte) string
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// GetTagQuery returns the compiled tree-sitter query (safe to share across goroutines).
func (l *Language) GetTagQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", l.Name))
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// IsAnonymousName reports whether name matches this language's own
// anonymous-definition conventions.
func (l *Language) IsAnonymousName(name string) bool {
	for _, re := range l.AnonymousNames {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

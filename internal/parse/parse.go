// Package parse extracts tags from source files using tree-sitter.
package parse

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
)

var captureMap = map[string]struct {
	Kind       model.TagKind
	SymbolKind model.SymbolKind
}{
	"definition.function": {model.Definition, model.Function},
	"definition.method":   {model.Definition, model.Method},
	"definition.lambda":   {model.Definition, model.Function},
	"reference.call":      {model.Reference, model.Function},
}

// LambdaName is the placeholder emitted for nameless definitions so that
// downstream anonymous filtering has something uniform to match.
const LambdaName = "<lambda>"

// ExtractTags parses a source file and returns definition and reference tags.
// The parser must be created for the correct language.
// filePath is used only for Tag.File and should be the repo-relative path.
func ExtractTags(l *lang.Language, parser *sitter.Parser, query *sitter.Query, source []byte, filePath string) []model.Tag {
	if len(source) == 0 {
		return nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var tags []model.Tag

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		// Find the @name capture and the pattern capture
		var nameNode *sitter.Node
		var captureName string
		var defNode *sitter.Node

		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if _, ok := captureMap[cname]; ok {
				captureName = cname
				defNode = c.Node
			}
		}

		if captureName == "" || defNode == nil {
			continue
		}
		// Nameless captures (lambda patterns) carry no @name; position
		// comes from the definition node itself.
		if nameNode == nil && captureName != "definition.lambda" {
			continue
		}

		cm := captureMap[captureName]
		tagKind := cm.Kind
		symbolKind := cm.SymbolKind

		name := LambdaName
		posNode := defNode
		if nameNode != nil {
			name = lang.NodeText(nameNode, source)
			posNode = nameNode
		}

		if tagKind == model.Definition && nameNode != nil {
			name, symbolKind = qualifyDefinition(l, defNode, name, symbolKind, source)
		}

		tags = append(tags, model.Tag{
			Name:       name,
			Kind:       tagKind,
			SymbolKind: symbolKind,
			Line:       int(posNode.StartPoint().Row) + 1,
			EndLine:    int(defNode.EndPoint().Row) + 1,
			Col:        int(posNode.StartPoint().Column),
			File:       filePath,
		})
	}

	return tags
}

// qualifyDefinition prefixes a definition name with its enclosing class
// (Python/Ruby) or receiver type (Go) when the language supplies a hook.
func qualifyDefinition(l *lang.Language, defNode *sitter.Node, name string, kind model.SymbolKind, source []byte) (string, model.SymbolKind) {
	if l.FindMethodClass != nil {
		if className := l.FindMethodClass(defNode, source); className != "" {
			return className + "." + name, model.Method
		}
	}
	if kind == model.Method && l.FindReceiverType != nil {
		if recv := l.FindReceiverType(defNode, source); recv != "" {
			return recv + "." + name, kind
		}
	}
	return name, kind
}

// Definitions filters tags down to definition tags only.
func Definitions(tags []model.Tag) []model.Tag {
	var defs []model.Tag
	for i := range tags {
		if tags[i].Kind == model.Definition {
			defs = append(defs, tags[i])
		}
	}
	return defs
}

// branchNodes lists tree-sitter node types counted as a decision point
// across the supported grammars.
var branchNodes = map[string]struct{}{
	"if_statement":       {},
	"if_expression":      {},
	"if":                 {},
	"elif_clause":        {},
	"elsif":              {},
	"for_statement":      {},
	"for":                {},
	"while_statement":    {},
	"while":              {},
	"case":               {},
	"when":               {},
	"expression_case":    {},
	"type_case":          {},
	"select_statement":   {},
	"conditional":        {},
	"ternary_expression": {},
	"catch_clause":       {},
	"except_clause":      {},
	"rescue":             {},
	"boolean_operator":   {},
	"binary_expression":  {},
}

// CountBranches parses source and counts decision points whose start line
// falls within [startLine, endLine] (1-based, inclusive). The count is
// approximate: it is a complexity signal, not a metric.
func CountBranches(l *lang.Language, parser *sitter.Parser, source []byte, startLine, endLine int) int {
	if len(source) == 0 || endLine < startLine {
		return 0
	}
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return 0
	}
	defer tree.Close()

	count := 0
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		line := int(n.StartPoint().Row) + 1
		if line > endLine {
			return
		}
		if _, ok := branchNodes[n.Type()]; ok && line >= startLine {
			// binary_expression only counts when it is a short-circuit
			// operator; other grammars expose dedicated node types.
			if n.Type() != "binary_expression" || isShortCircuit(n, source) {
				count++
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return count
}

func isShortCircuit(n *sitter.Node, source []byte) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		switch lang.NodeText(n.Child(i), source) {
		case "&&", "||", "and", "or":
			return true
		}
	}
	return false
}

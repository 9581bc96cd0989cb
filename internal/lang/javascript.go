package lang

import (
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

func init() {
	Languages["javascript"] = &Language{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs"},
		lang:       javascript.GetLanguage(),
		AnonymousNames: []*regexp.Regexp{
			regexp.MustCompile(`^<anonymous>$`),
			regexp.MustCompile(`^anonymous$`),
			regexp.MustCompile(`^<function>$`),
			regexp.MustCompile(`^callback$`),
		},
		LineComments:    []string{"//"},
		Braces:          true,
		FindMethodClass: jsFindMethodClass,
	}
}

// jsFindMethodClass walks up from a method_definition to the enclosing
// class declaration and returns its name.
func jsFindMethodClass(funcNode *sitter.Node, source []byte) string {
	node := funcNode.Parent()
	for node != nil {
		if node.Type() == "class_declaration" || node.Type() == "class" {
			for i := 0; i < int(node.ChildCount()); i++ {
				child := node.Child(i)
				if child.Type() == "identifier" {
					return NodeText(child, source)
				}
			}
			return ""
		}
		node = node.Parent()
	}
	return ""
}

package lang

import (
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

func init() {
	Languages["go"] = &Language{
		Name:       "go",
		Extensions: []string{".go"},
		lang:       golang.GetLanguage(),
		AnonymousNames: []*regexp.Regexp{
			regexp.MustCompile(`^func$`),
			regexp.MustCompile(`^func\d+$`), // gopls-style synthetic closure names
		},
		LineComments:     []string{"//"},
		Braces:           true,
		FindReceiverType: goFindReceiverType,
	}
}

// goFindReceiverType extracts the receiver type name from a method_declaration node.
// Navigates: method_declaration → parameter_list (receiver) → parameter_declaration → type.
func goFindReceiverType(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "parameter_list" {
			continue
		}
		// The receiver is the parameter_list that appears before the method name.
		if !isReceiverList(node, child) {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			param := child.Child(j)
			if param.Type() == "parameter_declaration" {
				return goExtractTypeName(param, source)
			}
		}
	}
	return ""
}

// goExtractTypeName extracts the type name from a parameter_declaration,
// unwrapping pointer_type if present.
func goExtractTypeName(param *sitter.Node, source []byte) string {
	for i := 0; i < int(param.ChildCount()); i++ {
		child := param.Child(i)
		switch child.Type() {
		case "type_identifier":
			return NodeText(child, source)
		case "pointer_type":
			for k := 0; k < int(child.ChildCount()); k++ {
				inner := child.Child(k)
				if inner.Type() == "type_identifier" {
					return NodeText(inner, source)
				}
			}
		}
	}
	return ""
}

// isReceiverList checks if a parameter_list is the receiver (appears before the method name).
func isReceiverList(parent, paramList *sitter.Node) bool {
	if parent.Type() != "method_declaration" {
		return false
	}
	foundList := false
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if child == paramList {
			foundList = true
			continue
		}
		if foundList && child.Type() == "field_identifier" {
			return true
		}
	}
	return false
}

package pipeline

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/PML54/pmltools/internal/parser"
)

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

func findChildByKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func findDescendantByKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	if node.Kind() == kind {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := findDescendantByKind(child, kind); found != nil {
			return found
		}
	}
	return nil
}

// hasChildToken reports whether a node carries a bare keyword token
// ("abstract", "static", "else", ...) among its direct children.
// Anonymous token nodes expose the literal text as their kind.
func hasChildToken(node *tree_sitter.Node, token string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == token {
			return true
		}
	}
	return false
}

// declBody returns the member-holding body of a type declaration.
func declBody(node *tree_sitter.Node) *tree_sitter.Node {
	if body := node.ChildByFieldName("body"); body != nil {
		return body
	}
	for _, kind := range []string{"class_body", "enum_body"} {
		if body := findChildByKind(node, kind); body != nil {
			return body
		}
	}
	return nil
}

// collectTypeNames gathers the type names directly mentioned by a clause
// node (interfaces, mixins). Generic arguments are not mentions of the
// clause itself and are skipped.
func collectTypeNames(node *tree_sitter.Node, source []byte) []string {
	var names []string
	parser.Walk(node, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "type_arguments":
			return false
		case "type_identifier":
			names = append(names, parser.NodeText(n, source))
			return false
		}
		return true
	})
	return names
}

// stripGenerics reduces a parameterized type name to its base name.
func stripGenerics(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

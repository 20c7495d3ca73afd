package pipeline

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// complexityVisitor accumulates cyclomatic and cognitive scores over a
// single method body. Cyclomatic starts at 1 (the straight-line path);
// cognitive additions are weighted by the nesting level at construct
// entry. One fresh visitor per method, totals never leak between
// methods.
type complexityVisitor struct {
	cyclomatic int
	cognitive  int
	nesting    int
}

// methodComplexity scores one method body. Bodyless members score the
// baseline: one path, no cognitive load.
func methodComplexity(body *tree_sitter.Node) (cyclomatic, cognitive int) {
	v := &complexityVisitor{cyclomatic: 1}
	if body != nil {
		v.visit(body)
	}
	return v.cyclomatic, v.cognitive
}

func (v *complexityVisitor) visit(node *tree_sitter.Node) {
	switch node.Kind() {
	case "if_statement":
		v.cyclomatic++
		v.cognitive += 1 + v.nesting
		if hasChildToken(node, "else") {
			v.cognitive++
		}
		v.visitNested(node)
		return

	case "for_statement", "while_statement", "do_statement":
		v.cyclomatic++
		v.cognitive += 1 + v.nesting
		v.visitNested(node)
		return

	case "switch_statement":
		v.cyclomatic += countCaseArms(node)
		v.cognitive += 1 + v.nesting
		v.visitNested(node)
		return

	case "conditional_expression":
		v.cyclomatic++
		v.cognitive += 1 + v.nesting

	case "&&", "||":
		v.cyclomatic++
		v.cognitive++

	case "break":
		v.cognitive++

	case "on_part":
		v.cyclomatic++
		v.cognitive += 1 + v.nesting

	case "catch_clause", "catch_part":
		// A bare catch is wrapped in an on_part by the grammar; only
		// count clauses that were not already counted through one.
		if parent := node.Parent(); parent == nil || parent.Kind() != "on_part" {
			v.cyclomatic++
			v.cognitive += 1 + v.nesting
		}
	}
	v.visitChildren(node)
}

func (v *complexityVisitor) visitChildren(node *tree_sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			v.visit(child)
		}
	}
}

func (v *complexityVisitor) visitNested(node *tree_sitter.Node) {
	v.nesting++
	v.visitChildren(node)
	v.nesting--
}

// countCaseArms counts the case arms of a switch statement by its
// "case" keyword tokens. The default arm adds no independent path.
// Nested switches count their own arms when visited.
func countCaseArms(switchNode *tree_sitter.Node) int {
	count := 0
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil || child.Kind() == "switch_statement" {
				continue
			}
			if child.Kind() == "case" {
				count++
				continue
			}
			walk(child)
		}
	}
	walk(switchNode)
	return count
}

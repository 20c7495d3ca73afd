// astdump prints the tree-sitter parse tree of a Dart file, with each
// node's kind, parent kind and source text. Used to check how grammar
// constructs map to node kinds before touching the extraction passes.
package main

import (
	"fmt"
	"os"

	"github.com/PML54/pmltools/internal/lang"
	"github.com/PML54/pmltools/internal/parser"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// sample is dumped when no file is given. It covers the node kinds the
// extraction passes dispatch on: imports, a class with clauses, a
// method with control flow and a call.
const sample = `import 'dart:async';

class Greeter extends Base with Logging {
  Future<void> greet(String name) async {
    if (name.isEmpty) {
      return;
    }
    print('hello ' + name);
  }
}
`

func printAST(node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := ""
	for i := 0; i < indent; i++ {
		prefix += "  "
	}
	parentKind := "nil"
	if node.Parent() != nil {
		parentKind = node.Parent().Kind()
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Printf("%s%s (parent=%s) %q\n", prefix, node.Kind(), parentKind, text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(node.Child(i), source, indent+1)
	}
}

func main() {
	source := []byte(sample)
	label := "sample"
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		source = data
		label = os.Args[1]
	}

	tree, err := parser.Parse(lang.Dart, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: parse: %v\n", err)
		os.Exit(1)
	}
	defer tree.Close()

	fmt.Printf("=== %s ===\n", label)
	printAST(tree.RootNode(), source, 0)
	if tree.RootNode().HasError() {
		fmt.Println("\n(tree contains syntax errors)")
	}
}

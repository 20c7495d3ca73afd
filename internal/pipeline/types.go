package pipeline

import (
	"log/slog"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/PML54/pmltools/internal/lang"
	"github.com/PML54/pmltools/internal/parser"
	"github.com/PML54/pmltools/internal/store"
)

// typeDecl associates one type declaration node with its stored row for
// the member passes. The association is positional, never by name, so
// same-named types within one file stay distinguishable.
type typeDecl struct {
	node *tree_sitter.Node
	id   int64
	name string
	kind string

	widgetKind    string
	frameworkKind string

	extends    string
	implements []string
	mixins     []string

	// members is filled by the method pass: one entry per recorded
	// method, carrying its body node for reference attribution.
	members []memberRef
}

type memberRef struct {
	id   int64
	body *tree_sitter.Node
}

// typePass records every type declared in one file and returns the
// ordered declaration→row associations. Rows are inserted immediately
// so their ids are available to the member passes over the same file.
func (p *Pipeline) typePass(root *tree_sitter.Node, source []byte, fileID int64, summary *RunSummary) []*typeDecl {
	classKinds := toSet(lang.ForLanguage(lang.Dart).ClassNodeTypes)

	var decls []*typeDecl
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if !classKinds[node.Kind()] {
			return true
		}
		d := p.extractTypeDecl(node, source)
		if d == nil {
			return false
		}
		id, err := p.Store.InsertClass(&store.Class{
			FileID:        fileID,
			Name:          d.name,
			Kind:          d.kind,
			WidgetKind:    d.widgetKind,
			FrameworkKind: d.frameworkKind,
		})
		if err != nil {
			summary.SkippedRecords++
			slog.Warn("pipeline.class.err", "class", d.name, "err", err)
			return false
		}
		d.id = id
		p.names.addType(d.name, id)
		summary.Types++
		decls = append(decls, d)
		return false
	})
	return decls
}

// extractTypeDecl reads name, kind, and inheritance clauses from a type
// declaration node. Returns nil for declarations without a name.
func (p *Pipeline) extractTypeDecl(node *tree_sitter.Node, source []byte) *typeDecl {
	d := &typeDecl{node: node}

	switch node.Kind() {
	case "enum_declaration":
		d.kind = "enum"
	case "mixin_declaration":
		d.kind = "mixin"
	default:
		d.kind = "class"
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = findChildByKind(node, "identifier")
	}
	if nameNode == nil {
		nameNode = findChildByKind(node, "type_identifier")
	}
	if nameNode == nil {
		return nil
	}
	d.name = parser.NodeText(nameNode, source)
	if d.name == "" {
		return nil
	}

	// The superclass clause holds the extends target and, when present,
	// the with-mixins. Generic arguments parse as a separate sibling, so
	// the first type_identifier is already the bare base name.
	if sc := findChildByKind(node, "superclass"); sc != nil {
		if t := findChildByKind(sc, "type_identifier"); t != nil {
			d.extends = parser.NodeText(t, source)
		}
		if mx := findChildByKind(sc, "mixins"); mx != nil {
			d.mixins = collectTypeNames(mx, source)
		}
	}
	if ifs := findChildByKind(node, "interfaces"); ifs != nil {
		d.implements = collectTypeNames(ifs, source)
	}

	if d.kind == "class" {
		switch {
		case hasChildToken(node, "abstract"):
			d.kind = "abstract"
		case p.implementsMarker(d.implements):
			d.kind = "interface"
		}
	}

	if d.extends != "" {
		if bucket, ok := p.Config.Analyzer.FrameworkBases[d.extends]; ok {
			d.widgetKind = bucket
			d.frameworkKind = d.extends
		}
	}
	return d
}

// implementsMarker reports whether any implemented interface is one of
// the configured interface-marker types.
func (p *Pipeline) implementsMarker(names []string) bool {
	if len(names) == 0 || len(p.Config.Analyzer.InterfaceMarkers) == 0 {
		return false
	}
	markers := toSet(p.Config.Analyzer.InterfaceMarkers)
	for _, n := range names {
		if markers[n] {
			return true
		}
	}
	return false
}

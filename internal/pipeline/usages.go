package pipeline

import (
	"log/slog"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/PML54/pmltools/internal/parser"
	"github.com/PML54/pmltools/internal/store"
)

// usagePass records the cross-references found inside one type
// declaration: the declared inheritance clauses, then every call site,
// construction site, and bare type mention in the body. A name that
// resolves to nothing recorded so far is dropped silently; only
// resolved references become rows.
func (p *Pipeline) usagePass(d *typeDecl, source []byte, fileID int64, summary *RunSummary) {
	p.recordRelations(d, fileID, summary)

	body := declBody(d.node)
	if body == nil {
		return
	}

	parser.Walk(body, func(node *tree_sitter.Node) bool {
		switch node.Kind() {
		case "selector":
			if findChildByKind(node, "argument_part") != nil {
				p.recordCallSite(node, d, fileID, source, summary)
				// Descend: arguments may hold nested calls and mentions.
				return true
			}
			if nextIsCallSelector(node) {
				// This selector names the callee of the call that
				// follows; the call site records it.
				return false
			}
			return true

		case "identifier", "type_identifier":
			p.recordMention(node, d, fileID, source, summary)
			return false

		case "new_expression", "const_object_expression":
			p.recordConstruction(node, d, fileID, source, summary)
			return true
		}
		return true
	})
}

// recordRelations stores one class_relations row per inheritance clause
// target, by name, resolved or not. When the target name resolves to a
// recorded type, a usage reference is stored as well.
func (p *Pipeline) recordRelations(d *typeDecl, fileID int64, summary *RunSummary) {
	record := func(name, relationType, usageType string) {
		if name == "" {
			return
		}
		if _, err := p.Store.InsertClassRelation(&store.ClassRelation{
			ClassID:      d.id,
			RelatedName:  name,
			RelationType: relationType,
		}); err != nil {
			summary.SkippedRecords++
			slog.Warn("pipeline.relation.err", "class", d.name, "related", name, "err", err)
			return
		}
		targetID, ok := p.names.resolveType(name)
		if !ok || targetID == d.id {
			return
		}
		if _, err := p.Store.InsertClassUsage(&store.ClassUsage{
			ReferencedClassID: targetID,
			SourceFileID:      fileID,
			SourceClassID:     d.id,
			UsageType:         usageType,
		}); err != nil {
			summary.SkippedRecords++
			slog.Warn("pipeline.usage.err", "class", d.name, "related", name, "err", err)
			return
		}
		summary.TypeRefs++
	}

	record(d.extends, "extends", "extension")
	for _, name := range d.implements {
		record(name, "implements", "implementation")
	}
	for _, name := range d.mixins {
		record(name, "with", "usage")
	}
}

// recordCallSite resolves the callee of an argument-bearing selector.
// Methods win over types: a matching method means an invocation, a
// matching type means a constructor call.
func (p *Pipeline) recordCallSite(call *tree_sitter.Node, d *typeDecl, fileID int64, source []byte, summary *RunSummary) {
	name := callCalleeName(call, source)
	if name == "" || dartKeywords[name] {
		return
	}
	methodID := enclosingMethodID(call, d.members)

	if targetID, ok := p.names.resolveMethod(name); ok {
		if targetID == methodID {
			return
		}
		if _, err := p.Store.InsertMethodUsage(&store.MethodUsage{
			ReferencedMethodID: targetID,
			SourceFileID:       fileID,
			SourceClassID:      d.id,
			SourceMethodID:     methodID,
			IsDirectCall:       true,
		}); err != nil {
			summary.SkippedRecords++
			slog.Warn("pipeline.usage.err", "class", d.name, "callee", name, "err", err)
			return
		}
		summary.MethodRefs++
		return
	}

	if targetID, ok := p.names.resolveType(name); ok && targetID != d.id {
		if _, err := p.Store.InsertClassUsage(&store.ClassUsage{
			ReferencedClassID: targetID,
			SourceFileID:      fileID,
			SourceClassID:     d.id,
			SourceMethodID:    methodID,
			UsageType:         "creation",
		}); err != nil {
			summary.SkippedRecords++
			slog.Warn("pipeline.usage.err", "class", d.name, "callee", name, "err", err)
			return
		}
		summary.TypeRefs++
	}
}

// recordMention resolves a free-standing identifier. Types win over
// methods: a matching type is a mention (annotation, field type,
// static access), a matching method is an indirect reference such as a
// tear-off or callback.
func (p *Pipeline) recordMention(node *tree_sitter.Node, d *typeDecl, fileID int64, source []byte, summary *RunSummary) {
	if isDefinitionName(node) || isConstructionTypeName(node) || nextIsCallSelector(node) {
		return
	}
	name := parser.NodeText(node, source)
	if name == "" || name == d.name || dartKeywords[name] {
		return
	}
	methodID := enclosingMethodID(node, d.members)

	if targetID, ok := p.names.resolveType(name); ok {
		if targetID == d.id {
			return
		}
		if _, err := p.Store.InsertClassUsage(&store.ClassUsage{
			ReferencedClassID: targetID,
			SourceFileID:      fileID,
			SourceClassID:     d.id,
			SourceMethodID:    methodID,
			UsageType:         "usage",
		}); err != nil {
			summary.SkippedRecords++
			slog.Warn("pipeline.usage.err", "class", d.name, "mention", name, "err", err)
			return
		}
		summary.TypeRefs++
		return
	}

	if targetID, ok := p.names.resolveMethod(name); ok {
		if targetID == methodID {
			return
		}
		if _, err := p.Store.InsertMethodUsage(&store.MethodUsage{
			ReferencedMethodID: targetID,
			SourceFileID:       fileID,
			SourceClassID:      d.id,
			SourceMethodID:     methodID,
			IsDirectCall:       false,
		}); err != nil {
			summary.SkippedRecords++
			slog.Warn("pipeline.usage.err", "class", d.name, "mention", name, "err", err)
			return
		}
		summary.MethodRefs++
	}
}

// recordConstruction handles explicit new/const object expressions.
func (p *Pipeline) recordConstruction(node *tree_sitter.Node, d *typeDecl, fileID int64, source []byte, summary *RunSummary) {
	var name string
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Kind() == "type_identifier" || child.Kind() == "identifier" {
			name = parser.NodeText(child, source)
			break
		}
	}
	if name == "" || name == d.name {
		return
	}
	targetID, ok := p.names.resolveType(name)
	if !ok || targetID == d.id {
		return
	}
	if _, err := p.Store.InsertClassUsage(&store.ClassUsage{
		ReferencedClassID: targetID,
		SourceFileID:      fileID,
		SourceClassID:     d.id,
		SourceMethodID:    enclosingMethodID(node, d.members),
		UsageType:         "creation",
	}); err != nil {
		summary.SkippedRecords++
		slog.Warn("pipeline.usage.err", "class", d.name, "constructed", name, "err", err)
		return
	}
	summary.TypeRefs++
}

// callCalleeName extracts the name invoked by an argument-bearing
// selector from its preceding sibling in the selector chain. Chained
// results (the value returned by another call) have no resolvable name.
func callCalleeName(call *tree_sitter.Node, source []byte) string {
	prev := call.PrevNamedSibling()
	if prev == nil {
		return ""
	}
	switch prev.Kind() {
	case "identifier", "type_identifier":
		return parser.NodeText(prev, source)
	case "selector":
		if findChildByKind(prev, "argument_part") != nil {
			return ""
		}
		for _, kind := range []string{"unconditional_assignable_selector", "conditional_assignable_selector"} {
			sel := findChildByKind(prev, kind)
			if sel == nil {
				continue
			}
			// Only the dot forms name a member; index selectors do not.
			if !hasChildToken(sel, ".") && !hasChildToken(sel, "?.") {
				continue
			}
			if id := findChildByKind(sel, "identifier"); id != nil {
				return parser.NodeText(id, source)
			}
		}
	}
	return ""
}

// nextIsCallSelector reports whether the following sibling invokes the
// value this node names, making this node the callee rather than a
// free-standing reference.
func nextIsCallSelector(node *tree_sitter.Node) bool {
	next := node.NextNamedSibling()
	return next != nil && next.Kind() == "selector" && findChildByKind(next, "argument_part") != nil
}

// isDefinitionName reports whether the node is the name being declared
// rather than a reference to something else.
func isDefinitionName(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	nameChild := parent.ChildByFieldName("name")
	if nameChild == nil || nameChild.StartByte() != node.StartByte() || nameChild.EndByte() != node.EndByte() {
		return false
	}
	switch parent.Kind() {
	case "class_definition", "enum_declaration", "mixin_declaration",
		"function_signature", "getter_signature", "setter_signature",
		"enum_constant":
		return true
	}
	return false
}

// isConstructionTypeName reports whether the node is the type operand
// of an explicit new/const expression, which recordConstruction already
// handles.
func isConstructionTypeName(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	return parent.Kind() == "new_expression" || parent.Kind() == "const_object_expression"
}

// enclosingMethodID finds the recorded method whose body spans the
// node, zero when the node sits outside every recorded body (field
// initializers, dropped duplicates).
func enclosingMethodID(node *tree_sitter.Node, members []memberRef) int64 {
	start := node.StartByte()
	for _, m := range members {
		if m.body != nil && start >= m.body.StartByte() && start < m.body.EndByte() {
			return m.id
		}
	}
	return 0
}

// dartKeywords filters identifiers that can never name a recorded
// entity: reserved words, builtin types, and ubiquitous core calls
// that would otherwise resolve against user methods by accident.
var dartKeywords = map[string]bool{
	"abstract": true, "as": true, "assert": true, "async": true,
	"await": true, "break": true, "case": true, "catch": true,
	"class": true, "const": true, "continue": true, "covariant": true,
	"default": true, "deferred": true, "do": true, "dynamic": true,
	"else": true, "enum": true, "export": true, "extends": true,
	"extension": true, "external": true, "factory": true, "false": true,
	"final": true, "finally": true, "for": true, "get": true,
	"hide": true, "if": true, "implements": true, "import": true,
	"in": true, "is": true, "late": true, "library": true,
	"mixin": true, "new": true, "null": true, "on": true,
	"operator": true, "part": true, "required": true, "rethrow": true,
	"return": true, "set": true, "show": true, "static": true,
	"super": true, "switch": true, "sync": true, "this": true,
	"throw": true, "true": true, "try": true, "typedef": true,
	"var": true, "void": true, "while": true, "with": true,
	"yield": true,

	"bool": true, "double": true, "int": true, "num": true,
	"String": true, "List": true, "Map": true, "Set": true,
	"Iterable": true, "Future": true, "Stream": true, "Duration": true,
	"DateTime": true, "Object": true, "Function": true, "Never": true,
	"Symbol": true, "Type": true, "RegExp": true, "Uri": true,

	"print": true, "identical": true, "toString": true, "hashCode": true,
	"runtimeType": true, "noSuchMethod": true,
}

package pipeline

import (
	"errors"
	"log/slog"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/PML54/pmltools/internal/parser"
	"github.com/PML54/pmltools/internal/store"
)

// frameworkOverride describes the method a framework base class obliges
// its subclasses to implement. The override body is pure boilerplate
// from a metrics standpoint, so the record is synthesized with baseline
// complexity and a fixed signature.
type frameworkOverride struct {
	Name       string
	ReturnType string
	ParamCount int
}

var frameworkOverrides = map[string]frameworkOverride{
	"stateless": {Name: "build", ReturnType: "Widget", ParamCount: 1},
	"stateful":  {Name: "createState", ReturnType: "State", ParamCount: 0},
	"state":     {Name: "build", ReturnType: "Widget", ParamCount: 1},
}

// methodInfo is the extracted shape of one method-like member.
type methodInfo struct {
	name          string
	returnType    string
	paramCount    int
	isAsync       bool
	isStatic      bool
	hasAnnotation bool
	body          *tree_sitter.Node
}

// methodPass records every method-shaped member of one type. The
// mandated framework override, when the type extends a configured base,
// is stored synthetically; a duplicate method name within the type is
// dropped with a warning.
func (p *Pipeline) methodPass(d *typeDecl, source []byte, summary *RunSummary) {
	override, hasOverride := frameworkOverrides[d.widgetKind]
	overrideSeen := false

	body := declBody(d.node)
	if body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			member := body.NamedChild(i)
			if member == nil {
				continue
			}
			info := extractMethodInfo(member, source)
			if info == nil {
				continue
			}

			if hasOverride && info.name == override.Name {
				if id := p.insertOverride(d, override, info.hasAnnotation, summary); id != 0 {
					d.members = append(d.members, memberRef{id: id, body: info.body})
					overrideSeen = true
				}
				continue
			}

			cyclomatic, cognitive := methodComplexity(info.body)
			id, err := p.Store.InsertMethod(&store.Method{
				ClassID:       d.id,
				Name:          info.name,
				ReturnType:    info.returnType,
				ParamCount:    info.paramCount,
				Cyclomatic:    cyclomatic,
				Cognitive:     cognitive,
				IsAsync:       info.isAsync,
				IsStatic:      info.isStatic,
				HasAnnotation: info.hasAnnotation,
			})
			if err != nil {
				summary.SkippedRecords++
				if errors.Is(err, store.ErrDuplicateMethod) {
					slog.Warn("pipeline.method.duplicate", "class", d.name, "method", info.name)
				} else {
					slog.Warn("pipeline.method.err", "class", d.name, "method", info.name, "err", err)
				}
				continue
			}
			p.names.addMethod(info.name, id)
			summary.Methods++
			d.members = append(d.members, memberRef{id: id, body: info.body})
		}
	}

	// The mandated override must exist for call sites to resolve even
	// when the subclass does not spell it out.
	if hasOverride && !overrideSeen {
		_ = p.insertOverride(d, override, false, summary)
	}
}

func (p *Pipeline) insertOverride(d *typeDecl, o frameworkOverride, annotated bool, summary *RunSummary) int64 {
	id, err := p.Store.InsertMethod(&store.Method{
		ClassID:       d.id,
		Name:          o.Name,
		ReturnType:    o.ReturnType,
		ParamCount:    o.ParamCount,
		Cyclomatic:    1,
		Cognitive:     0,
		HasAnnotation: annotated,
	})
	if err != nil {
		summary.SkippedRecords++
		slog.Warn("pipeline.method.err", "class", d.name, "method", o.Name, "err", err)
		return 0
	}
	p.names.addMethod(o.Name, id)
	summary.Methods++
	return id
}

// extractMethodInfo reads the signature of one class-body member.
// Returns nil for members that are not method-shaped (fields,
// constructors, enum constants).
func extractMethodInfo(member *tree_sitter.Node, source []byte) *methodInfo {
	sig := innerSignature(member)
	if sig == nil {
		return nil
	}

	nameNode := sig.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = findChildByKind(sig, "identifier")
	}
	if nameNode == nil {
		return nil
	}

	info := &methodInfo{
		name:          parser.NodeText(nameNode, source),
		returnType:    signatureReturnType(sig, nameNode, source),
		paramCount:    countParams(sig),
		isStatic:      hasChildToken(member, "static") || hasChildToken(sig, "static"),
		hasAnnotation: memberHasAnnotation(member),
	}
	if info.name == "" {
		return nil
	}

	// The body, when present, is the signature's next named sibling.
	// Bodyless members (abstract methods) keep a nil body and score the
	// complexity baseline.
	if next := member.NextNamedSibling(); next != nil && next.Kind() == "function_body" {
		info.body = next
	}
	info.isAsync = bodyIsAsync(info.body, source)
	return info
}

// innerSignature unwraps a class-body member down to its function,
// getter, or setter signature. Constructors and plain field
// declarations yield nil.
func innerSignature(member *tree_sitter.Node) *tree_sitter.Node {
	switch member.Kind() {
	case "function_signature", "getter_signature", "setter_signature":
		return member
	case "method_signature", "declaration":
		for _, kind := range []string{"function_signature", "getter_signature", "setter_signature"} {
			if sig := findChildByKind(member, kind); sig != nil {
				return sig
			}
		}
	}
	return nil
}

// signatureReturnType derives the declared return type from the text
// preceding the method name, skipping modifier keywords. Methods
// without an explicit type report "dynamic".
func signatureReturnType(sig, nameNode *tree_sitter.Node, source []byte) string {
	prefix := string(source[sig.StartByte():nameNode.StartByte()])
	fields := strings.Fields(prefix)
	for i := len(fields) - 1; i >= 0; i-- {
		switch fields[i] {
		case "static", "get", "set", "external", "covariant", "late", "final":
			continue
		}
		return stripGenerics(fields[i])
	}
	return "dynamic"
}

// countParams counts declared formal parameters, including optional and
// named ones. Parameters of function-typed parameters do not count.
func countParams(sig *tree_sitter.Node) int {
	params := findChildByKind(sig, "formal_parameter_list")
	if params == nil {
		return 0
	}
	count := 0
	parser.Walk(params, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "formal_parameter", "default_formal_parameter":
			count++
			return false
		}
		return true
	})
	return count
}

// memberHasAnnotation reports whether the member carries metadata,
// either as children of the member node or as preceding siblings in the
// class body.
func memberHasAnnotation(member *tree_sitter.Node) bool {
	if findChildByKind(member, "annotation") != nil || findChildByKind(member, "marker_annotation") != nil {
		return true
	}
	for prev := member.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch prev.Kind() {
		case "annotation", "marker_annotation":
			return true
		default:
			return false
		}
	}
	return false
}

// bodyIsAsync reports whether a function body carries the async marker
// before its block or expression form.
func bodyIsAsync(body *tree_sitter.Node, source []byte) bool {
	if body == nil {
		return false
	}
	if hasChildToken(body, "async") || hasChildToken(body, "async*") {
		return true
	}
	text := parser.NodeText(body, source)
	i := strings.IndexAny(text, "{=")
	if i < 0 {
		i = len(text)
	}
	return strings.Contains(text[:i], "async")
}

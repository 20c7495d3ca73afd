package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PML54/pmltools/internal/store"
)

// synthesizeDocumentation writes one generated description per stored
// class, derived from its recorded shape. The sentences feed the
// exported documentation, they are summaries rather than prose docs.
func (p *Pipeline) synthesizeDocumentation() error {
	classes, err := p.Store.Classes()
	if err != nil {
		return fmt.Errorf("load classes: %w", err)
	}
	generatedAt := store.Now()
	for _, c := range classes {
		methods, err := p.Store.MethodsByClass(c.ID)
		if err != nil {
			return fmt.Errorf("methods of %s: %w", c.Name, err)
		}
		if err := p.Store.UpsertClassDocumentation(c.ID, describeClass(c, methods), generatedAt); err != nil {
			return fmt.Errorf("document %s: %w", c.Name, err)
		}
	}
	slog.Info("docsynth.done", "classes", len(classes))
	return nil
}

// describeClass renders one class record as a sentence.
func describeClass(c *store.Class, methods []*store.Method) string {
	var b strings.Builder

	switch {
	case c.WidgetKind == "stateless":
		b.WriteString("Stateless widget")
	case c.WidgetKind == "stateful":
		b.WriteString("Stateful widget")
	case c.WidgetKind == "state":
		b.WriteString("State object")
	case c.Kind == "abstract":
		b.WriteString("Abstract class")
	case c.Kind == "interface":
		b.WriteString("Interface")
	case c.Kind == "enum":
		b.WriteString("Enumeration")
	case c.Kind == "mixin":
		b.WriteString("Mixin")
	default:
		b.WriteString("Class")
	}
	fmt.Fprintf(&b, " %s", c.Name)

	if c.FrameworkKind != "" {
		fmt.Fprintf(&b, " extending %s", c.FrameworkKind)
	}

	switch len(methods) {
	case 0:
	case 1:
		fmt.Fprintf(&b, " with 1 method (%s)", methods[0].Name)
	default:
		names := make([]string, 0, 5)
		for _, m := range methods {
			if len(names) == 5 {
				names = append(names, "...")
				break
			}
			names = append(names, m.Name)
		}
		fmt.Fprintf(&b, " with %d methods (%s)", len(methods), strings.Join(names, ", "))
	}

	if !c.IsUsed {
		b.WriteString("; no recorded usages")
	}
	b.WriteString(".")
	return b.String()
}

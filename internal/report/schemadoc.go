package report

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PML54/pmltools/internal/config"
	"github.com/PML54/pmltools/internal/store"
)

// tableDescriptions documents each analysis table. Tables added to the
// schema need a line here or the export falls back to a placeholder.
var tableDescriptions = map[string]string{
	"source_files":            "Stores Dart source file information",
	"file_imports":            "Records deduplicated import statements with origin classification",
	"file_import_relations":   "Maps files to their imports",
	"classes":                 "Defines classes, interfaces, mixins and enums",
	"class_relations":         "Declared extends, implements and with clauses",
	"class_methods":           "Contains methods and their metrics",
	"class_documentations":    "Auto-generated class documentation",
	"class_usage_references":  "Track class usage and references",
	"method_usage_references": "Track method calls and usage",
}

// schemaRelation documents one foreign-key relation between tables.
type schemaRelation struct {
	sourceTable  string
	sourceColumn string
	targetTable  string
	targetColumn string
	relType      string
	description  string
}

var schemaRelations = []schemaRelation{
	{"file_import_relations", "file_id", "source_files", "file_id", "N:1", "File imports relationship"},
	{"file_import_relations", "import_id", "file_imports", "import_id", "N:1", "Import shared across files"},
	{"classes", "file_id", "source_files", "file_id", "N:1", "Classes defined in file"},
	{"class_relations", "class_id", "classes", "class_id", "N:1", "Inheritance clauses of class"},
	{"class_methods", "class_id", "classes", "class_id", "N:1", "Methods belonging to class"},
	{"class_usage_references", "referenced_class_id", "classes", "class_id", "N:1", "Class usage tracking"},
	{"method_usage_references", "referenced_method_id", "class_methods", "method_id", "N:1", "Method usage tracking"},
	{"class_documentations", "class_id", "classes", "class_id", "1:1", "Generated documentation per class"},
}

// extractionNote documents one extraction concept for readers of the
// schema who have not seen the pipeline.
type extractionNote struct {
	concept     string
	description string
	usage       string
}

var extractionNotes = []extractionNote{
	{"Syntax Tree Parsing", "Parses Dart source into a tree-sitter syntax tree", "Class and method extraction"},
	{"Multi-Pass Walks", "Separate tree walks for imports, types, methods and usages", "Definition and usage analysis"},
	{"Code Metrics", "Cyclomatic and cognitive complexity per method", "Code quality assessment"},
	{"Usage Analysis", "Tracks class and method references across files", "Dead code detection"},
}

// WriteSchemaDoc exports the database schema documentation as markdown
// under dir: every table with its description and CREATE statement, the
// foreign-key relations, the extraction notes and a per-class summary
// of the indexed code.
func WriteSchemaDoc(s *store.Store, cfg *config.Config, dir string) error {
	tables, err := s.TablesInfo()
	if err != nil {
		return err
	}
	structure, err := s.CodeStructure()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Analysis Database Schema\n\n", cfg.App.Name)
	fmt.Fprintf(&b, "Generated on: %s\n\n", timestamp())

	b.WriteString("## Tables\n")
	for _, t := range tables {
		desc, ok := tableDescriptions[t.Name]
		if !ok {
			desc = "No description recorded"
		}
		fmt.Fprintf(&b, "\n### %s\n\n%s.\n\n", t.Name, desc)
		fmt.Fprintf(&b, "```sql\n%s\n```\n", strings.TrimSpace(t.CreateStatement))
	}

	b.WriteString("\n## Relations\n\n")
	b.WriteString("| Source table | Column | Target table | Column | Type | Description |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range schemaRelations {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			r.sourceTable, r.sourceColumn, r.targetTable, r.targetColumn, r.relType, r.description)
	}

	b.WriteString("\n## Extraction Notes\n\n")
	b.WriteString("| Concept | Description | Used for |\n")
	b.WriteString("|---|---|---|\n")
	for _, n := range extractionNotes {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", n.concept, n.description, n.usage)
	}

	b.WriteString("\n## Code Structure\n\n")
	b.WriteString("| File | Class | Type | Methods |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, row := range structure {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			row.FilePath, row.ClassName, row.ClassType, row.Methods)
	}

	if err := writeDoc(dir, cfg.SchemaDocFile(), b.String()); err != nil {
		return err
	}
	slog.Info("schemadoc.done", "file", cfg.SchemaDocFile(), "tables", len(tables))
	return nil
}

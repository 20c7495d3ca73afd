package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PML54/pmltools/internal/config"
	"github.com/PML54/pmltools/internal/discover"
	"github.com/PML54/pmltools/internal/store"
)

// docEntry is one extracted documentation block, keyed by its
// lib-relative path.
type docEntry struct {
	relPath string
	text    string
}

// docPattern matches a doc-comment block between <tag> and </tag>
// markers, e.g. ///<pmldoc> ... ///</pmldoc>.
func docPattern(tag string) *regexp.Regexp {
	t := regexp.QuoteMeta(tag)
	return regexp.MustCompile(`(?s)///\s*<` + t + `>(.*?)///\s*</` + t + `>`)
}

// cleanDocBlock strips the /// comment markers the block carries inside
// a Dart doc comment, keeping the text itself.
func cleanDocBlock(block string) string {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "///")
		lines[i] = strings.TrimPrefix(line, " ")
	}
	return strings.Join(lines, "\n")
}

// WriteDocDigest scans the source tree for tagged doc-comment blocks
// and writes them as one markdown summary under dir, grouped by folder.
// Generated class documentation from the store is appended as its own
// section.
func WriteDocDigest(ctx context.Context, s *store.Store, cfg *config.Config, projectRoot, dir string) error {
	files, err := discover.Discover(ctx, projectRoot, cfg.App.LibDir, &discover.Options{
		ExcludedDirs:  cfg.Analyzer.Excluded.Dirs,
		ExcludedFiles: cfg.Analyzer.Excluded.Files,
	})
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	re := docPattern(cfg.Output.DocTag)
	libPrefix := filepath.ToSlash(cfg.App.LibDir) + "/"

	var entries []docEntry
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		source, err := os.ReadFile(f.Path)
		if err != nil {
			slog.Warn("docdigest.file.err", "path", f.RelPath, "err", err)
			continue
		}
		m := re.FindSubmatch(source)
		if m == nil {
			continue
		}
		entries = append(entries, docEntry{
			relPath: strings.TrimPrefix(f.RelPath, libPrefix),
			text:    cleanDocBlock(string(m[1])),
		})
	}

	classDocs, err := s.ClassDocumentations()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Documentation Summary\n", cfg.App.Name)
	fmt.Fprintf(&b, "Generated on: %s\n\n", timestamp())
	b.WriteString("## Project Overview\n")
	b.WriteString("This document provides an overview of the application structure and components.\n")
	b.WriteString("Documentation excludes:\n")
	fmt.Fprintf(&b, "- Directories: %s\n", strings.Join(cfg.Analyzer.Excluded.Dirs, ", "))
	fmt.Fprintf(&b, "- Files: %s\n\n", strings.Join(cfg.Analyzer.Excluded.Files, ", "))
	b.WriteString("## Components Documentation\n")

	folders := make(map[string][]docEntry)
	for _, e := range entries {
		folder := path.Dir(e.relPath)
		if folder == "." {
			folder = ""
		}
		folders[folder] = append(folders[folder], e)
	}
	names := make([]string, 0, len(folders))
	for folder := range folders {
		names = append(names, folder)
	}
	sort.Strings(names)

	for _, folder := range names {
		title := folder
		if title == "" {
			title = "Root"
		}
		fmt.Fprintf(&b, "\n### %s\n\n", title)
		for _, e := range folders[folder] {
			fmt.Fprintf(&b, "#### %s\n%s\n\n", path.Base(e.relPath), e.text)
		}
	}

	if len(classDocs) > 0 {
		b.WriteString("\n## Generated Class Summaries\n")
		lastFile := ""
		for _, d := range classDocs {
			if d.FilePath != lastFile {
				fmt.Fprintf(&b, "\n### %s\n\n", d.FilePath)
				lastFile = d.FilePath
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", d.ClassName, d.Documentation)
		}
	}

	if err := writeDoc(dir, cfg.DocumentationFile(), b.String()); err != nil {
		return err
	}
	slog.Info("docdigest.done", "file", cfg.DocumentationFile(),
		"tagged_files", len(entries), "class_summaries", len(classDocs))
	return nil
}

// classDiagramCode renders the recorded inheritance clauses as a
// mermaid classDiagram body.
func classDiagramCode(relations []*store.ClassRelationInfo) string {
	var b strings.Builder
	b.WriteString("classDiagram\n")
	for _, r := range relations {
		switch r.RelationType {
		case "extends":
			fmt.Fprintf(&b, "    %s <|-- %s\n", r.RelatedName, r.ClassName)
		case "implements":
			fmt.Fprintf(&b, "    %s <|.. %s\n", r.RelatedName, r.ClassName)
		case "with":
			fmt.Fprintf(&b, "    %s <.. %s : with\n", r.RelatedName, r.ClassName)
		}
	}
	return b.String()
}

// WriteClassDiagram exports the class relations as a mermaid diagram
// in a markdown file under dir.
func WriteClassDiagram(s *store.Store, cfg *config.Config, dir string) error {
	relations, err := s.ClassRelations()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Class Relations\n\n", cfg.App.Name)
	fmt.Fprintf(&b, "Generated on: %s\n\n", timestamp())
	b.WriteString("```mermaid\n")
	b.WriteString(classDiagramCode(relations))
	b.WriteString("```\n")

	if err := writeDoc(dir, cfg.ClassDiagramFile(), b.String()); err != nil {
		return err
	}
	slog.Info("diagram.done", "file", cfg.ClassDiagramFile(), "relations", len(relations))
	return nil
}

// diagramHTML wraps a mermaid diagram in a standalone page rendered via
// the mermaid CDN script.
func diagramHTML(appName, mermaidCode string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <title>%s - Mermaid Diagram</title>
  <script src="https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js"></script>
  <script>
    mermaid.initialize({
      startOnLoad: true,
      theme: 'base',
      themeVariables: {
        fontSize: '16px',
        fontFamily: 'arial',
        nodeBkg: 'transparent',
        mainBkg: 'transparent',
        edgeLabelBackground: 'transparent',
        lineColor: 'black'
      }
    });
  </script>
  <style>
    body { margin: 20px; font-family: Arial, sans-serif; }
    .mermaid { display: flex; justify-content: center; align-items: center; min-height: 80vh; }
  </style>
</head>
<body>
  <div class="mermaid">
%s
  </div>
</body>
</html>
`, appName, mermaidCode)
}

// WriteDiagramHTML writes the class diagram as a self-contained HTML
// page under dir for viewing in a browser, and returns its path.
func WriteDiagramHTML(s *store.Store, cfg *config.Config, dir string) (string, error) {
	relations, err := s.ClassRelations()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	name := fmt.Sprintf("mermaid_%s.html", cfg.App.Name)
	p := filepath.Join(dir, name)
	content := diagramHTML(cfg.App.Name, classDiagramCode(relations))
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	slog.Info("diagram.html", "file", name)
	return p, nil
}

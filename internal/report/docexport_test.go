package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PML54/pmltools/internal/store"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func TestCleanDocBlock(t *testing.T) {
	block := "\n/// User model.\n/// Holds profile data.\n"
	want := "User model.\nHolds profile data."
	if got := cleanDocBlock(block); got != want {
		t.Errorf("cleanDocBlock = %q, want %q", got, want)
	}

	// Blocks written without comment markers pass through unchanged.
	if got := cleanDocBlock("\nPlain text.\n"); got != "Plain text." {
		t.Errorf("cleanDocBlock plain = %q", got)
	}
}

func TestDocPattern(t *testing.T) {
	re := docPattern("pmldoc")
	source := "///<pmldoc>\n/// Entry point.\n///</pmldoc>\nvoid main() {}\n"
	m := re.FindStringSubmatch(source)
	if m == nil {
		t.Fatal("pattern did not match tagged block")
	}
	if !strings.Contains(m[1], "Entry point.") {
		t.Errorf("captured %q", m[1])
	}
	if re.MatchString("/// <other> text </other>") {
		t.Error("pattern matched foreign tag")
	}
}

func TestWriteDocDigest(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib/main.dart": "///<pmldoc>\n/// App entry point.\n///</pmldoc>\nvoid main() {}\n",
		"lib/models/user.dart": "///<pmldoc>\n/// User model.\n/// Holds profile data.\n///</pmldoc>\n" +
			"class User {}\n",
		"lib/untagged.dart": "class Plain {}\n",
		"lib/skip.g.dart":   "///<pmldoc>\n/// Generated, excluded.\n///</pmldoc>\n",
	})

	s := mustStore(t)
	fid := insertFile(t, s, "lib/main.dart")
	cid := insertClass(t, s, &store.Class{FileID: fid, Name: "App", Kind: "class"})
	if err := s.UpsertClassDocumentation(cid,
		"Class App with 0 methods; no recorded usages.", store.Now()); err != nil {
		t.Fatalf("upsert documentation: %v", err)
	}

	cfg := testConfig()
	dir := t.TempDir()
	if err := WriteDocDigest(context.Background(), s, cfg, root, dir); err != nil {
		t.Fatalf("WriteDocDigest: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, cfg.DocumentationFile()))
	if err != nil {
		t.Fatalf("read digest: %v", err)
	}
	digest := string(raw)

	if !strings.HasPrefix(digest, "# demo Documentation Summary") {
		t.Errorf("unexpected digest header:\n%s", digest[:min(len(digest), 120)])
	}

	// Root-level files come first, then folders alphabetically.
	rootIdx := strings.Index(digest, "### Root")
	modelsIdx := strings.Index(digest, "### models")
	if rootIdx < 0 || modelsIdx < 0 || rootIdx > modelsIdx {
		t.Errorf("folder sections out of order: root=%d models=%d", rootIdx, modelsIdx)
	}

	if !strings.Contains(digest, "#### main.dart\nApp entry point.") {
		t.Error("main.dart block missing")
	}
	if !strings.Contains(digest, "#### user.dart\nUser model.\nHolds profile data.") {
		t.Error("user.dart block missing or markers not stripped")
	}
	if strings.Contains(digest, "untagged") {
		t.Error("file without tags listed in digest")
	}
	if strings.Contains(digest, "Generated, excluded.") {
		t.Error("excluded file leaked into digest")
	}

	if !strings.Contains(digest, "## Generated Class Summaries") {
		t.Error("class summaries section missing")
	}
	if !strings.Contains(digest, "- **App**: Class App with 0 methods; no recorded usages.") {
		t.Error("class summary row missing")
	}
}

func TestWriteDocDigestNoTags(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib/plain.dart": "class Plain {}\n",
	})
	s := mustStore(t)
	cfg := testConfig()
	dir := t.TempDir()

	if err := WriteDocDigest(context.Background(), s, cfg, root, dir); err != nil {
		t.Fatalf("WriteDocDigest: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, cfg.DocumentationFile()))
	if err != nil {
		t.Fatalf("read digest: %v", err)
	}
	digest := string(raw)
	if !strings.Contains(digest, "## Components Documentation") {
		t.Error("digest skeleton missing")
	}
	if strings.Contains(digest, "## Generated Class Summaries") {
		t.Error("summaries section written for empty store")
	}
}

func seedRelations(t *testing.T, s *store.Store) {
	t.Helper()
	fid := insertFile(t, s, "lib/shapes.dart")
	circle := insertClass(t, s, &store.Class{FileID: fid, Name: "Circle", Kind: "class"})
	for _, rel := range []store.ClassRelation{
		{ClassID: circle, RelatedName: "Base", RelationType: "extends"},
		{ClassID: circle, RelatedName: "Drawable", RelationType: "implements"},
		{ClassID: circle, RelatedName: "Logging", RelationType: "with"},
	} {
		if _, err := s.InsertClassRelation(&rel); err != nil {
			t.Fatalf("insert relation: %v", err)
		}
	}
}

func TestWriteClassDiagram(t *testing.T) {
	s := mustStore(t)
	seedRelations(t, s)
	cfg := testConfig()
	dir := t.TempDir()

	if err := WriteClassDiagram(s, cfg, dir); err != nil {
		t.Fatalf("WriteClassDiagram: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, cfg.ClassDiagramFile()))
	if err != nil {
		t.Fatalf("read diagram: %v", err)
	}
	diagram := string(raw)

	if !strings.Contains(diagram, "```mermaid\nclassDiagram\n") {
		t.Error("mermaid fence missing")
	}
	for _, edge := range []string{
		"Base <|-- Circle",
		"Drawable <|.. Circle",
		"Logging <.. Circle : with",
	} {
		if !strings.Contains(diagram, edge) {
			t.Errorf("edge %q missing from diagram", edge)
		}
	}
}

func TestWriteDiagramHTML(t *testing.T) {
	s := mustStore(t)
	seedRelations(t, s)
	cfg := testConfig()
	dir := t.TempDir()

	p, err := WriteDiagramHTML(s, cfg, dir)
	if err != nil {
		t.Fatalf("WriteDiagramHTML: %v", err)
	}
	if filepath.Base(p) != "mermaid_demo.html" {
		t.Errorf("html file name = %s", filepath.Base(p))
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	page := string(raw)
	if !strings.Contains(page, "mermaid.initialize") {
		t.Error("mermaid bootstrap missing")
	}
	if !strings.Contains(page, "classDiagram") || !strings.Contains(page, "Base <|-- Circle") {
		t.Error("diagram body missing")
	}
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "pml.yaml"))
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if cfg.App.LibDir != "lib" {
		t.Errorf("LibDir = %q, want lib", cfg.App.LibDir)
	}
	if !cfg.EffectiveCleanupOnStart() {
		t.Error("CleanupOnStart default should be true")
	}
	if !cfg.EffectiveConsole() {
		t.Error("Console default should be true")
	}
	if got := cfg.Analyzer.FrameworkBases["StatelessWidget"]; got != "stateless" {
		t.Errorf("FrameworkBases[StatelessWidget] = %q, want stateless", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pml.yaml")
	content := `app:
  name: minssalor
  lib_dir: lib
analyzer:
  excluded:
    dirs:
      - lib/generated
      - lib/l10n
    files:
      - .g.dart
  database:
    dir: pmltools/database
    name: analysis.db
    cleanup_on_start: false
logging:
  level: debug
  console: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "minssalor" {
		t.Errorf("Name = %q, want minssalor", cfg.App.Name)
	}
	if len(cfg.Analyzer.Excluded.Dirs) != 2 {
		t.Errorf("Excluded.Dirs = %v, want 2 entries", cfg.Analyzer.Excluded.Dirs)
	}
	if len(cfg.Analyzer.Excluded.Files) != 1 || cfg.Analyzer.Excluded.Files[0] != ".g.dart" {
		t.Errorf("Excluded.Files = %v, want [.g.dart]", cfg.Analyzer.Excluded.Files)
	}
	if cfg.EffectiveCleanupOnStart() {
		t.Error("cleanup_on_start: false should disable cleanup")
	}
	if cfg.EffectiveConsole() {
		t.Error("console: false should disable console logging")
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel())
	}
	// Sections absent from the file keep their defaults.
	if cfg.Output.DocDir != "pmltools/output/doc" {
		t.Errorf("DocDir = %q, want default", cfg.Output.DocDir)
	}
	if cfg.Output.DocTag != "pmldoc" {
		t.Errorf("DocTag = %q, want default", cfg.Output.DocTag)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pml.yaml")
	if err := os.WriteFile(path, []byte("app: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.App.Name = "minssalor"

	if got := cfg.DBPath(); got != filepath.Join("pmltools/database", "analysis.db") {
		t.Errorf("DBPath = %q", got)
	}
	if got := cfg.DocumentationFile(); got != "minssalor_documentation.md" {
		t.Errorf("DocumentationFile = %q", got)
	}
	if got := cfg.AuditFile("unused_methods"); got != "minssalor_unused_methods.csv" {
		t.Errorf("AuditFile = %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Analyzer.Database.Dir = filepath.Join(dir, "db")
	cfg.Output.DocDir = filepath.Join(dir, "doc")
	cfg.Output.ReportsDir = filepath.Join(dir, "reports")
	cfg.Output.TempDir = filepath.Join(dir, "temp")
	cfg.Logging.File = filepath.Join(dir, "logs", "analysis.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{"db", "doc", "reports", "temp", "logs"} {
		if _, err := os.Stat(filepath.Join(dir, d)); err != nil {
			t.Errorf("directory %s not created: %v", d, err)
		}
	}
}

func TestResolve(t *testing.T) {
	cfg := Default()
	abs := filepath.Join(t.TempDir(), "elsewhere")
	cfg.Output.TempDir = abs

	cfg.Resolve("/project")

	if got := cfg.Analyzer.Database.Dir; got != filepath.Join("/project", "pmltools/database") {
		t.Errorf("Database.Dir = %q", got)
	}
	if got := cfg.Output.ReportsDir; got != filepath.Join("/project", "pmltools/output/reports") {
		t.Errorf("ReportsDir = %q", got)
	}
	if got := cfg.Logging.File; got != filepath.Join("/project", "pmltools/logs/analysis.log") {
		t.Errorf("Logging.File = %q", got)
	}
	if cfg.Output.TempDir != abs {
		t.Errorf("absolute TempDir rewritten to %q", cfg.Output.TempDir)
	}
}

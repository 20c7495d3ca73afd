package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name looked up in the project root.
const DefaultFile = "pml.yaml"

// Config holds the analyzer settings loaded from pml.yaml.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig identifies the analyzed Flutter application.
type AppConfig struct {
	// Name is the application package name, used both for report file
	// naming and for classifying package:<name>/ imports as internal.
	Name string `yaml:"name"`
	// LibDir is the source root scanned for .dart files, relative to
	// the project root.
	LibDir string `yaml:"lib_dir"`
}

// AnalyzerConfig holds extraction settings.
type AnalyzerConfig struct {
	Excluded ExcludedConfig `yaml:"excluded"`
	Database DatabaseConfig `yaml:"database"`

	// InterfaceMarkers lists type names whose presence in an
	// implements-clause classifies the implementing class as an interface.
	InterfaceMarkers []string `yaml:"interface_markers"`

	// FrameworkBases maps framework base class names to the widget kind
	// recorded for types extending them (e.g. StatelessWidget: stateless).
	FrameworkBases map[string]string `yaml:"framework_bases"`
}

// ExcludedConfig lists paths skipped during discovery.
type ExcludedConfig struct {
	// Dirs are directory prefixes relative to the project root.
	Dirs []string `yaml:"dirs"`
	// Files are file name suffixes (e.g. ".g.dart").
	Files []string `yaml:"files"`
}

// DatabaseConfig locates the SQLite analysis database.
type DatabaseConfig struct {
	Dir  string `yaml:"dir"`
	Name string `yaml:"name"`
	// CleanupOnStart drops and recreates all tables before an analysis run.
	// Default: true.
	CleanupOnStart *bool `yaml:"cleanup_on_start"`
}

// OutputConfig locates generated artifacts.
type OutputConfig struct {
	DocDir     string `yaml:"doc_dir"`
	ReportsDir string `yaml:"reports_dir"`
	TempDir    string `yaml:"temp_dir"`
	// DocTag is the marker used in Dart doc comments to delimit
	// extractable documentation blocks: ///<tag> ... ///</tag>.
	DocTag string `yaml:"doc_tag"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	// Console enables logging to stderr. Default: true.
	Console *bool `yaml:"console"`
}

// Default returns the built-in configuration used when pml.yaml is absent.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:   "app",
			LibDir: "lib",
		},
		Analyzer: AnalyzerConfig{
			Excluded: ExcludedConfig{
				Dirs:  []string{"lib/generated"},
				Files: []string{".freezed.dart", ".g.dart", "_test.dart"},
			},
			Database: DatabaseConfig{
				Dir:  "pmltools/database",
				Name: "analysis.db",
			},
			FrameworkBases: map[string]string{
				"StatelessWidget": "stateless",
				"StatefulWidget":  "stateful",
				"State":           "state",
			},
		},
		Output: OutputConfig{
			DocDir:     "pmltools/output/doc",
			ReportsDir: "pmltools/output/reports",
			TempDir:    "pmltools/output/temp",
			DocTag:     "pmldoc",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "pmltools/logs/analysis.log",
		},
	}
}

// Load reads pml.yaml from the given path. A missing file yields the
// default configuration; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.App.LibDir == "" {
		return nil, fmt.Errorf("config %s: app.lib_dir must not be empty", path)
	}

	return cfg, nil
}

// EffectiveCleanupOnStart returns the configured cleanup flag,
// or the default (true) if not set.
func (c *Config) EffectiveCleanupOnStart() bool {
	if c.Analyzer.Database.CleanupOnStart != nil {
		return *c.Analyzer.Database.CleanupOnStart
	}
	return true
}

// EffectiveConsole returns the configured console logging flag,
// or the default (true) if not set.
func (c *Config) EffectiveConsole() bool {
	if c.Logging.Console != nil {
		return *c.Logging.Console
	}
	return true
}

// DBPath returns the full path to the analysis database.
func (c *Config) DBPath() string {
	return filepath.Join(c.Analyzer.Database.Dir, c.Analyzer.Database.Name)
}

// DocumentationFile is the name of the generated documentation summary.
func (c *Config) DocumentationFile() string {
	return fmt.Sprintf("%s_documentation.md", c.App.Name)
}

// SchemaDocFile is the name of the generated schema documentation.
func (c *Config) SchemaDocFile() string {
	return fmt.Sprintf("%s_schema.md", c.App.Name)
}

// ClassDiagramFile is the name of the generated class relation diagram.
func (c *Config) ClassDiagramFile() string {
	return fmt.Sprintf("%s_classes.md", c.App.Name)
}

// AuditFile returns the reports-relative name for an audit CSV section.
func (c *Config) AuditFile(section string) string {
	return fmt.Sprintf("%s_%s.csv", c.App.Name, section)
}

// LogLevel maps the configured level string to a slog.Level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Resolve rewrites the relative output, database and log paths against
// the project root. Absolute paths stay as configured. Config files
// declare paths relative to the analyzed project, so the CLI calls this
// once after Load.
func (c *Config) Resolve(root string) {
	c.Analyzer.Database.Dir = resolvePath(root, c.Analyzer.Database.Dir)
	c.Output.DocDir = resolvePath(root, c.Output.DocDir)
	c.Output.ReportsDir = resolvePath(root, c.Output.ReportsDir)
	c.Output.TempDir = resolvePath(root, c.Output.TempDir)
	c.Logging.File = resolvePath(root, c.Logging.File)
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// EnsureDirectories creates every directory the analyzer writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Analyzer.Database.Dir,
		c.Output.DocDir,
		c.Output.ReportsDir,
		c.Output.TempDir,
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

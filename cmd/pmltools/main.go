package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/PML54/pmltools/internal/config"
	"github.com/PML54/pmltools/internal/discover"
	"github.com/PML54/pmltools/internal/pipeline"
	"github.com/PML54/pmltools/internal/report"
	"github.com/PML54/pmltools/internal/store"
	"github.com/PML54/pmltools/internal/watcher"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pmltools",
		Usage:   "Dart/Flutter codebase extraction and cross-reference analyzer",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (relative to the project root)",
				Value:   config.DefaultFile,
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to analyze",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "analyze",
				Usage:  "Scan the source tree and rebuild the analysis database",
				Action: analyzeCommand,
			},
			{
				Name:   "watch",
				Usage:  "Analyze, then rebuild the analysis database whenever the source tree changes",
				Action: watchCommand,
			},
			{
				Name:   "audit",
				Usage:  "Export the audit report CSVs from the analysis database",
				Action: auditCommand,
			},
			{
				Name:   "schema",
				Usage:  "Export the database schema documentation",
				Action: schemaCommand,
			},
			{
				Name:  "docs",
				Usage: "Export the documentation digest and the class diagram",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "html",
						Usage: "Also write the class diagram as a standalone HTML page",
					},
				},
				Action: docsCommand,
			},
			{
				Name:   "changes",
				Usage:  "Compare the stored file index against the current tree",
				Action: changesCommand,
			},
		},
		// A bare invocation runs a full analysis.
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return fmt.Errorf("unknown command %q, see 'pmltools help'", c.Args().First())
			}
			return analyzeCommand(c)
		},
	}
}

// setup loads the project config, resolves its paths against the
// project root, creates the output directories and configures logging.
// It returns the config and the absolute project root.
func setup(c *cli.Context) (*config.Config, string, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return nil, "", fmt.Errorf("resolve root %q: %w", c.String("root"), err)
	}

	configPath := c.String("config")
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(root, configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}
	cfg.Resolve(root)
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, "", err
	}
	if err := setupLogging(cfg, c.Bool("verbose")); err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

// setupLogging points slog at the configured log file and, when console
// logging is on, stderr. Results go to stdout; logs never do.
func setupLogging(cfg *config.Config, verbose bool) error {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}

	var sinks []io.Writer
	if cfg.EffectiveConsole() {
		sinks = append(sinks, os.Stderr)
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, f)
	}
	var w io.Writer = io.Discard
	if len(sinks) > 0 {
		w = io.MultiWriter(sinks...)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func analyzeCommand(c *cli.Context) error {
	cfg, root, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := pipeline.New(ctx, s, root, cfg).Run()
	if err != nil {
		return err
	}

	fmt.Printf("Analyzed %d files (%d failed) in %s\n",
		summary.FilesProcessed, summary.FilesFailed, summary.Elapsed.Round(time.Millisecond))
	fmt.Printf("  types=%d methods=%d imports=%d type_refs=%d method_refs=%d skipped=%d\n",
		summary.Types, summary.Methods, summary.Imports,
		summary.TypeRefs, summary.MethodRefs, summary.SkippedRecords)
	fmt.Printf("Database: %s\n", cfg.DBPath())
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, root, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	rebuild := func(ctx context.Context) error {
		summary, err := pipeline.New(ctx, s, root, cfg).Run()
		if err != nil {
			return err
		}
		fmt.Printf("Analyzed %d files (%d failed) in %s\n",
			summary.FilesProcessed, summary.FilesFailed, summary.Elapsed.Round(time.Millisecond))
		return nil
	}

	if err := rebuild(ctx); err != nil {
		return err
	}

	fmt.Printf("Watching %s — Ctrl-C to stop\n", filepath.Join(root, cfg.App.LibDir))

	w := watcher.New(root, cfg.App.LibDir, &discover.Options{
		ExcludedDirs:  cfg.Analyzer.Excluded.Dirs,
		ExcludedFiles: cfg.Analyzer.Excluded.Files,
	}, rebuild)
	w.Run(ctx)

	fmt.Println("Watch stopped.")
	return nil
}

func auditCommand(c *cli.Context) error {
	cfg, _, err := setup(c)
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	if n, err := s.CountSourceFiles(); err == nil && n == 0 {
		fmt.Fprintln(os.Stderr, "warning: analysis database is empty, run 'pmltools analyze' first")
	}

	if err := report.WriteAudit(s, cfg, cfg.Output.ReportsDir); err != nil {
		return err
	}
	fmt.Printf("Audit report written to %s\n", cfg.Output.ReportsDir)
	return nil
}

func schemaCommand(c *cli.Context) error {
	cfg, _, err := setup(c)
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := report.WriteSchemaDoc(s, cfg, cfg.Output.DocDir); err != nil {
		return err
	}
	fmt.Printf("Schema documentation written to %s\n",
		filepath.Join(cfg.Output.DocDir, cfg.SchemaDocFile()))
	return nil
}

func docsCommand(c *cli.Context) error {
	cfg, root, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := report.WriteDocDigest(ctx, s, cfg, root, cfg.Output.DocDir); err != nil {
		return err
	}
	if err := report.WriteClassDiagram(s, cfg, cfg.Output.DocDir); err != nil {
		return err
	}
	fmt.Printf("Documentation written to %s\n", cfg.Output.DocDir)

	if c.Bool("html") {
		p, err := report.WriteDiagramHTML(s, cfg, cfg.Output.TempDir)
		if err != nil {
			return err
		}
		fmt.Printf("Diagram page: %s\n", p)
	}
	return nil
}

func changesCommand(c *cli.Context) error {
	cfg, root, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	changes, err := pipeline.DetectChanges(ctx, s, root, cfg)
	if err != nil {
		return err
	}

	if changes.Empty() {
		fmt.Println("Analysis database is up to date.")
		return nil
	}
	for _, p := range changes.Added {
		fmt.Printf("added:    %s\n", p)
	}
	for _, p := range changes.Modified {
		fmt.Printf("modified: %s\n", p)
	}
	for _, p := range changes.Removed {
		fmt.Printf("removed:  %s\n", p)
	}
	fmt.Printf("%d added, %d modified, %d removed — run 'pmltools analyze' to rebuild\n",
		len(changes.Added), len(changes.Modified), len(changes.Removed))
	return nil
}

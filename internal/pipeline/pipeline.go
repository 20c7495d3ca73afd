package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/PML54/pmltools/internal/config"
	"github.com/PML54/pmltools/internal/discover"
	"github.com/PML54/pmltools/internal/lang"
	"github.com/PML54/pmltools/internal/parser"
	"github.com/PML54/pmltools/internal/store"
)

// Pipeline orchestrates one full analysis run over a Flutter project:
// a sequential per-file sweep (file record, imports, types, then per
// type methods and usages), followed by post-processing and
// documentation synthesis. Every run rebuilds the store from scratch.
type Pipeline struct {
	ctx         context.Context
	Store       *store.Store
	ProjectRoot string
	Config      *config.Config

	// names indexes every recorded type and method for cross-reference
	// resolution. Resolution sees what the sweep has recorded so far.
	names *nameIndex
}

// RunSummary reports what a full analysis run recorded.
type RunSummary struct {
	FilesProcessed int
	FilesFailed    int
	Types          int
	Methods        int
	TypeRefs       int
	MethodRefs     int
	Imports        int
	SkippedRecords int
	Elapsed        time.Duration
}

// New creates a Pipeline for one project root.
func New(ctx context.Context, s *store.Store, projectRoot string, cfg *config.Config) *Pipeline {
	return &Pipeline{
		ctx:         ctx,
		Store:       s,
		ProjectRoot: projectRoot,
		Config:      cfg,
		names:       newNameIndex(),
	}
}

// checkCancel returns ctx.Err() if the run has been cancelled.
func (p *Pipeline) checkCancel() error {
	return p.ctx.Err()
}

// Run executes the full analysis. Schema reset and post-processing
// failures abort the run; a failure on one file is logged and the sweep
// continues with the next.
func (p *Pipeline) Run() (*RunSummary, error) {
	start := time.Now()
	slog.Info("pipeline.start", "app", p.Config.App.Name, "root", p.ProjectRoot)

	if err := p.checkCancel(); err != nil {
		return nil, err
	}

	files, err := discover.Discover(p.ctx, p.ProjectRoot, p.Config.App.LibDir, &discover.Options{
		ExcludedDirs:  p.Config.Analyzer.Excluded.Dirs,
		ExcludedFiles: p.Config.Analyzer.Excluded.Files,
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	if p.Config.EffectiveCleanupOnStart() {
		if err := p.Store.Reset(); err != nil {
			return nil, fmt.Errorf("schema reset: %w", err)
		}
	}

	summary := &RunSummary{}

	t := time.Now()
	for _, f := range files {
		if err := p.checkCancel(); err != nil {
			return nil, err
		}
		if err := p.processFile(f, summary); err != nil {
			summary.FilesFailed++
			slog.Warn("pipeline.file.err", "path", f.RelPath, "err", err)
			continue
		}
		summary.FilesProcessed++
	}
	slog.Info("pass.timing", "pass", "extract", "elapsed", time.Since(t))

	if err := p.checkCancel(); err != nil {
		return nil, err
	}

	t = time.Now()
	if err := p.postProcess(); err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}
	slog.Info("pass.timing", "pass", "postprocess", "elapsed", time.Since(t))

	t = time.Now()
	if err := p.synthesizeDocumentation(); err != nil {
		return nil, fmt.Errorf("documentation synthesis: %w", err)
	}
	slog.Info("pass.timing", "pass", "docsynth", "elapsed", time.Since(t))

	summary.Imports, _ = p.Store.CountImports()
	summary.Elapsed = time.Since(start)
	slog.Info("pipeline.done",
		"files", summary.FilesProcessed,
		"failed", summary.FilesFailed,
		"types", summary.Types,
		"methods", summary.Methods,
		"type_refs", summary.TypeRefs,
		"method_refs", summary.MethodRefs,
		"imports", summary.Imports,
		"skipped", summary.SkippedRecords,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// processFile runs the per-file passes. Imports are extracted from raw
// text before parsing, so a file with syntax errors still contributes
// its file record and import rows before being skipped.
func (p *Pipeline) processFile(f discover.FileInfo, summary *RunSummary) error {
	source, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	fileID, err := p.Store.InsertSourceFile(&store.SourceFile{
		Path:         f.RelPath,
		Size:         f.Size,
		ModifiedTime: f.ModTime.UTC().Format(time.RFC3339),
		ContentHash:  sourceHash(source),
	})
	if err != nil {
		return fmt.Errorf("record file: %w", err)
	}

	if err := p.importPass(fileID, source); err != nil {
		return fmt.Errorf("imports: %w", err)
	}

	tree, err := parser.Parse(lang.Dart, source)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		return fmt.Errorf("parse: syntax errors")
	}

	decls := p.typePass(tree.RootNode(), source, fileID, summary)
	for _, d := range decls {
		p.methodPass(d, source, summary)
		p.usagePass(d, source, fileID, summary)
	}
	return nil
}

// sourceHash hashes file content already held in memory.
func sourceHash(source []byte) string {
	h := xxh3.New()
	_, _ = h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// fileHash hashes a file on disk, streaming.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

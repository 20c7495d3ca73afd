// Package watcher polls a project's source tree and triggers a full
// re-analysis when the tree changes. The poll interval adapts to the
// size of the tree.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/PML54/pmltools/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// RebuildFunc is called when the watched tree changes.
type RebuildFunc func(ctx context.Context) error

// Watcher polls the source tree of one project and triggers a rebuild
// when any file is added, removed or modified.
type Watcher struct {
	projectRoot string
	libDir      string
	opts        *discover.Options
	rebuild     RebuildFunc

	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// New creates a Watcher over the source tree at projectRoot/libDir.
// opts carries the same exclusions the analysis pipeline uses, so the
// watched set matches the analyzed set.
func New(projectRoot, libDir string, opts *discover.Options, rebuild RebuildFunc) *Watcher {
	return &Watcher{
		projectRoot: projectRoot,
		libDir:      libDir,
		opts:        opts,
		rebuild:     rebuild,
	}
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling
// only when the adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll captures a snapshot of the source tree and compares it with the
// previous one. The first poll captures a baseline without triggering a
// rebuild.
func (w *Watcher) poll(ctx context.Context) {
	if time.Now().Before(w.nextPoll) {
		return
	}

	if _, err := os.Stat(filepath.Join(w.projectRoot, w.libDir)); err != nil {
		slog.Warn("watcher.root_gone", "root", w.projectRoot, "lib_dir", w.libDir)
		w.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := w.captureSnapshot(ctx)
	if err != nil {
		slog.Warn("watcher.snapshot", "err", err)
		w.nextPoll = time.Now().Add(w.interval)
		return
	}

	interval := pollInterval(len(snap))

	if w.snapshot == nil {
		// First poll captures the baseline, no rebuild.
		slog.Debug("watcher.baseline", "files", len(snap))
		w.snapshot = snap
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	if snapshotsEqual(w.snapshot, snap) {
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "files", len(snap))
	if err := w.rebuild(ctx); err != nil {
		slog.Warn("watcher.rebuild", "err", err)
		// Keep the old snapshot so the next cycle retries.
		w.nextPoll = time.Now().Add(interval)
		return
	}

	w.snapshot = snap
	w.interval = pollInterval(len(snap))
	w.nextPoll = time.Now().Add(w.interval)
}

// captureSnapshot records mtime and size for every discoverable source
// file, keyed by project-relative path.
func (w *Watcher) captureSnapshot(ctx context.Context) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, w.projectRoot, w.libDir, w.opts)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		snap[f.RelPath] = fileSnapshot{modTime: f.ModTime, size: f.Size}
	}
	return snap, nil
}

// snapshotsEqual returns true if two snapshots have identical files with
// the same mtime and size.
func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count:
// 1s base plus 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}

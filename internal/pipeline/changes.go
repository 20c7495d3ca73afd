package pipeline

import (
	"context"
	"fmt"

	"github.com/PML54/pmltools/internal/config"
	"github.com/PML54/pmltools/internal/discover"
	"github.com/PML54/pmltools/internal/store"
)

// ChangeSet lists the files whose on-disk state differs from the
// records of the last analysis run.
type ChangeSet struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether the stored records still match the tree.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Removed) == 0
}

// DetectChanges compares the current source tree against the stored
// file records without touching the store. A non-empty result means the
// database is stale and a fresh analyze run is due; there is no
// incremental re-analysis.
func DetectChanges(ctx context.Context, s *store.Store, projectRoot string, cfg *config.Config) (*ChangeSet, error) {
	files, err := discover.Discover(ctx, projectRoot, cfg.App.LibDir, &discover.Options{
		ExcludedDirs:  cfg.Analyzer.Excluded.Dirs,
		ExcludedFiles: cfg.Analyzer.Excluded.Files,
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	stored, err := s.SourceFiles()
	if err != nil {
		return nil, fmt.Errorf("stored files: %w", err)
	}

	recorded := make(map[string]*store.SourceFile, len(stored))
	for _, sf := range stored {
		recorded[sf.Path] = sf
	}

	cs := &ChangeSet{}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.RelPath] = true
		sf, ok := recorded[f.RelPath]
		if !ok {
			cs.Added = append(cs.Added, f.RelPath)
			continue
		}
		if sf.Size != f.Size {
			cs.Modified = append(cs.Modified, f.RelPath)
			continue
		}
		hash, err := fileHash(f.Path)
		if err != nil || hash != sf.ContentHash {
			cs.Modified = append(cs.Modified, f.RelPath)
		}
	}
	for _, sf := range stored {
		if !seen[sf.Path] {
			cs.Removed = append(cs.Removed, sf.Path)
		}
	}
	return cs, nil
}

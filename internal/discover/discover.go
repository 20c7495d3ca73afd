package discover

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PML54/pmltools/internal/lang"
)

// IGNORE_PATTERNS are directory names always skipped during discovery,
// independent of the configured exclusions.
var IGNORE_PATTERNS = map[string]bool{
	".dart_tool": true, ".git": true, ".idea": true, ".vscode": true,
	"build": true, "ios": true, "android": true, "macos": true,
	"windows": true, "linux": true, "web": true,
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to the project root, slash-separated
	Language lang.Language // detected language
	Size     int64
	ModTime  time.Time
}

// Options configures file discovery.
type Options struct {
	// ExcludedDirs are project-root-relative directory prefixes to skip
	// (e.g. "lib/generated").
	ExcludedDirs []string
	// ExcludedFiles are file name suffixes to skip (e.g. ".g.dart").
	ExcludedFiles []string
}

// shouldSkipDir returns true if the directory should be skipped during discovery.
func shouldSkipDir(name, rel string, excludedDirs []string) bool {
	if IGNORE_PATTERNS[name] {
		return true
	}
	for _, prefix := range excludedDirs {
		prefix = filepath.ToSlash(prefix)
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
	}
	return false
}

// shouldSkipFile returns true if the file name carries an excluded suffix.
func shouldSkipFile(name string, excludedFiles []string) bool {
	for _, suffix := range excludedFiles {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Discover walks the source root under projectRoot and returns all source
// files in deterministic (path-sorted) order. Paths in the result are
// relative to projectRoot so database contents stay machine-independent.
func Discover(ctx context.Context, projectRoot, libDir string, opts *Options) ([]FileInfo, error) {
	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}
	root := filepath.Join(projectRoot, libDir)

	// Check cancellation before starting walk
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var excludedDirs, excludedFiles []string
	if opts != nil {
		excludedDirs = opts.ExcludedDirs
		excludedFiles = opts.ExcludedFiles
	}

	var files []FileInfo

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		// Check context cancellation periodically during walk
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(projectRoot, path)
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if path != root && shouldSkipDir(info.Name(), rel, excludedDirs) {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldSkipFile(info.Name(), excludedFiles) {
			return nil
		}

		ext := filepath.Ext(path)
		l, ok := lang.LanguageForExtension(ext)
		if !ok {
			return nil
		}

		files = append(files, FileInfo{
			Path:     path,
			RelPath:  rel,
			Language: l,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

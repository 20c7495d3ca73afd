package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// importPattern matches import and export directives at the start of a
// line. Extraction is textual so a file that fails to parse still
// contributes its imports.
var importPattern = regexp.MustCompile(`(?m)^\s*(?:import|export)\s+['"]([^'"]+)['"]`)

// extractImports returns the distinct import paths of one source file
// in order of first appearance.
func extractImports(source []byte) []string {
	matches := importPattern.FindAllSubmatch(source, -1)
	seen := make(map[string]bool, len(matches))
	var paths []string
	for _, m := range matches {
		path := string(m[1])
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths
}

// classifyImport reports whether an import path belongs to the analyzed
// app itself and whether it names a third-party package. Builtin
// "dart:" imports are neither.
func classifyImport(path, appName string) (isInternal, isPackage bool) {
	switch {
	case strings.HasPrefix(path, "dart:"):
		return false, false
	case strings.HasPrefix(path, "package:"+appName+"/"):
		return true, false
	case strings.HasPrefix(path, "package:"):
		return false, true
	default:
		// Relative path within the app tree.
		return true, false
	}
}

// importPass records one file's import directives: the path is
// deduplicated globally, the file↔import link per file. Classification
// flags are applied later in post-processing.
func (p *Pipeline) importPass(fileID int64, source []byte) error {
	for _, path := range extractImports(source) {
		importID, err := p.Store.UpsertImport(path)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if err := p.Store.LinkFileImport(fileID, importID); err != nil {
			return fmt.Errorf("link import %s: %w", path, err)
		}
	}
	return nil
}

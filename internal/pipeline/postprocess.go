package pipeline

import (
	"fmt"
	"log/slog"
)

// postProcess applies the aggregates that need the whole run's data:
// import classification flags, per-class import counts, and the
// is_used flag. A failure here invalidates the store and aborts the
// run.
func (p *Pipeline) postProcess() error {
	imports, err := p.Store.Imports()
	if err != nil {
		return fmt.Errorf("load imports: %w", err)
	}
	for _, imp := range imports {
		isInternal, isPackage := classifyImport(imp.Path, p.Config.App.Name)
		if err := p.Store.UpdateImportFlags(imp.ID, isInternal, isPackage); err != nil {
			return fmt.Errorf("classify import %s: %w", imp.Path, err)
		}
	}
	if err := p.Store.UpdateClassAggregates(); err != nil {
		return fmt.Errorf("class aggregates: %w", err)
	}
	slog.Info("postprocess.done", "imports", len(imports))
	return nil
}

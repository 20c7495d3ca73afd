package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/PML54/pmltools/internal/config"
	"github.com/PML54/pmltools/internal/store"
)

// Complexity levels above which a method is flagged in the audit log.
const (
	cyclomaticFlagLevel = 10
	cognitiveFlagLevel  = 15
)

// auditSection is one CSV file of the audit report. The section name
// becomes part of the file name via config.AuditFile.
type auditSection struct {
	name   string
	header []string
	rows   [][]string
}

// WriteAudit exports the audit report as one CSV file per section under
// dir: the method complexity report, the class hierarchy, unused
// methods, unused classes and the usage statistics summary. Sections
// are loaded from the store sequentially; the files are then written
// concurrently.
func WriteAudit(s *store.Store, cfg *config.Config, dir string) error {
	sections, err := auditSections(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	g := new(errgroup.Group)
	for _, sec := range sections {
		g.Go(func() error {
			return writeCSV(filepath.Join(dir, cfg.AuditFile(sec.name)), sec.header, sec.rows)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("audit.done", "dir", dir, "sections", len(sections))
	return nil
}

func auditSections(s *store.Store) ([]auditSection, error) {
	methods, err := s.MethodReport()
	if err != nil {
		return nil, err
	}
	hierarchy, err := s.ClassHierarchy()
	if err != nil {
		return nil, err
	}
	unusedMethods, err := s.UnusedMethods()
	if err != nil {
		return nil, err
	}
	unusedClasses, err := s.UnusedClasses()
	if err != nil {
		return nil, err
	}
	stats, err := s.UsageStatistics()
	if err != nil {
		return nil, err
	}

	var overCyclomatic, overCognitive int
	methodRows := make([][]string, 0, len(methods))
	for _, m := range methods {
		if m.Cyclomatic > cyclomaticFlagLevel {
			overCyclomatic++
		}
		if m.Cognitive > cognitiveFlagLevel {
			overCognitive++
		}
		methodRows = append(methodRows, []string{
			m.FileName, m.ClassName, m.MethodName, m.ReturnType,
			itoa(m.ParamCount), itoa(m.Cyclomatic), itoa(m.Cognitive),
			yesNo(m.IsAsync), yesNo(m.IsStatic),
		})
	}
	slog.Info("audit.methods", "count", len(methods),
		"cyclomatic_flagged", overCyclomatic, "cognitive_flagged", overCognitive)

	hierarchyRows := make([][]string, 0, len(hierarchy))
	for _, h := range hierarchy {
		hierarchyRows = append(hierarchyRows, []string{
			h.FileName, h.ClassName, h.ClassType, h.WidgetType, h.FrameworkType,
			h.MethodName, h.ReturnType,
			flagWord(h.IsAsync, "async"), flagWord(h.IsStatic, "static"),
			itoa(h.ParamCount), itoa(h.Cyclomatic), itoa(h.Cognitive),
		})
	}

	unusedMethodRows := make([][]string, 0, len(unusedMethods))
	for _, m := range unusedMethods {
		unusedMethodRows = append(unusedMethodRows, []string{
			m.FileName, m.ClassName, m.MethodName, m.ReturnType,
			itoa(m.ParamCount), yesNo(m.IsAsync), yesNo(m.IsStatic),
			itoa(m.Cyclomatic), itoa(m.Cognitive),
		})
	}

	unusedClassRows := make([][]string, 0, len(unusedClasses))
	for _, c := range unusedClasses {
		unusedClassRows = append(unusedClassRows, []string{
			c.FileName, c.ClassName, c.ClassType, c.WidgetType, c.FrameworkType,
			itoa(c.MethodCount), ftoa(c.AvgComplexity),
		})
	}
	slog.Info("audit.unused", "methods", len(unusedMethods), "classes", len(unusedClasses))

	statRows := make([][]string, 0, len(stats))
	for _, st := range stats {
		statRows = append(statRows, []string{
			st.Category, itoa(st.Total), itoa(st.Used),
			ftoa(st.AvgMetric), ftoa(st.UsageRate),
		})
	}

	return []auditSection{
		{
			name: "methods",
			header: []string{"file_name", "class_name", "method_name", "return_type",
				"param_count", "cyclomatic_complexity", "cognitive_complexity",
				"is_async", "is_static"},
			rows: methodRows,
		},
		{
			name: "hierarchy",
			header: []string{"file_name", "class_name", "class_type", "widget_type",
				"framework_type", "method_name", "return_type", "is_async", "is_static",
				"param_count", "cyclomatic_complexity", "cognitive_complexity"},
			rows: hierarchyRows,
		},
		{
			name: "unused_methods",
			header: []string{"file_name", "class_name", "method_name", "return_type",
				"param_count", "is_async", "is_static",
				"cyclomatic_complexity", "cognitive_complexity"},
			rows: unusedMethodRows,
		},
		{
			name: "unused_classes",
			header: []string{"file_name", "class_name", "class_type", "widget_type",
				"framework_type", "method_count", "avg_complexity"},
			rows: unusedClassRows,
		},
		{
			name:   "usage_statistics",
			header: []string{"category", "total", "used", "avg_metric", "usage_rate"},
			rows:   statRows,
		},
	}, nil
}

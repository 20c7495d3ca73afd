package store

import (
	"database/sql"
	"fmt"
)

// MethodReportRow is one line of the method complexity report: every
// hand-written method, hottest first. Framework lifecycle methods and
// annotated (@override etc.) methods are excluded, matching the audit
// queries below.
type MethodReportRow struct {
	FileName   string
	ClassName  string
	MethodName string
	ReturnType string
	ParamCount int
	Cyclomatic int
	Cognitive  int
	IsAsync    bool
	IsStatic   bool
}

// MethodReport returns all non-framework methods ordered by complexity.
func (s *Store) MethodReport() ([]*MethodReportRow, error) {
	rows, err := s.q.Query(`
		SELECT
			sf.file_path as file_name,
			c.class_name,
			m.method_name,
			m.return_type,
			m.param_count,
			m.cyclomatic_complexity,
			m.cognitive_complexity,
			m.is_async,
			m.is_static
		FROM class_methods m
		JOIN classes c ON m.class_id = c.class_id
		JOIN source_files sf ON c.file_id = sf.file_id
		WHERE m.method_name NOT IN ('build', 'initState', 'dispose', 'createState')
		  AND m.has_annotation = 0
		ORDER BY
			m.cyclomatic_complexity DESC,
			m.cognitive_complexity DESC,
			sf.file_path,
			c.class_name,
			m.method_name`)
	if err != nil {
		return nil, fmt.Errorf("method report: %w", err)
	}
	defer rows.Close()

	var report []*MethodReportRow
	for rows.Next() {
		var (
			r                 MethodReportRow
			isAsync, isStatic int
		)
		if err := rows.Scan(&r.FileName, &r.ClassName, &r.MethodName, &r.ReturnType,
			&r.ParamCount, &r.Cyclomatic, &r.Cognitive, &isAsync, &isStatic); err != nil {
			return nil, fmt.Errorf("scan method report: %w", err)
		}
		r.IsAsync = isAsync != 0
		r.IsStatic = isStatic != 0
		report = append(report, &r)
	}
	return report, rows.Err()
}

// HierarchyRow is one line of the class hierarchy report: a method in
// the context of its declaring class and file.
type HierarchyRow struct {
	FileName      string
	ClassName     string
	ClassType     string
	WidgetType    string
	FrameworkType string
	MethodName    string
	ReturnType    string
	IsAsync       bool
	IsStatic      bool
	ParamCount    int
	Cyclomatic    int
	Cognitive     int
}

// ClassHierarchy returns every class/method pair ordered by file and class.
func (s *Store) ClassHierarchy() ([]*HierarchyRow, error) {
	rows, err := s.q.Query(`
		SELECT
			sf.file_path as file_name,
			c.class_name,
			c.type as class_type,
			c.widget_type,
			c.framework_type,
			m.method_name,
			m.return_type,
			m.is_async,
			m.is_static,
			m.param_count,
			m.cyclomatic_complexity,
			m.cognitive_complexity
		FROM source_files sf
		JOIN classes c ON sf.file_id = c.file_id
		JOIN class_methods m ON c.class_id = m.class_id
		ORDER BY
			sf.file_path,
			c.class_name,
			m.method_name`)
	if err != nil {
		return nil, fmt.Errorf("class hierarchy: %w", err)
	}
	defer rows.Close()

	var report []*HierarchyRow
	for rows.Next() {
		var (
			r                         HierarchyRow
			widgetType, frameworkType sql.NullString
			isAsync, isStatic         int
		)
		if err := rows.Scan(&r.FileName, &r.ClassName, &r.ClassType, &widgetType, &frameworkType,
			&r.MethodName, &r.ReturnType, &isAsync, &isStatic,
			&r.ParamCount, &r.Cyclomatic, &r.Cognitive); err != nil {
			return nil, fmt.Errorf("scan hierarchy: %w", err)
		}
		r.WidgetType = widgetType.String
		r.FrameworkType = frameworkType.String
		r.IsAsync = isAsync != 0
		r.IsStatic = isStatic != 0
		report = append(report, &r)
	}
	return report, rows.Err()
}

// UnusedMethodRow is a method with no inbound usage reference.
type UnusedMethodRow struct {
	FileName   string
	ClassName  string
	MethodName string
	ReturnType string
	ParamCount int
	IsAsync    bool
	IsStatic   bool
	Cyclomatic int
	Cognitive  int
}

// UnusedMethods returns methods never referenced anywhere in the scanned
// sources. Framework lifecycle methods are invoked by Flutter itself and
// annotated methods override something, so both are excluded.
func (s *Store) UnusedMethods() ([]*UnusedMethodRow, error) {
	rows, err := s.q.Query(`
		SELECT
			sf.file_path as file_name,
			c.class_name,
			m.method_name,
			m.return_type,
			m.param_count,
			m.is_async,
			m.is_static,
			m.cyclomatic_complexity,
			m.cognitive_complexity
		FROM class_methods m
		JOIN classes c ON m.class_id = c.class_id
		JOIN source_files sf ON c.file_id = sf.file_id
		WHERE NOT EXISTS (
			SELECT 1
			FROM method_usage_references mur
			WHERE mur.referenced_method_id = m.method_id
		)
		AND m.method_name NOT IN ('build', 'initState', 'dispose', 'createState')
		AND m.has_annotation = 0
		ORDER BY m.cyclomatic_complexity DESC, sf.file_path, c.class_name, m.method_name`)
	if err != nil {
		return nil, fmt.Errorf("unused methods: %w", err)
	}
	defer rows.Close()

	var report []*UnusedMethodRow
	for rows.Next() {
		var (
			r                 UnusedMethodRow
			isAsync, isStatic int
		)
		if err := rows.Scan(&r.FileName, &r.ClassName, &r.MethodName, &r.ReturnType,
			&r.ParamCount, &isAsync, &isStatic, &r.Cyclomatic, &r.Cognitive); err != nil {
			return nil, fmt.Errorf("scan unused method: %w", err)
		}
		r.IsAsync = isAsync != 0
		r.IsStatic = isStatic != 0
		report = append(report, &r)
	}
	return report, rows.Err()
}

// UnusedClassRow is a class with no inbound usage reference.
type UnusedClassRow struct {
	FileName      string
	ClassName     string
	ClassType     string
	WidgetType    string
	FrameworkType string
	MethodCount   int
	AvgComplexity float64
}

// UnusedClasses returns classes never referenced anywhere in the scanned
// sources. Inheritance clauses naming the class still mark it used via
// the is_used flag, but the audit intentionally looks at direct usage
// references only.
func (s *Store) UnusedClasses() ([]*UnusedClassRow, error) {
	rows, err := s.q.Query(`
		SELECT
			sf.file_path as file_name,
			c.class_name,
			c.type as class_type,
			c.widget_type,
			c.framework_type,
			(
				SELECT COUNT(*)
				FROM class_methods m
				WHERE m.class_id = c.class_id
			) as method_count,
			(
				SELECT AVG(cyclomatic_complexity)
				FROM class_methods m
				WHERE m.class_id = c.class_id
			) as avg_complexity
		FROM classes c
		JOIN source_files sf ON c.file_id = sf.file_id
		WHERE NOT EXISTS (
			SELECT 1
			FROM class_usage_references cur
			WHERE cur.referenced_class_id = c.class_id
		)
		ORDER BY sf.file_path, c.class_name`)
	if err != nil {
		return nil, fmt.Errorf("unused classes: %w", err)
	}
	defer rows.Close()

	var report []*UnusedClassRow
	for rows.Next() {
		var (
			r                         UnusedClassRow
			widgetType, frameworkType sql.NullString
			avgComplexity             sql.NullFloat64
		)
		if err := rows.Scan(&r.FileName, &r.ClassName, &r.ClassType, &widgetType, &frameworkType,
			&r.MethodCount, &avgComplexity); err != nil {
			return nil, fmt.Errorf("scan unused class: %w", err)
		}
		r.WidgetType = widgetType.String
		r.FrameworkType = frameworkType.String
		r.AvgComplexity = avgComplexity.Float64
		report = append(report, &r)
	}
	return report, rows.Err()
}

// UsageStatRow is one category line of the usage statistics summary.
type UsageStatRow struct {
	Category  string
	Total     int
	Used      int
	AvgMetric float64 // avg imports for classes, avg params for methods
	UsageRate float64 // used/total as a percentage
}

// UsageStatistics summarizes how much of the extracted code is actually
// referenced.
func (s *Store) UsageStatistics() ([]*UsageStatRow, error) {
	rows, err := s.q.Query(`
		SELECT
			'Classes' as category,
			COUNT(*) as total,
			SUM(CASE WHEN EXISTS (
				SELECT 1 FROM class_usage_references cur
				WHERE cur.referenced_class_id = c.class_id
			) THEN 1 ELSE 0 END) as used,
			ROUND(AVG(import_count), 1) as avg_imports
		FROM classes c
		UNION ALL
		SELECT
			'Methods' as category,
			COUNT(*) as total,
			SUM(CASE WHEN EXISTS (
				SELECT 1 FROM method_usage_references mur
				WHERE mur.referenced_method_id = m.method_id
			) THEN 1 ELSE 0 END) as used,
			ROUND(AVG(param_count), 1) as avg_params
		FROM class_methods m`)
	if err != nil {
		return nil, fmt.Errorf("usage statistics: %w", err)
	}
	defer rows.Close()

	var stats []*UsageStatRow
	for rows.Next() {
		var (
			r    UsageStatRow
			used sql.NullInt64
			avg  sql.NullFloat64
		)
		if err := rows.Scan(&r.Category, &r.Total, &used, &avg); err != nil {
			return nil, fmt.Errorf("scan usage stat: %w", err)
		}
		r.Used = int(used.Int64)
		r.AvgMetric = avg.Float64
		if r.Total > 0 {
			r.UsageRate = float64(r.Used) / float64(r.Total) * 100
		}
		stats = append(stats, &r)
	}
	return stats, rows.Err()
}

// TableDoc is a table name with its CREATE statement, read from
// sqlite_master for schema documentation.
type TableDoc struct {
	Name            string
	CreateStatement string
}

// TablesInfo returns the schema of every analysis table.
func (s *Store) TablesInfo() ([]*TableDoc, error) {
	rows, err := s.q.Query(`
		SELECT name as table_name, sql as create_statement
		FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("tables info: %w", err)
	}
	defer rows.Close()

	var tables []*TableDoc
	for rows.Next() {
		var t TableDoc
		if err := rows.Scan(&t.Name, &t.CreateStatement); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		tables = append(tables, &t)
	}
	return tables, rows.Err()
}

// CodeStructureRow summarizes one class with its methods for the schema
// documentation's structure section.
type CodeStructureRow struct {
	FilePath  string
	ClassName string
	ClassType string
	Methods   string // comma-joined method names
}

// CodeStructure returns a per-class summary of the indexed code.
func (s *Store) CodeStructure() ([]*CodeStructureRow, error) {
	rows, err := s.q.Query(`
		SELECT
			sf.file_path as "File",
			c.class_name as "Class",
			c.type as "Type",
			GROUP_CONCAT(m.method_name) as "Methods"
		FROM source_files sf
		LEFT JOIN classes c ON sf.file_id = c.file_id
		LEFT JOIN class_methods m ON c.class_id = m.class_id
		GROUP BY sf.file_path, c.class_name, c.type
		ORDER BY sf.file_path, c.class_name`)
	if err != nil {
		return nil, fmt.Errorf("code structure: %w", err)
	}
	defer rows.Close()

	var report []*CodeStructureRow
	for rows.Next() {
		var (
			r                           CodeStructureRow
			className, classType, meths sql.NullString
		)
		if err := rows.Scan(&r.FilePath, &className, &classType, &meths); err != nil {
			return nil, fmt.Errorf("scan code structure: %w", err)
		}
		r.ClassName = className.String
		r.ClassType = classType.String
		r.Methods = meths.String
		report = append(report, &r)
	}
	return report, rows.Err()
}

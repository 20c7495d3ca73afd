package store

import (
	"database/sql"
	"fmt"
)

// Class represents a row in classes: any named type declaration
// (class, abstract class, mixin, enum, interface).
type Class struct {
	ID     int64
	FileID int64
	Name   string
	Kind   string // class | abstract | mixin | enum | interface
	// WidgetKind is set for Flutter widget types: stateless | stateful | state.
	WidgetKind string
	// FrameworkKind is the framework base class the type extends
	// (e.g. StatelessWidget), empty for plain types.
	FrameworkKind string
	ImportCount   int
	IsUsed        bool
}

// ClassRelation represents a row in class_relations: a declared
// extends/implements/with clause, kept by name so unresolved targets
// (framework types, generated code) still count.
type ClassRelation struct {
	ID           int64
	ClassID      int64
	RelatedName  string
	RelationType string // extends | implements | with
}

// InsertClass inserts a type declaration and returns its id.
// Same-named types in different files each get their own row.
func (s *Store) InsertClass(c *Class) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO classes (file_id, class_name, type, widget_type, framework_type, import_count, is_used)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.FileID, c.Name, c.Kind, nullIfEmpty(c.WidgetKind), nullIfEmpty(c.FrameworkKind),
		c.ImportCount, boolToInt(c.IsUsed))
	if err != nil {
		return 0, fmt.Errorf("insert class: %w", err)
	}
	return res.LastInsertId()
}

// InsertClassRelation records an inheritance clause for a class.
func (s *Store) InsertClassRelation(r *ClassRelation) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO class_relations (class_id, related_class_name, relation_type)
		VALUES (?, ?, ?)`,
		r.ClassID, r.RelatedName, r.RelationType)
	if err != nil {
		return 0, fmt.Errorf("insert class relation: %w", err)
	}
	return res.LastInsertId()
}

// FindClassByID finds a class by its primary key.
func (s *Store) FindClassByID(id int64) (*Class, error) {
	row := s.q.QueryRow(`SELECT class_id, file_id, class_name, type, widget_type, framework_type, import_count, is_used
		FROM classes WHERE class_id=?`, id)
	return scanClass(row)
}

// FindClassesByName finds all classes with the given name, ordered by id
// so the first declaration registered wins name-based resolution.
func (s *Store) FindClassesByName(name string) ([]*Class, error) {
	rows, err := s.q.Query(`SELECT class_id, file_id, class_name, type, widget_type, framework_type, import_count, is_used
		FROM classes WHERE class_name=? ORDER BY class_id`, name)
	if err != nil {
		return nil, fmt.Errorf("find classes by name: %w", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

// ClassesByFile returns all classes declared in a file, in insertion order.
func (s *Store) ClassesByFile(fileID int64) ([]*Class, error) {
	rows, err := s.q.Query(`SELECT class_id, file_id, class_name, type, widget_type, framework_type, import_count, is_used
		FROM classes WHERE file_id=? ORDER BY class_id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("classes by file: %w", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

// Classes returns all class records ordered by id.
func (s *Store) Classes() ([]*Class, error) {
	rows, err := s.q.Query(`SELECT class_id, file_id, class_name, type, widget_type, framework_type, import_count, is_used
		FROM classes ORDER BY class_id`)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

// CountClasses returns the number of class records.
func (s *Store) CountClasses() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM classes").Scan(&count)
	return count, err
}

// ClassRelations returns all inheritance clauses joined with the
// declaring class name, ordered for deterministic report output.
func (s *Store) ClassRelations() ([]*ClassRelationInfo, error) {
	rows, err := s.q.Query(`
		SELECT cr.relation_id, cr.class_id, c.class_name, cr.related_class_name, cr.relation_type
		FROM class_relations cr
		JOIN classes c ON c.class_id = cr.class_id
		ORDER BY c.class_name, cr.relation_type, cr.related_class_name`)
	if err != nil {
		return nil, fmt.Errorf("list class relations: %w", err)
	}
	defer rows.Close()

	var relations []*ClassRelationInfo
	for rows.Next() {
		var r ClassRelationInfo
		if err := rows.Scan(&r.ID, &r.ClassID, &r.ClassName, &r.RelatedName, &r.RelationType); err != nil {
			return nil, fmt.Errorf("scan class relation: %w", err)
		}
		relations = append(relations, &r)
	}
	return relations, rows.Err()
}

// ClassRelationInfo is a class relation joined with its declaring class name.
type ClassRelationInfo struct {
	ID           int64
	ClassID      int64
	ClassName    string
	RelatedName  string
	RelationType string
}

// CountClassRelations returns the number of recorded inheritance clauses.
func (s *Store) CountClassRelations() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM class_relations").Scan(&count)
	return count, err
}

// UpdateClassAggregates recomputes the denormalized per-class columns:
// import_count mirrors the declaring file's distinct imports, and is_used
// flags classes with any inbound usage reference or any inheritance clause
// naming them from another class.
func (s *Store) UpdateClassAggregates() error {
	if _, err := s.q.Exec(`
		UPDATE classes SET import_count = (
			SELECT COUNT(*) FROM file_import_relations fir
			WHERE fir.file_id = classes.file_id
		)`); err != nil {
		return fmt.Errorf("update import counts: %w", err)
	}

	if _, err := s.q.Exec(`
		UPDATE classes SET is_used = CASE WHEN
			EXISTS (
				SELECT 1 FROM class_usage_references cur
				WHERE cur.referenced_class_id = classes.class_id
			)
			OR EXISTS (
				SELECT 1 FROM class_relations cr
				WHERE cr.related_class_name = classes.class_name
				  AND cr.class_id <> classes.class_id
			)
		THEN 1 ELSE 0 END`); err != nil {
		return fmt.Errorf("update is_used: %w", err)
	}
	return nil
}

func scanClass(sc scanner) (*Class, error) {
	var (
		c                         Class
		widgetKind, frameworkKind sql.NullString
		isUsed                    int
	)
	err := sc.Scan(&c.ID, &c.FileID, &c.Name, &c.Kind, &widgetKind, &frameworkKind, &c.ImportCount, &isUsed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan class: %w", err)
	}
	c.WidgetKind = widgetKind.String
	c.FrameworkKind = frameworkKind.String
	c.IsUsed = isUsed != 0
	return &c, nil
}

func scanClasses(rows *sql.Rows) ([]*Class, error) {
	var classes []*Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

package store

import (
	"fmt"
)

// ClassDocumentation represents a row in class_documentations.
type ClassDocumentation struct {
	ID            int64
	ClassID       int64
	Documentation string
	GeneratedAt   string // ISO 8601
}

// UpsertClassDocumentation writes the generated documentation for a
// class, replacing any previous text.
func (s *Store) UpsertClassDocumentation(classID int64, documentation, generatedAt string) error {
	_, err := s.q.Exec(`
		INSERT INTO class_documentations (class_id, documentation, generated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(class_id) DO UPDATE SET
			documentation=excluded.documentation, generated_at=excluded.generated_at`,
		classID, documentation, generatedAt)
	if err != nil {
		return fmt.Errorf("upsert class documentation: %w", err)
	}
	return nil
}

// ClassDocumentationInfo is a documentation row joined with identifying
// class and file columns for export.
type ClassDocumentationInfo struct {
	ClassID       int64
	ClassName     string
	FilePath      string
	Documentation string
	GeneratedAt   string
}

// ClassDocumentations returns all generated documentation entries
// ordered by file then class name.
func (s *Store) ClassDocumentations() ([]*ClassDocumentationInfo, error) {
	rows, err := s.q.Query(`
		SELECT cd.class_id, c.class_name, sf.file_path, cd.documentation, cd.generated_at
		FROM class_documentations cd
		JOIN classes c ON c.class_id = cd.class_id
		JOIN source_files sf ON sf.file_id = c.file_id
		ORDER BY sf.file_path, c.class_name`)
	if err != nil {
		return nil, fmt.Errorf("list class documentations: %w", err)
	}
	defer rows.Close()

	var docs []*ClassDocumentationInfo
	for rows.Next() {
		var d ClassDocumentationInfo
		if err := rows.Scan(&d.ClassID, &d.ClassName, &d.FilePath, &d.Documentation, &d.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan class documentation: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// CountClassDocumentations returns the number of documentation rows.
func (s *Store) CountClassDocumentations() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM class_documentations").Scan(&count)
	return count, err
}

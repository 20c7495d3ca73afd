package store

import (
	"fmt"
)

// ClassUsage represents a row in class_usage_references: one site where
// a type is referenced. Source class/method ids are zero when the
// reference occurs outside any declaration (top-level code).
type ClassUsage struct {
	ID                int64
	ReferencedClassID int64
	SourceFileID      int64
	SourceClassID     int64
	SourceMethodID    int64
	UsageType         string // creation | extension | implementation | usage
}

// MethodUsage represents a row in method_usage_references.
type MethodUsage struct {
	ID                 int64
	ReferencedMethodID int64
	SourceFileID       int64
	SourceClassID      int64
	SourceMethodID     int64
	IsDirectCall       bool
}

// InsertClassUsage records a type reference site.
func (s *Store) InsertClassUsage(u *ClassUsage) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO class_usage_references
			(referenced_class_id, source_file_id, source_class_id, source_method_id, usage_type)
		VALUES (?, ?, ?, ?, ?)`,
		u.ReferencedClassID, u.SourceFileID, nullIfZero(u.SourceClassID), nullIfZero(u.SourceMethodID), u.UsageType)
	if err != nil {
		return 0, fmt.Errorf("insert class usage: %w", err)
	}
	return res.LastInsertId()
}

// InsertMethodUsage records a method reference site.
func (s *Store) InsertMethodUsage(u *MethodUsage) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO method_usage_references
			(referenced_method_id, source_file_id, source_class_id, source_method_id, is_direct_call)
		VALUES (?, ?, ?, ?, ?)`,
		u.ReferencedMethodID, u.SourceFileID, nullIfZero(u.SourceClassID), nullIfZero(u.SourceMethodID),
		boolToInt(u.IsDirectCall))
	if err != nil {
		return 0, fmt.Errorf("insert method usage: %w", err)
	}
	return res.LastInsertId()
}

// CountClassUsages returns the number of class usage references.
func (s *Store) CountClassUsages() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM class_usage_references").Scan(&count)
	return count, err
}

// CountMethodUsages returns the number of method usage references.
func (s *Store) CountMethodUsages() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM method_usage_references").Scan(&count)
	return count, err
}

// ClassUsagesByReferenced returns every usage site of a class.
func (s *Store) ClassUsagesByReferenced(classID int64) ([]*ClassUsage, error) {
	rows, err := s.q.Query(`
		SELECT reference_id, referenced_class_id, source_file_id,
			COALESCE(source_class_id, 0), COALESCE(source_method_id, 0), usage_type
		FROM class_usage_references WHERE referenced_class_id=? ORDER BY reference_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("class usages: %w", err)
	}
	defer rows.Close()

	var usages []*ClassUsage
	for rows.Next() {
		var u ClassUsage
		if err := rows.Scan(&u.ID, &u.ReferencedClassID, &u.SourceFileID,
			&u.SourceClassID, &u.SourceMethodID, &u.UsageType); err != nil {
			return nil, fmt.Errorf("scan class usage: %w", err)
		}
		usages = append(usages, &u)
	}
	return usages, rows.Err()
}

// MethodUsagesByReferenced returns every usage site of a method.
func (s *Store) MethodUsagesByReferenced(methodID int64) ([]*MethodUsage, error) {
	rows, err := s.q.Query(`
		SELECT reference_id, referenced_method_id, source_file_id,
			COALESCE(source_class_id, 0), COALESCE(source_method_id, 0), is_direct_call
		FROM method_usage_references WHERE referenced_method_id=? ORDER BY reference_id`, methodID)
	if err != nil {
		return nil, fmt.Errorf("method usages: %w", err)
	}
	defer rows.Close()

	var usages []*MethodUsage
	for rows.Next() {
		var (
			u      MethodUsage
			direct int
		)
		if err := rows.Scan(&u.ID, &u.ReferencedMethodID, &u.SourceFileID,
			&u.SourceClassID, &u.SourceMethodID, &direct); err != nil {
			return nil, fmt.Errorf("scan method usage: %w", err)
		}
		u.IsDirectCall = direct != 0
		usages = append(usages, &u)
	}
	return usages, rows.Err()
}

// UsageTypeCount is a usage_type with its occurrence count.
type UsageTypeCount struct {
	UsageType string
	Count     int
}

// ClassUsageBreakdown returns usage reference counts grouped by type.
func (s *Store) ClassUsageBreakdown() ([]UsageTypeCount, error) {
	rows, err := s.q.Query(`SELECT usage_type, COUNT(*) as cnt
		FROM class_usage_references GROUP BY usage_type ORDER BY cnt DESC`)
	if err != nil {
		return nil, fmt.Errorf("usage breakdown: %w", err)
	}
	defer rows.Close()

	var counts []UsageTypeCount
	for rows.Next() {
		var tc UsageTypeCount
		if err := rows.Scan(&tc.UsageType, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

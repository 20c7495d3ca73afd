package store

import (
	"database/sql"
	"fmt"
)

// Import represents a row in file_imports. Import paths are stored once
// and shared by every file that uses them.
type Import struct {
	ID         int64
	Path       string
	IsInternal bool
	IsPackage  bool
}

// UpsertImport inserts an import path if unseen and returns its id.
// Classification flags are rewritten during post-processing, so the
// insert only records the path.
func (s *Store) UpsertImport(path string) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO file_imports (import_path) VALUES (?)
		ON CONFLICT(import_path) DO NOTHING`, path)
	if err != nil {
		return 0, fmt.Errorf("upsert import: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
	}
	var id int64
	if err := s.q.QueryRow("SELECT import_id FROM file_imports WHERE import_path=?", path).Scan(&id); err != nil {
		return 0, fmt.Errorf("get import id: %w", err)
	}
	return id, nil
}

// LinkFileImport records that a file uses an import. Duplicate pairs
// within one file collapse to a single relation row.
func (s *Store) LinkFileImport(fileID, importID int64) error {
	_, err := s.q.Exec(`
		INSERT INTO file_import_relations (file_id, import_id) VALUES (?, ?)
		ON CONFLICT(file_id, import_id) DO NOTHING`, fileID, importID)
	if err != nil {
		return fmt.Errorf("link file import: %w", err)
	}
	return nil
}

// UpdateImportFlags sets the classification flags on an import row.
func (s *Store) UpdateImportFlags(importID int64, isInternal, isPackage bool) error {
	_, err := s.q.Exec(`UPDATE file_imports SET is_internal=?, is_package=? WHERE import_id=?`,
		boolToInt(isInternal), boolToInt(isPackage), importID)
	if err != nil {
		return fmt.Errorf("update import flags: %w", err)
	}
	return nil
}

// Imports returns all import records ordered by path.
func (s *Store) Imports() ([]*Import, error) {
	rows, err := s.q.Query(`SELECT import_id, import_path, is_internal, is_package
		FROM file_imports ORDER BY import_path`)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var imports []*Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// FindImportByPath finds an import record by path.
func (s *Store) FindImportByPath(path string) (*Import, error) {
	row := s.q.QueryRow(`SELECT import_id, import_path, is_internal, is_package
		FROM file_imports WHERE import_path=?`, path)
	return scanImport(row)
}

// CountImports returns the number of distinct import paths.
func (s *Store) CountImports() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM file_imports").Scan(&count)
	return count, err
}

// CountImportRelations returns the number of file→import links.
func (s *Store) CountImportRelations() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM file_import_relations").Scan(&count)
	return count, err
}

// ImportsByFile returns the import paths recorded for a file.
func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.q.Query(`
		SELECT fi.import_id, fi.import_path, fi.is_internal, fi.is_package
		FROM file_imports fi
		JOIN file_import_relations fir ON fir.import_id = fi.import_id
		WHERE fir.file_id = ?
		ORDER BY fi.import_path`, fileID)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()

	var imports []*Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

func scanImport(sc scanner) (*Import, error) {
	var (
		imp                   Import
		isInternal, isPackage int
	)
	err := sc.Scan(&imp.ID, &imp.Path, &isInternal, &isPackage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan import: %w", err)
	}
	imp.IsInternal = isInternal != 0
	imp.IsPackage = isPackage != 0
	return &imp, nil
}

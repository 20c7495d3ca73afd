package store

import (
	"database/sql"
	"fmt"
)

// SourceFile represents a row in source_files.
type SourceFile struct {
	ID           int64
	Path         string // project-relative, slash-separated
	Size         int64
	ModifiedTime string // ISO 8601
	ContentHash  string // xxh3 of file contents, hex
}

// InsertSourceFile inserts a source file record and returns its id.
// Paths are unique per run: a conflict refreshes the stored metadata.
func (s *Store) InsertSourceFile(f *SourceFile) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO source_files (file_path, file_size, modified_time, content_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			file_size=excluded.file_size, modified_time=excluded.modified_time,
			content_hash=excluded.content_hash`,
		f.Path, f.Size, f.ModifiedTime, f.ContentHash)
	if err != nil {
		return 0, fmt.Errorf("insert source file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// On conflict, LastInsertId may return 0; query the actual id
	if id == 0 {
		err = s.q.QueryRow("SELECT file_id FROM source_files WHERE file_path=?", f.Path).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("get source file id: %w", err)
		}
	}
	return id, nil
}

// FindSourceFileByPath finds a source file by its project-relative path.
func (s *Store) FindSourceFileByPath(path string) (*SourceFile, error) {
	row := s.q.QueryRow(`SELECT file_id, file_path, file_size, modified_time, content_hash
		FROM source_files WHERE file_path=?`, path)
	return scanSourceFile(row)
}

// SourceFiles returns all source file records ordered by path.
func (s *Store) SourceFiles() ([]*SourceFile, error) {
	rows, err := s.q.Query(`SELECT file_id, file_path, file_size, modified_time, content_hash
		FROM source_files ORDER BY file_path`)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}
	defer rows.Close()

	var files []*SourceFile
	for rows.Next() {
		f, err := scanSourceFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// CountSourceFiles returns the number of source file records.
func (s *Store) CountSourceFiles() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM source_files").Scan(&count)
	return count, err
}

func scanSourceFile(sc scanner) (*SourceFile, error) {
	var f SourceFile
	err := sc.Scan(&f.ID, &f.Path, &f.Size, &f.ModifiedTime, &f.ContentHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan source file: %w", err)
	}
	return &f, nil
}

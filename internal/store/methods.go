package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrDuplicateMethod reports an insert rejected by the (class_id,
// method_name) uniqueness rule. Dart method overloading does not exist,
// so a duplicate name within one class is a parse artifact the caller
// logs and skips.
var ErrDuplicateMethod = errors.New("duplicate method name in class")

// Method represents a row in class_methods.
type Method struct {
	ID            int64
	ClassID       int64
	Name          string
	ReturnType    string
	ParamCount    int
	Cyclomatic    int
	Cognitive     int
	IsAsync       bool
	IsStatic      bool
	HasAnnotation bool
}

// InsertMethod inserts a method record and returns its id.
// Returns ErrDuplicateMethod when the class already has a method with
// this name.
func (s *Store) InsertMethod(m *Method) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO class_methods
			(class_id, method_name, return_type, param_count,
			 cyclomatic_complexity, cognitive_complexity,
			 is_async, is_static, has_annotation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(class_id, method_name) DO NOTHING`,
		m.ClassID, m.Name, m.ReturnType, m.ParamCount,
		m.Cyclomatic, m.Cognitive,
		boolToInt(m.IsAsync), boolToInt(m.IsStatic), boolToInt(m.HasAnnotation))
	if err != nil {
		return 0, fmt.Errorf("insert method: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateMethod, m.Name)
	}
	return res.LastInsertId()
}

// FindMethodByID finds a method by its primary key.
func (s *Store) FindMethodByID(id int64) (*Method, error) {
	row := s.q.QueryRow(`SELECT method_id, class_id, method_name, return_type, param_count,
		cyclomatic_complexity, cognitive_complexity, is_async, is_static, has_annotation
		FROM class_methods WHERE method_id=?`, id)
	return scanMethod(row)
}

// MethodsByClass returns all methods of a class in insertion order.
func (s *Store) MethodsByClass(classID int64) ([]*Method, error) {
	rows, err := s.q.Query(`SELECT method_id, class_id, method_name, return_type, param_count,
		cyclomatic_complexity, cognitive_complexity, is_async, is_static, has_annotation
		FROM class_methods WHERE class_id=? ORDER BY method_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("methods by class: %w", err)
	}
	defer rows.Close()
	return scanMethods(rows)
}

// Methods returns all method records ordered by id.
func (s *Store) Methods() ([]*Method, error) {
	rows, err := s.q.Query(`SELECT method_id, class_id, method_name, return_type, param_count,
		cyclomatic_complexity, cognitive_complexity, is_async, is_static, has_annotation
		FROM class_methods ORDER BY method_id`)
	if err != nil {
		return nil, fmt.Errorf("list methods: %w", err)
	}
	defer rows.Close()
	return scanMethods(rows)
}

// CountMethods returns the number of method records.
func (s *Store) CountMethods() (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM class_methods").Scan(&count)
	return count, err
}

func scanMethod(sc scanner) (*Method, error) {
	var (
		m                           Method
		isAsync, isStatic, hasAnnot int
	)
	err := sc.Scan(&m.ID, &m.ClassID, &m.Name, &m.ReturnType, &m.ParamCount,
		&m.Cyclomatic, &m.Cognitive, &isAsync, &isStatic, &hasAnnot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan method: %w", err)
	}
	m.IsAsync = isAsync != 0
	m.IsStatic = isStatic != 0
	m.HasAnnotation = hasAnnot != 0
	return &m, nil
}

func scanMethods(rows *sql.Rows) ([]*Method, error) {
	var methods []*Method
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

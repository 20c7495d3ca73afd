package store

// dropStmts removes every analysis table. Referencing tables go first so
// foreign keys never dangle mid-transaction.
const dropStmts = `
DROP TABLE IF EXISTS class_documentations;
DROP TABLE IF EXISTS method_usage_references;
DROP TABLE IF EXISTS class_usage_references;
DROP TABLE IF EXISTS class_relations;
DROP TABLE IF EXISTS class_methods;
DROP TABLE IF EXISTS classes;
DROP TABLE IF EXISTS file_import_relations;
DROP TABLE IF EXISTS file_imports;
DROP TABLE IF EXISTS source_files;
`

const createStmts = `
CREATE TABLE IF NOT EXISTS source_files (
	file_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL UNIQUE,
	file_size INTEGER NOT NULL DEFAULT 0,
	modified_time TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS file_imports (
	import_id INTEGER PRIMARY KEY AUTOINCREMENT,
	import_path TEXT NOT NULL UNIQUE,
	is_internal INTEGER NOT NULL DEFAULT 0,
	is_package INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS file_import_relations (
	relation_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES source_files(file_id) ON DELETE CASCADE,
	import_id INTEGER NOT NULL REFERENCES file_imports(import_id) ON DELETE CASCADE,
	UNIQUE(file_id, import_id)
);

CREATE TABLE IF NOT EXISTS classes (
	class_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES source_files(file_id) ON DELETE CASCADE,
	class_name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'class',
	widget_type TEXT,
	framework_type TEXT,
	import_count INTEGER NOT NULL DEFAULT 0,
	is_used INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_classes_file ON classes(file_id);
CREATE INDEX IF NOT EXISTS idx_classes_name ON classes(class_name);

CREATE TABLE IF NOT EXISTS class_methods (
	method_id INTEGER PRIMARY KEY AUTOINCREMENT,
	class_id INTEGER NOT NULL REFERENCES classes(class_id) ON DELETE CASCADE,
	method_name TEXT NOT NULL,
	return_type TEXT NOT NULL DEFAULT 'dynamic',
	param_count INTEGER NOT NULL DEFAULT 0,
	cyclomatic_complexity INTEGER NOT NULL DEFAULT 1,
	cognitive_complexity INTEGER NOT NULL DEFAULT 0,
	is_async INTEGER NOT NULL DEFAULT 0,
	is_static INTEGER NOT NULL DEFAULT 0,
	has_annotation INTEGER NOT NULL DEFAULT 0,
	UNIQUE(class_id, method_name)
);

CREATE INDEX IF NOT EXISTS idx_methods_class ON class_methods(class_id);
CREATE INDEX IF NOT EXISTS idx_methods_name ON class_methods(method_name);

CREATE TABLE IF NOT EXISTS class_relations (
	relation_id INTEGER PRIMARY KEY AUTOINCREMENT,
	class_id INTEGER NOT NULL REFERENCES classes(class_id) ON DELETE CASCADE,
	related_class_name TEXT NOT NULL,
	relation_type TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_relations_class ON class_relations(class_id);
CREATE INDEX IF NOT EXISTS idx_relations_name ON class_relations(related_class_name);

CREATE TABLE IF NOT EXISTS class_usage_references (
	reference_id INTEGER PRIMARY KEY AUTOINCREMENT,
	referenced_class_id INTEGER NOT NULL REFERENCES classes(class_id) ON DELETE CASCADE,
	source_file_id INTEGER NOT NULL REFERENCES source_files(file_id) ON DELETE CASCADE,
	source_class_id INTEGER REFERENCES classes(class_id) ON DELETE SET NULL,
	source_method_id INTEGER REFERENCES class_methods(method_id) ON DELETE SET NULL,
	usage_type TEXT NOT NULL DEFAULT 'usage'
);

CREATE INDEX IF NOT EXISTS idx_class_refs_target ON class_usage_references(referenced_class_id);
CREATE INDEX IF NOT EXISTS idx_class_refs_source ON class_usage_references(source_file_id);

CREATE TABLE IF NOT EXISTS method_usage_references (
	reference_id INTEGER PRIMARY KEY AUTOINCREMENT,
	referenced_method_id INTEGER NOT NULL REFERENCES class_methods(method_id) ON DELETE CASCADE,
	source_file_id INTEGER NOT NULL REFERENCES source_files(file_id) ON DELETE CASCADE,
	source_class_id INTEGER REFERENCES classes(class_id) ON DELETE SET NULL,
	source_method_id INTEGER REFERENCES class_methods(method_id) ON DELETE SET NULL,
	is_direct_call INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_method_refs_target ON method_usage_references(referenced_method_id);
CREATE INDEX IF NOT EXISTS idx_method_refs_source ON method_usage_references(source_file_id);

CREATE TABLE IF NOT EXISTS class_documentations (
	doc_id INTEGER PRIMARY KEY AUTOINCREMENT,
	class_id INTEGER NOT NULL REFERENCES classes(class_id) ON DELETE CASCADE,
	documentation TEXT NOT NULL DEFAULT '',
	generated_at TEXT NOT NULL DEFAULT '',
	UNIQUE(class_id)
);
`

// ensureSchema creates any missing tables so read-only commands work
// against a fresh database.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(createStmts)
	return err
}

// Reset drops and recreates every analysis table in a single transaction,
// giving each analysis run a clean slate.
func (s *Store) Reset() error {
	return s.WithTransaction(func(tx *Store) error {
		if _, err := tx.q.Exec(dropStmts); err != nil {
			return err
		}
		_, err := tx.q.Exec(createStmts)
		return err
	})
}

package lang

// Language represents a supported programming language.
type Language string

const (
	Dart Language = "dart"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{Dart}
}

// LanguageSpec defines the tree-sitter node types for a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string
	// FunctionNodeTypes lists node kinds that declare a callable member.
	FunctionNodeTypes []string
	// ClassNodeTypes lists node kinds that declare a named type.
	ClassNodeTypes []string
	// CallNodeTypes lists node kinds that carry call-site argument lists.
	CallNodeTypes []string
	// ImportNodeTypes lists node kinds for import/export directives.
	ImportNodeTypes []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".dart").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

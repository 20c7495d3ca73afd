package lang

func init() {
	Register(&LanguageSpec{
		Language:       Dart,
		FileExtensions: []string{".dart"},
		FunctionNodeTypes: []string{
			"method_signature", // class member: wraps function/getter/setter signature
			"function_signature",
			"getter_signature",
			"setter_signature",
		},
		ClassNodeTypes: []string{
			"class_definition",
			"enum_declaration",
			"mixin_declaration",
		},
		CallNodeTypes:   []string{"selector"},
		ImportNodeTypes: []string{"import_or_export"},
	})
}

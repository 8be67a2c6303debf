package grammar

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/codestruct/internal/model"
)

// builtinLoaders returns a loader per built-in language. The TypeScript
// grammar also accepts plain JavaScript.
func builtinLoaders() map[model.Language]Loader {
	return map[model.Language]Loader{
		model.LangGo: func() (*tree_sitter.Language, error) {
			return tree_sitter.NewLanguage(tree_sitter_go.Language()), nil
		},
		model.LangJava: func() (*tree_sitter.Language, error) {
			return tree_sitter.NewLanguage(tree_sitter_java.Language()), nil
		},
		model.LangPython: func() (*tree_sitter.Language, error) {
			return tree_sitter.NewLanguage(tree_sitter_python.Language()), nil
		},
		model.LangRust: func() (*tree_sitter.Language, error) {
			return tree_sitter.NewLanguage(tree_sitter_rust.Language()), nil
		},
		model.LangTypeScript: func() (*tree_sitter.Language, error) {
			return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
		},
	}
}

package mcptools

import (
	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/store"
)

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK generates each tool's JSON schema from these struct tags.

// StructureFileInput is the input for the structure_file MCP tool.
type StructureFileInput struct {
	Path     string `json:"path" jsonschema:"path of the source file; also used to pick the language when none is given"`
	Content  string `json:"content,omitempty" jsonschema:"source text to parse instead of reading path from disk"`
	Language string `json:"language,omitempty" jsonschema:"language override. Values: go, java, python, rust, typescript"`
}

// StructureFileOutput is the result of the structure_file MCP tool.
type StructureFileOutput struct {
	Path         string         `json:"path"`
	Language     model.Language `json:"language"`
	ContentHash  string         `json:"contentHash"`
	SyntaxErrors bool           `json:"syntaxErrors"`
	Structs      []StructInfo   `json:"structs"`
	Scopes       *ScopeSummary  `json:"scopes,omitempty"`
}

// StructInfo is one struct of a file. Inner structures are listed after
// their enclosing struct, named Outer.Inner, because tool schemas cannot
// describe recursive types.
type StructInfo struct {
	Name           string                 `json:"name"`
	Outer          string                 `json:"outer,omitempty"`
	Type           model.DataStructType   `json:"type"`
	Package        string                 `json:"package,omitempty"`
	Module         string                 `json:"module,omitempty"`
	Extend         string                 `json:"extend,omitempty"`
	MultipleExtend []string               `json:"multipleExtend,omitempty"`
	Implements     []string               `json:"implements,omitempty"`
	Fields         []model.CodeField      `json:"fields"`
	Functions      []model.CodeFunction   `json:"functions"`
	Annotations    []model.CodeAnnotation `json:"annotations,omitempty"`
	Imports        []model.CodeImport     `json:"imports,omitempty"`
	Exports        []model.CodeExport     `json:"exports,omitempty"`
	Position       model.CodePosition     `json:"position"`
	Synthetic      bool                   `json:"synthetic,omitempty"`
}

// ScopeSummary condenses a file's scope graph.
type ScopeSummary struct {
	Scopes      int      `json:"scopes"`
	Definitions int      `json:"definitions"`
	References  int      `json:"references"`
	Unresolved  []string `json:"unresolved"`
}

// IndexDirectoryInput is the input for the index_directory MCP tool.
type IndexDirectoryInput struct {
	RepoPath     string   `json:"repoPath" jsonschema:"the path of the directory to index"`
	Languages    []string `json:"languages,omitempty" jsonschema:"languages to index (default: all enabled). Values: go, java, python, rust, typescript"`
	ExcludeDirs  []string `json:"excludeDirs,omitempty" jsonschema:"extra directory names to skip (e.g. generated)"`
	ExcludeGlobs []string `json:"excludeGlobs,omitempty" jsonschema:"extra doublestar patterns of paths to skip (e.g. **/*_gen.go)"`
}

// IndexDirectoryOutput is the result of the index_directory MCP tool.
type IndexDirectoryOutput struct {
	Stats       store.Stats         `json:"stats"`
	Clusters    []store.Cluster     `json:"clusters"`
	Diagnostics []engine.Diagnostic `json:"diagnostics"`
}

// QueryStructsInput is the input for the query_structs MCP tool.
type QueryStructsInput struct {
	Query string `json:"query" jsonschema:"substring of the struct name, case-insensitive; empty matches all"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by kind: Class, Interface, Enum, Message"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryStructsOutput is the result of the query_structs MCP tool.
type QueryStructsOutput struct {
	Structs []StructResult `json:"structs"`
	Total   int            `json:"total"`
}

// StructResult is a struct summary with its indexed relationships.
type StructResult struct {
	Struct        store.StructNode `json:"struct"`
	Extends       []string         `json:"extends,omitempty"`
	Implements    []string         `json:"implements,omitempty"`
	ImplementedBy []string         `json:"implementedBy,omitempty"`
	Inner         []string         `json:"inner,omitempty"`
}

// ResolveSymbolInput is the input for the resolve_symbol MCP tool.
type ResolveSymbolInput struct {
	Path     string `json:"path" jsonschema:"path of the source file"`
	Content  string `json:"content,omitempty" jsonschema:"source text to use instead of reading path from disk"`
	Language string `json:"language,omitempty" jsonschema:"language override"`
	Line     int    `json:"line" jsonschema:"1-based line of the reference"`
	Column   int    `json:"column" jsonschema:"0-based byte column of the reference within the line"`
}

// ResolveSymbolOutput is the result of the resolve_symbol MCP tool.
type ResolveSymbolOutput struct {
	Found      bool      `json:"found"`
	Resolved   bool      `json:"resolved"`
	Reference  *Location `json:"reference,omitempty"`
	Definition *Location `json:"definition,omitempty"`
}

// Location is a named span in a file.
type Location struct {
	Name       string `json:"name"`
	SyntaxKind string `json:"syntaxKind"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	EndLine    int    `json:"endLine"`
	EndColumn  int    `json:"endColumn"`
}

// ClassDiagramInput is the input for the class_diagram MCP tool.
type ClassDiagramInput struct {
	Path         string `json:"path,omitempty" jsonschema:"file or directory to draw a Mermaid classDiagram for"`
	Dependencies bool   `json:"dependencies,omitempty" jsonschema:"draw the file import graph of the current index instead"`
}

// ClassDiagramOutput is the result of the class_diagram MCP tool.
type ClassDiagramOutput struct {
	Diagram string `json:"diagram"`
}

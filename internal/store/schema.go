package store

import (
	"github.com/dusk-indust/codestruct/internal/model"
)

// EdgeKind classifies relationships in the struct index.
type EdgeKind string

const (
	// EdgeKindDefines links a file to a top-level struct it declares.
	EdgeKindDefines EdgeKind = "DEFINES"
	// EdgeKindContains links a struct to one of its inner structures.
	EdgeKindContains EdgeKind = "CONTAINS"
	// EdgeKindExtends links a struct to a struct it extends.
	EdgeKindExtends EdgeKind = "EXTENDS"
	// EdgeKindImplements links a struct to an interface it implements.
	EdgeKindImplements EdgeKind = "IMPLEMENTS"
	// EdgeKindImports links a file to a file it imports.
	EdgeKindImports EdgeKind = "IMPORTS"
)

// EdgeKinds lists every edge kind in a fixed order.
var EdgeKinds = []EdgeKind{EdgeKindDefines, EdgeKindContains, EdgeKindExtends, EdgeKindImplements, EdgeKindImports}

// FileNode represents an indexed source file.
type FileNode struct {
	Path         string         `json:"path"`
	Language     model.Language `json:"language"`
	ContentHash  string         `json:"contentHash"`
	StructCount  int            `json:"structCount"`
	SyntaxErrors bool           `json:"syntaxErrors,omitempty"`
}

// StructNode is the flattened summary of one CodeDataStruct. Inner
// structures are named Outer.Inner.
type StructNode struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Kind      model.DataStructType `json:"kind"`
	FilePath  string               `json:"filePath"`
	Package   string               `json:"package,omitempty"`
	Module    string               `json:"module,omitempty"`
	StartLine int                  `json:"startLine"`
	EndLine   int                  `json:"endLine"`
	Fields    int                  `json:"fields"`
	Functions int                  `json:"functions"`
	Synthetic bool                 `json:"synthetic,omitempty"`
}

// Edge is a directed relationship between two node IDs. File nodes are
// identified by path, struct nodes by StructID.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// Stats summarizes the contents of a Store.
type Stats struct {
	FileCount   int              `json:"fileCount"`
	StructCount int              `json:"structCount"`
	EdgeCount   int              `json:"edgeCount"`
	EdgesByKind map[EdgeKind]int `json:"edgesByKind"`
}

// DependencyChain is an ordered path of file IDs reached over IMPORTS edges.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}

// StructID returns the identifier of the struct name declared in filePath.
func StructID(filePath, name string) string {
	return filePath + ":" + name
}

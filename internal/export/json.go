// Package export renders parse results for downstream consumers: a JSON
// document of structs and diagnostics, and Mermaid diagrams.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/scopegraph"
)

// Document is the top-level JSON export structure.
type Document struct {
	Files       []FileExport        `json:"files"`
	Diagnostics []engine.Diagnostic `json:"diagnostics"`
}

// FileExport describes one parsed file.
type FileExport struct {
	Path         string                 `json:"path"`
	Language     model.Language         `json:"language"`
	ContentHash  string                 `json:"contentHash"`
	SyntaxErrors bool                   `json:"syntaxErrors,omitempty"`
	Structs      []model.CodeDataStruct `json:"structs"`
	ScopeGraph   *scopegraph.Graph      `json:"scopeGraph,omitempty"`
}

// JSONOptions controls WriteJSON.
type JSONOptions struct {
	// ScopeGraphs includes each file's scope graph when one was built.
	ScopeGraphs bool
	// Compact disables indentation.
	Compact bool
}

// NewDocument builds a Document from a batch. Files and diagnostics are
// ordered by path so identical input yields identical output.
func NewDocument(batch *engine.BatchResult, opts JSONOptions) *Document {
	doc := &Document{
		Files:       make([]FileExport, 0, len(batch.Files)),
		Diagnostics: append([]engine.Diagnostic{}, batch.Diagnostics...),
	}
	for _, f := range batch.Files {
		fe := FileExport{
			Path:         f.Path,
			Language:     f.Language,
			ContentHash:  fmt.Sprintf("%016x", f.ContentHash),
			SyntaxErrors: f.SyntaxErrors,
			Structs:      f.Structs,
		}
		if fe.Structs == nil {
			fe.Structs = []model.CodeDataStruct{}
		}
		if opts.ScopeGraphs {
			fe.ScopeGraph = f.Graph
		}
		doc.Files = append(doc.Files, fe)
	}
	sort.SliceStable(doc.Files, func(i, j int) bool { return doc.Files[i].Path < doc.Files[j].Path })
	sort.SliceStable(doc.Diagnostics, func(i, j int) bool { return doc.Diagnostics[i].Path < doc.Diagnostics[j].Path })
	return doc
}

// WriteJSON encodes batch as a Document to w.
func WriteJSON(w io.Writer, batch *engine.BatchResult, opts JSONOptions) error {
	enc := json.NewEncoder(w)
	if !opts.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(NewDocument(batch, opts)); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	return nil
}

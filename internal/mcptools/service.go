package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/export"
	"github.com/dusk-indust/codestruct/internal/logging"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/scopegraph"
	"github.com/dusk-indust/codestruct/internal/store"
)

// Service holds the engine and index store used by MCP tool handlers.
type Service struct {
	engine *engine.Engine
	store  store.Store
	scan   engine.ScanOptions
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithScanOptions sets the directory filters applied before per-call ones.
func WithScanOptions(opts engine.ScanOptions) ServiceOption {
	return func(s *Service) { s.scan = opts }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. The store's schema is created lazily by
// the first index_directory call.
func NewService(eng *engine.Engine, st store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		engine: eng,
		store:  st,
		scan:   engine.ScanOptions{Languages: eng.Languages()},
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mcptools")
	return s
}

// parseInput reads and parses one file for the per-file tools.
func (s *Service) parseInput(ctx context.Context, path, content, language string) (*engine.FileResult, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	lang := model.Language(language)
	if language == "" {
		l, ok := model.LanguageForPath(path)
		if !ok {
			return nil, fmt.Errorf("cannot infer language of %s; pass language", path)
		}
		lang = l
	} else if langs := model.ParseLanguages([]string{language}); len(langs) == 1 {
		lang = langs[0]
	}

	src := []byte(content)
	if content == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read path: %w", err)
		}
		src = data
	}
	return s.engine.ParseFile(ctx, engine.FileInput{Path: filepath.ToSlash(path), Content: src, Language: lang})
}

// StructureFile parses one file and returns its structs and a summary of
// its scope graph.
func (s *Service) StructureFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StructureFileInput,
) (*mcp.CallToolResult, StructureFileOutput, error) {
	res, err := s.parseInput(ctx, input.Path, input.Content, input.Language)
	if err != nil {
		return nil, StructureFileOutput{}, fmt.Errorf("structure file: %w", err)
	}

	out := StructureFileOutput{
		Path:         res.Path,
		Language:     res.Language,
		ContentHash:  fmt.Sprintf("%016x", res.ContentHash),
		SyntaxErrors: res.SyntaxErrors,
		Structs:      flatten(res.Structs),
	}
	if res.Graph != nil {
		out.Scopes = summarize(res.Graph)
	}
	return nil, out, nil
}

// flatten lists structs depth-first with inner structures after their
// enclosing struct.
func flatten(structs []model.CodeDataStruct) []StructInfo {
	out := []StructInfo{}
	for i := range structs {
		structs[i].Walk(func(name string, ds *model.CodeDataStruct) bool {
			out = append(out, StructInfo{
				Name:           name,
				Outer:          strings.TrimSuffix(strings.TrimSuffix(name, ds.NodeName), "."),
				Type:           ds.Type,
				Package:        ds.Package,
				Module:         ds.Module,
				Extend:         ds.Extend,
				MultipleExtend: ds.MultipleExtend,
				Implements:     ds.Implements,
				Fields:         ds.Fields,
				Functions:      ds.Functions,
				Annotations:    ds.Annotations,
				Imports:        ds.Imports,
				Exports:        ds.Exports,
				Position:       ds.Position,
				Synthetic:      ds.IsSynthetic(),
			})
			return true
		})
	}
	return out
}

func summarize(g *scopegraph.Graph) *ScopeSummary {
	sum := &ScopeSummary{Unresolved: []string{}}
	for range g.Scopes() {
		sum.Scopes++
	}
	for range g.Definitions() {
		sum.Definitions++
	}
	for range g.References() {
		sum.References++
	}
	for _, id := range g.Unresolved() {
		if n, ok := g.Node(id); ok && !slices.Contains(sum.Unresolved, n.Name) {
			sum.Unresolved = append(sum.Unresolved, n.Name)
		}
	}
	sort.Strings(sum.Unresolved)
	return sum
}

// IndexDirectory scans a directory, parses every matching file and writes
// the structs into the index. Re-indexing upserts files and structs.
func (s *Service) IndexDirectory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexDirectoryInput,
) (*mcp.CallToolResult, IndexDirectoryOutput, error) {
	if input.RepoPath == "" {
		return nil, IndexDirectoryOutput{}, errors.New("repoPath is required")
	}

	opts := s.scan
	if len(input.Languages) > 0 {
		opts.Languages = model.ParseLanguages(input.Languages)
	}
	opts.ExcludeDirs = append(slices.Clone(opts.ExcludeDirs), input.ExcludeDirs...)
	opts.ExcludeGlobs = append(slices.Clone(opts.ExcludeGlobs), input.ExcludeGlobs...)

	files, err := engine.Scan(input.RepoPath, opts)
	if err != nil {
		return nil, IndexDirectoryOutput{}, fmt.Errorf("cannot access repoPath: %w", err)
	}
	batch, err := s.engine.ParseBatch(ctx, files)
	if err != nil {
		return nil, IndexDirectoryOutput{}, fmt.Errorf("parse: %w", err)
	}

	if err := s.store.InitSchema(ctx); err != nil {
		return nil, IndexDirectoryOutput{}, fmt.Errorf("init schema: %w", err)
	}
	if err := store.Index(ctx, s.store, batch.Files, store.WithRepoRoot(input.RepoPath), store.WithIndexLogger(s.logger)); err != nil {
		return nil, IndexDirectoryOutput{}, fmt.Errorf("index: %w", err)
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, IndexDirectoryOutput{}, fmt.Errorf("stats: %w", err)
	}
	clusters, err := store.Clusters(ctx, s.store)
	if err != nil {
		return nil, IndexDirectoryOutput{}, fmt.Errorf("clusters: %w", err)
	}
	out := IndexDirectoryOutput{Stats: *stats, Clusters: clusters, Diagnostics: batch.Diagnostics}
	if out.Diagnostics == nil {
		out.Diagnostics = []engine.Diagnostic{}
	}
	s.logger.InfoContext(ctx, "directory indexed", "path", input.RepoPath, "files", len(batch.Files), "diagnostics", len(out.Diagnostics))
	return nil, out, nil
}

// QueryStructs searches the index by struct name and attaches each match's
// relationships.
func (s *Service) QueryStructs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryStructsInput,
) (*mcp.CallToolResult, QueryStructsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	nodes, err := s.store.QueryStructs(ctx, input.Query, model.DataStructType(input.Kind), limit)
	if err != nil {
		return nil, QueryStructsOutput{}, fmt.Errorf("query structs: %w", err)
	}

	out := QueryStructsOutput{Structs: make([]StructResult, 0, len(nodes))}
	for _, n := range nodes {
		r := StructResult{Struct: n}
		for _, rel := range []struct {
			kind store.EdgeKind
			dir  store.Direction
			dst  *[]string
		}{
			{store.EdgeKindExtends, store.DirectionOutgoing, &r.Extends},
			{store.EdgeKindImplements, store.DirectionOutgoing, &r.Implements},
			{store.EdgeKindImplements, store.DirectionIncoming, &r.ImplementedBy},
			{store.EdgeKindContains, store.DirectionOutgoing, &r.Inner},
		} {
			ids, err := s.store.Related(ctx, n.ID, rel.kind, rel.dir)
			if err != nil {
				return nil, QueryStructsOutput{}, fmt.Errorf("related %s: %w", n.ID, err)
			}
			if len(ids) > 0 {
				*rel.dst = ids
			}
		}
		out.Structs = append(out.Structs, r)
	}
	out.Total = len(out.Structs)
	return nil, out, nil
}

// ResolveSymbol finds the reference at a position and the definition it
// resolves to within the same file.
func (s *Service) ResolveSymbol(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResolveSymbolInput,
) (*mcp.CallToolResult, ResolveSymbolOutput, error) {
	if input.Line <= 0 {
		return nil, ResolveSymbolOutput{}, errors.New("line must be 1 or greater")
	}
	res, err := s.parseInput(ctx, input.Path, input.Content, input.Language)
	if err != nil {
		return nil, ResolveSymbolOutput{}, fmt.Errorf("resolve symbol: %w", err)
	}
	if res.Graph == nil {
		return nil, ResolveSymbolOutput{}, errors.New("resolve symbol: scope graphs are disabled")
	}

	ref, ok := res.Graph.ReferenceAt(input.Line, input.Column)
	if !ok {
		return nil, ResolveSymbolOutput{}, nil
	}
	out := ResolveSymbolOutput{Found: true, Reference: location(ref)}
	if defID, ok := res.Graph.Resolve(ref.ID); ok {
		def, _ := res.Graph.Node(defID)
		out.Resolved = true
		out.Definition = location(def)
	}
	return nil, out, nil
}

func location(n scopegraph.Node) *Location {
	return &Location{
		Name:       n.Name,
		SyntaxKind: n.SyntaxKind,
		Line:       n.Range.Start.Line,
		Column:     n.Range.Start.Column,
		EndLine:    n.Range.End.Line,
		EndColumn:  n.Range.End.Column,
	}
}

// ClassDiagram draws a Mermaid classDiagram for a file or directory, or the
// import graph of the index.
func (s *Service) ClassDiagram(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClassDiagramInput,
) (*mcp.CallToolResult, ClassDiagramOutput, error) {
	if input.Dependencies {
		d, err := export.DependencyDiagram(ctx, s.store)
		if err != nil {
			return nil, ClassDiagramOutput{}, fmt.Errorf("dependency diagram: %w", err)
		}
		return nil, ClassDiagramOutput{Diagram: d}, nil
	}
	if input.Path == "" {
		return nil, ClassDiagramOutput{}, errors.New("path is required")
	}

	info, err := os.Stat(input.Path)
	if err != nil {
		return nil, ClassDiagramOutput{}, fmt.Errorf("cannot access path: %w", err)
	}
	var structs []model.CodeDataStruct
	if info.IsDir() {
		files, err := engine.Scan(input.Path, s.scan)
		if err != nil {
			return nil, ClassDiagramOutput{}, err
		}
		batch, err := s.engine.ParseBatch(ctx, files)
		if err != nil {
			return nil, ClassDiagramOutput{}, fmt.Errorf("parse: %w", err)
		}
		for _, f := range batch.Files {
			structs = append(structs, f.Structs...)
		}
	} else {
		res, err := s.parseInput(ctx, input.Path, "", "")
		if err != nil {
			return nil, ClassDiagramOutput{}, err
		}
		structs = res.Structs
	}
	return nil, ClassDiagramOutput{Diagram: export.ClassDiagram(structs)}, nil
}

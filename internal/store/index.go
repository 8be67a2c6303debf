package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/logging"
	"github.com/dusk-indust/codestruct/internal/model"
)

// IndexOption configures Index.
type IndexOption func(*indexer)

// WithRepoRoot lets the import resolver read go.mod and package.json
// workspaces under root.
func WithRepoRoot(root string) IndexOption {
	return func(ix *indexer) { ix.repoRoot = root }
}

// WithIndexLogger sets the logger used for the index summary.
func WithIndexLogger(l *slog.Logger) IndexOption {
	return func(ix *indexer) { ix.logger = l }
}

type indexer struct {
	store    Store
	repoRoot string
	logger   *slog.Logger

	nodes  []StructNode
	byID   map[string]StructNode
	owners map[string]model.CodeDataStruct // struct ID → source struct
	byName map[string][]string             // simple and dotted name → struct IDs
}

// Index writes results into s: one file node per result, one struct node
// per struct and inner structure, DEFINES and CONTAINS edges, EXTENDS and
// IMPLEMENTS edges linked by name across the whole batch, and IMPORTS edges
// for imports that resolve to another indexed file. The schema must already
// exist.
func Index(ctx context.Context, s Store, results []*engine.FileResult, opts ...IndexOption) error {
	ix := &indexer{
		store:  s,
		logger: logging.Discard(),
		owners: make(map[string]model.CodeDataStruct),
		byID:   make(map[string]StructNode),
		byName: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(ix)
	}

	known := make([]string, 0, len(results))
	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ix.addFile(ctx, res); err != nil {
			return err
		}
		known = append(known, res.Path)
	}

	relations, err := ix.linkRelations(ctx)
	if err != nil {
		return err
	}
	imports, err := ix.linkImports(ctx, results, NewResolver(ix.repoRoot, known))
	if err != nil {
		return err
	}

	ix.logger.Info("index written",
		"files", len(results), "structs", len(ix.nodes), "relations", relations, "imports", imports)
	return nil
}

func (ix *indexer) addFile(ctx context.Context, res *engine.FileResult) error {
	var nodes []StructNode
	var edges []Edge
	seen := make(map[string]bool)

	var walk func(parentID, prefix string, ds model.CodeDataStruct)
	walk = func(parentID, prefix string, ds model.CodeDataStruct) {
		name := prefix + ds.NodeName
		id := StructID(res.Path, name)
		if seen[id] {
			ix.logger.Debug("duplicate struct skipped", "path", res.Path, "name", name)
			return
		}
		seen[id] = true

		synthetic, _ := ds.Extension[model.ExtSynthetic].(bool)
		nodes = append(nodes, StructNode{
			ID:        id,
			Name:      name,
			Kind:      ds.Type,
			FilePath:  res.Path,
			Package:   ds.Package,
			Module:    ds.Module,
			StartLine: ds.Position.StartLine,
			EndLine:   ds.Position.StopLine,
			Fields:    len(ds.Fields),
			Functions: len(ds.Functions),
			Synthetic: synthetic,
		})
		ix.owners[id] = ds
		if parentID == "" {
			edges = append(edges, Edge{SourceID: res.Path, TargetID: id, Kind: EdgeKindDefines})
		} else {
			edges = append(edges, Edge{SourceID: parentID, TargetID: id, Kind: EdgeKindContains})
		}
		for _, inner := range ds.InnerStructures {
			walk(id, name+".", inner)
		}
	}
	for _, ds := range res.Structs {
		walk("", "", ds)
	}

	if err := ix.store.AddFile(ctx, FileNode{
		Path:         res.Path,
		Language:     res.Language,
		ContentHash:  fmt.Sprintf("%016x", res.ContentHash),
		StructCount:  len(nodes),
		SyntaxErrors: res.SyntaxErrors,
	}); err != nil {
		return fmt.Errorf("index %s: %w", res.Path, err)
	}
	for _, n := range nodes {
		if err := ix.store.AddStruct(ctx, n); err != nil {
			return fmt.Errorf("index %s: %w", n.ID, err)
		}
		ix.byID[n.ID] = n
		ix.byName[n.Name] = append(ix.byName[n.Name], n.ID)
		if short := lastSegment(n.Name); short != n.Name {
			ix.byName[short] = append(ix.byName[short], n.ID)
		}
	}
	for _, e := range edges {
		if err := ix.store.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("index %s: %w", res.Path, err)
		}
	}
	ix.nodes = append(ix.nodes, nodes...)
	return nil
}

type supertype struct {
	name string
	kind EdgeKind
}

// linkRelations adds EXTENDS and IMPLEMENTS edges for every supertype name
// that resolves to exactly one indexed struct.
func (ix *indexer) linkRelations(ctx context.Context) (int, error) {
	added := 0
	for _, n := range ix.nodes {
		ds := ix.owners[n.ID]
		var targets []supertype
		if ds.Extend != "" {
			targets = append(targets, supertype{ds.Extend, EdgeKindExtends})
		}
		for _, name := range ds.MultipleExtend {
			targets = append(targets, supertype{name, EdgeKindExtends})
		}
		for _, name := range ds.Implements {
			targets = append(targets, supertype{name, EdgeKindImplements})
		}

		for _, t := range targets {
			target, ok := ix.lookup(n, t.name)
			if !ok || target == n.ID {
				continue
			}
			if err := ix.store.AddEdge(ctx, Edge{SourceID: n.ID, TargetID: target, Kind: t.kind}); err != nil {
				return added, fmt.Errorf("index %s: %w", n.ID, err)
			}
			added++
		}
	}
	return added, nil
}

// lookup finds the struct a type reference names. Generic arguments are
// stripped. A qualified reference such as io.Reader only matches structs
// whose package or module agrees with the qualifier. Among the remaining
// candidates one in the same file wins, then one in the same package, then
// the only candidate in the batch.
func (ix *indexer) lookup(from StructNode, ref string) (string, bool) {
	name := baseTypeName(ref)
	candidates := ix.byName[name]
	if short := lastSegment(name); len(candidates) == 0 && short != name {
		qual := qualifier(name)
		for _, id := range ix.byName[short] {
			if inScope(ix.byID[id], qual) {
				candidates = append(candidates, id)
			}
		}
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	var samePkg []string
	for _, id := range candidates {
		owner := ix.byID[id]
		if owner.FilePath == from.FilePath {
			return id, true
		}
		if from.Package != "" && owner.Package == from.Package {
			samePkg = append(samePkg, id)
		}
	}
	if len(samePkg) == 1 {
		return samePkg[0], true
	}
	return "", false
}

// linkImports adds IMPORTS edges for imports that resolve to indexed files.
func (ix *indexer) linkImports(ctx context.Context, results []*engine.FileResult, r *Resolver) (int, error) {
	added := 0
	for _, res := range results {
		sources := make(map[string]bool)
		for _, ds := range res.Structs {
			for _, imp := range ds.Imports {
				sources[imp.Source] = true
			}
		}
		targets := make(map[string]bool)
		for src := range sources {
			if target, ok := r.Resolve(res.Language, src, res.Path); ok && target != res.Path {
				targets[target] = true
			}
		}
		sorted := make([]string, 0, len(targets))
		for t := range targets {
			sorted = append(sorted, t)
		}
		sort.Strings(sorted)
		for _, t := range sorted {
			if err := ix.store.AddEdge(ctx, Edge{SourceID: res.Path, TargetID: t, Kind: EdgeKindImports}); err != nil {
				return added, fmt.Errorf("index %s: %w", res.Path, err)
			}
			added++
		}
	}
	return added, nil
}

// baseTypeName strips generic arguments, pointers and references from a
// type reference: "Repository<User>" → "Repository", "*io.Reader" → "io.Reader".
func baseTypeName(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimLeft(ref, "*&")
	ref = strings.TrimPrefix(ref, "dyn ")
	if i := strings.IndexAny(ref, "<[("); i > 0 {
		ref = ref[:i]
	}
	return strings.TrimSpace(ref)
}

// qualifier returns everything before the final segment of name.
func qualifier(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[:i]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}

// inScope reports whether n lives in the package or module qual names,
// either spelled out in full or by its last segment.
func inScope(n StructNode, qual string) bool {
	for _, scope := range []string{n.Package, n.Module} {
		if scope == "" {
			continue
		}
		if scope == qual || lastSegment(strings.ReplaceAll(scope, "/", ".")) == lastSegment(qual) {
			return true
		}
	}
	return false
}

// lastSegment returns the final dotted or path-qualified segment of name.
func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

package scopegraph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

// ErrNoInput is returned when Build is called without a tree or query.
var ErrNoInput = errors.New("scope graph needs a tree and a locals query")

// Builder turns locals-query captures into scope graphs. A Builder holds no
// per-file state and may be shared.
type Builder struct {
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(b)
	}
	return b
}

// captured is a capture with its position in query output, used to break
// ties between nodes that start at the same byte.
type captured struct {
	node  tree_sitter.Node
	order int
}

func byDocumentOrder(a, b captured) int {
	if a.node.StartByte() != b.node.StartByte() {
		return int(a.node.StartByte()) - int(b.node.StartByte())
	}
	return a.order - b.order
}

// Build constructs the finalized scope graph of tree. locals must carry the
// @scope, @definition, @definition.parent and @reference captures. Nodes
// captured as @reference.ignore never become references.
func (b *Builder) Build(tree *syntax.Tree, path string, locals *syntax.Query) (*Graph, error) {
	if tree == nil || locals == nil {
		return nil, ErrNoInput
	}
	root := tree.Root()
	g := newGraph(path, tree.Language())
	r := syntax.NodeRange(root)
	g.add(Node{Kind: KindScope, SyntaxKind: root.Kind(), Range: r, Scope: NoNode})

	var (
		scopes, defs, parentDefs, refs []captured
		ignored                        = make(map[uintptr]bool)
		i                              int
	)
	for c := range tree.Captures(locals, nil) {
		cc := captured{node: c.Node, order: i}
		i++
		switch c.Name {
		case queries.CaptureScope:
			scopes = append(scopes, cc)
		case queries.CaptureDefinition:
			defs = append(defs, cc)
		case queries.CaptureDefinitionParent:
			parentDefs = append(parentDefs, cc)
		case queries.CaptureReference:
			refs = append(refs, cc)
		case queries.CaptureReferenceIgnore:
			ignored[c.Node.Id()] = true
		}
	}

	s := &buildState{g: g, tree: tree, root: root, scopeOf: map[uintptr]NodeID{root.Id(): RootID}, ignored: ignored}
	steps := []struct {
		to  State
		run func()
	}{
		{StateScopesCollected, func() { s.collectScopes(scopes) }},
		{StateDefinitionsBound, func() { s.bindDefinitions(defs, parentDefs) }},
		{StateReferencesResolved, func() { s.resolveReferences(refs) }},
		{StateFinalized, func() {}},
	}
	for _, step := range steps {
		step.run()
		if err := g.advance(step.to); err != nil {
			return nil, fmt.Errorf("build scope graph %s: %w", path, err)
		}
	}

	b.logger.Debug("scope graph built",
		"path", path,
		"nodes", len(g.nodes),
		"edges", len(g.edges),
		"unresolved", len(g.Unresolved()))
	return g, nil
}

type buildState struct {
	g       *Graph
	tree    *syntax.Tree
	root    *tree_sitter.Node
	scopeOf map[uintptr]NodeID // syntax node id -> scope node
	defined map[uintptr]bool   // syntax nodes bound as definitions
	ignored map[uintptr]bool   // syntax nodes that are never references
}

// collectScopes nests scopes by byte containment. Sorting by start ascending
// and end descending puts every parent before its children; identical ranges
// keep capture order, so the first one captured is the parent.
func (s *buildState) collectScopes(caps []captured) {
	slices.SortStableFunc(caps, func(a, b captured) int {
		if a.node.StartByte() != b.node.StartByte() {
			return int(a.node.StartByte()) - int(b.node.StartByte())
		}
		if a.node.EndByte() != b.node.EndByte() {
			return int(b.node.EndByte()) - int(a.node.EndByte())
		}
		return a.order - b.order
	})

	stack := []NodeID{RootID}
	for _, c := range caps {
		n := c.node
		if _, dup := s.scopeOf[n.Id()]; dup {
			continue
		}
		r := syntax.NodeRange(&n)
		for len(stack) > 1 && !s.g.nodes[stack[len(stack)-1]].Range.Contains(r) {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		id := s.g.add(Node{Kind: KindScope, SyntaxKind: n.Kind(), Range: r, Scope: parent})
		s.g.edges = append(s.g.edges, Edge{From: id, To: parent, Kind: EdgeParentScope})
		s.scopeOf[n.Id()] = id
		stack = append(stack, id)
	}
}

// innermost returns the closest scope strictly enclosing n.
func (s *buildState) innermost(n *tree_sitter.Node) NodeID {
	for a := range syntax.Ancestors(n) {
		if id, ok := s.scopeOf[a.Id()]; ok {
			return id
		}
	}
	return RootID
}

// bindDefinitions binds each definition in its innermost scope, or in that
// scope's parent for @definition.parent captures. A node captured both ways
// binds in the parent.
func (s *buildState) bindDefinitions(defs, parentDefs []captured) {
	toParent := make(map[uintptr]bool, len(parentDefs))
	for _, c := range parentDefs {
		toParent[c.node.Id()] = true
	}
	all := slices.Concat(defs, parentDefs)
	slices.SortStableFunc(all, byDocumentOrder)

	s.defined = make(map[uintptr]bool, len(all))
	for _, c := range all {
		n := c.node
		if s.defined[n.Id()] {
			continue
		}
		name := s.tree.Text(&n)
		if name == "" {
			continue
		}
		s.defined[n.Id()] = true

		scope := s.innermost(&n)
		if toParent[n.Id()] && scope != RootID {
			scope = s.g.nodes[scope].Scope
		}
		id := s.g.add(Node{Kind: KindDefinition, Name: name, SyntaxKind: n.Kind(), Range: s.tree.Range(&n), Scope: scope})
		s.g.bind(scope, id, name)
	}
}

// resolveReferences adds every reference that is neither a definition nor
// ignored and links it to the nearest visible definition of the same name.
func (s *buildState) resolveReferences(refs []captured) {
	slices.SortStableFunc(refs, byDocumentOrder)
	seen := make(map[uintptr]bool, len(refs))
	for _, c := range refs {
		n := c.node
		if s.defined[n.Id()] || s.ignored[n.Id()] || seen[n.Id()] {
			continue
		}
		seen[n.Id()] = true
		name := s.tree.Text(&n)
		if name == "" {
			continue
		}
		scope := s.innermost(&n)
		id := s.g.add(Node{Kind: KindReference, Name: name, SyntaxKind: n.Kind(), Range: s.tree.Range(&n), Scope: scope})
		if def, ok := s.g.lookup(scope, name); ok {
			s.g.resolved[id] = def
			s.g.edges = append(s.g.edges, Edge{From: id, To: def, Kind: EdgeResolvesTo})
		}
	}
}

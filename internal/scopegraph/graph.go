// Package scopegraph builds per-file lexical scope graphs that link symbol
// references to the definitions they resolve to.
package scopegraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/cespare/xxhash/v2"

	"github.com/dusk-indust/codestruct/internal/model"
)

// ErrInvalidTransition is returned when a graph is moved to a state other
// than the one directly after its current state.
var ErrInvalidTransition = errors.New("invalid scope graph transition")

// NodeID addresses a node in a graph's arena.
type NodeID int

const (
	// RootID is the file scope.
	RootID NodeID = 0
	// NoNode marks the absence of a node, such as the parent of the root.
	NoNode NodeID = -1
)

// Kind classifies graph nodes.
type Kind string

const (
	KindScope      Kind = "scope"
	KindDefinition Kind = "definition"
	KindReference  Kind = "reference"
)

// EdgeKind classifies graph edges.
type EdgeKind string

const (
	EdgeParentScope EdgeKind = "parent-scope" // child scope -> parent scope
	EdgeDefines     EdgeKind = "defines"      // scope -> definition
	EdgeResolvesTo  EdgeKind = "resolves-to"  // reference -> definition
)

// State is the build stage of a graph.
type State int

const (
	StateParsed State = iota
	StateScopesCollected
	StateDefinitionsBound
	StateReferencesResolved
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateScopesCollected:
		return "scopes_collected"
	case StateDefinitionsBound:
		return "definitions_bound"
	case StateReferencesResolved:
		return "references_resolved"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Node is a scope, definition or reference. Scope holds the enclosing scope
// (for scopes, the parent scope; NoNode for the root).
type Node struct {
	ID         NodeID          `json:"id"`
	Kind       Kind            `json:"kind"`
	Name       string          `json:"name,omitempty"`
	SyntaxKind string          `json:"syntaxKind"`
	Range      model.TextRange `json:"range"`
	Scope      NodeID          `json:"scope"`
}

// Edge connects two nodes of the same graph.
type Edge struct {
	From NodeID   `json:"from"`
	To   NodeID   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Graph is the scope graph of one file. A graph returned by Builder.Build is
// finalized and never changes afterwards, so it may be read concurrently.
type Graph struct {
	path     string
	language model.Language
	state    State

	nodes    []Node
	edges    []Edge
	bindings map[NodeID]map[string][]NodeID // scope -> name -> definitions in document order
	resolved map[NodeID]NodeID
}

func newGraph(path string, lang model.Language) *Graph {
	return &Graph{
		path:     path,
		language: lang,
		state:    StateParsed,
		bindings: make(map[NodeID]map[string][]NodeID),
		resolved: make(map[NodeID]NodeID),
	}
}

// advance moves the graph to the next state. Skipping or repeating a state
// fails with ErrInvalidTransition.
func (g *Graph) advance(to State) error {
	if to != g.state+1 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.state, to)
	}
	g.state = to
	return nil
}

func (g *Graph) add(n Node) NodeID {
	n.ID = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return n.ID
}

func (g *Graph) bind(scope, def NodeID, name string) {
	names := g.bindings[scope]
	if names == nil {
		names = make(map[string][]NodeID)
		g.bindings[scope] = names
	}
	names[name] = append(names[name], def)
	g.edges = append(g.edges, Edge{From: scope, To: def, Kind: EdgeDefines})
}

// lookup walks from scope to the root and returns the first definition of
// name it meets.
func (g *Graph) lookup(scope NodeID, name string) (NodeID, bool) {
	for s := scope; s != NoNode; s = g.nodes[s].Scope {
		if defs := g.bindings[s][name]; len(defs) > 0 {
			return defs[0], true
		}
	}
	return NoNode, false
}

// Path returns the file path the graph was built for.
func (g *Graph) Path() string { return g.path }

// Language returns the language of the file.
func (g *Graph) Language() model.Language { return g.language }

// State returns the build stage; graphs handed out by Build are finalized.
func (g *Graph) State() State { return g.state }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(g.nodes) {
		return Node{}, false
	}
	return g.nodes[id], true
}

// Resolve returns the definition a reference resolves to. ok is false for
// unresolved references and for ids that are not references.
func (g *Graph) Resolve(ref NodeID) (NodeID, bool) {
	def, ok := g.resolved[ref]
	return def, ok
}

// Scopes yields scope nodes in arena order; the root comes first.
func (g *Graph) Scopes() iter.Seq[Node] { return g.ofKind(KindScope) }

// Definitions yields definition nodes in document order.
func (g *Graph) Definitions() iter.Seq[Node] { return g.ofKind(KindDefinition) }

// References yields reference nodes in document order.
func (g *Graph) References() iter.Seq[Node] { return g.ofKind(KindReference) }

func (g *Graph) ofKind(k Kind) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range g.nodes {
			if n.Kind == k && !yield(n) {
				return
			}
		}
	}
}

// DefinitionsNamed returns every definition called name, in document order.
func (g *Graph) DefinitionsNamed(name string) []Node {
	var out []Node
	for n := range g.Definitions() {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

// Unresolved returns the ids of references without a definition in the file.
func (g *Graph) Unresolved() []NodeID {
	var out []NodeID
	for n := range g.References() {
		if _, ok := g.resolved[n.ID]; !ok {
			out = append(out, n.ID)
		}
	}
	return out
}

// ReferenceAt returns the reference covering a 1-based line and 0-based
// byte column.
func (g *Graph) ReferenceAt(line, column int) (Node, bool) {
	for n := range g.References() {
		s, e := n.Range.Start, n.Range.End
		if s.Line != line || e.Line != line {
			continue
		}
		if column >= s.Column && column < e.Column {
			return n, true
		}
	}
	return Node{}, false
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

type graphJSON struct {
	Path     string         `json:"path"`
	Language model.Language `json:"language"`
	Nodes    []Node         `json:"nodes"`
	Edges    []Edge         `json:"edges"`
}

// MarshalJSON encodes the arena and edges. Equal input text yields equal
// bytes.
func (g *Graph) MarshalJSON() ([]byte, error) {
	nodes, edges := g.nodes, g.edges
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return json.Marshal(graphJSON{Path: g.path, Language: g.language, Nodes: nodes, Edges: edges})
}

// Fingerprint hashes the JSON form of the graph.
func (g *Graph) Fingerprint() (uint64, error) {
	data, err := g.MarshalJSON()
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

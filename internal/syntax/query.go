package syntax

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Query is a compiled capture pattern bound to one grammar. A compiled query
// is read-only and may be shared between goroutines; cursors are per call.
type Query struct {
	name  string
	q     *tree_sitter.Query
	names []string
}

// Compile compiles source against grammar. name is used in error messages.
func Compile(grammar *tree_sitter.Language, name, source string) (*Query, error) {
	q, qerr := tree_sitter.NewQuery(grammar, source)
	if qerr != nil {
		return nil, fmt.Errorf("compile query %s: %w", name, qerr)
	}
	return &Query{name: name, q: q, names: q.CaptureNames()}, nil
}

// Name returns the query name given at compile time.
func (q *Query) Name() string {
	return q.name
}

// CaptureNames returns the capture names declared by the query.
func (q *Query) CaptureNames() []string {
	out := make([]string, len(q.names))
	copy(out, q.names)
	return out
}

// Close releases the compiled query.
func (q *Query) Close() {
	if q.q != nil {
		q.q.Close()
		q.q = nil
	}
}

// copyMatch detaches a match from the cursor that produced it.
func (q *Query) copyMatch(m *tree_sitter.QueryMatch) Match {
	out := Match{Pattern: int(m.PatternIndex), Captures: make([]Capture, 0, len(m.Captures))}
	for _, c := range m.Captures {
		out.Captures = append(out.Captures, Capture{
			Name: q.names[c.Index],
			Node: c.Node,
		})
	}
	return out
}

// Capture is one named node of a match.
type Capture struct {
	Name string
	Node tree_sitter.Node
}

// Match is one match of a query pattern.
type Match struct {
	Pattern  int
	Captures []Capture
}

// Node returns the first capture with the given name.
func (m Match) Node(name string) (*tree_sitter.Node, bool) {
	for i := range m.Captures {
		if m.Captures[i].Name == name {
			return &m.Captures[i].Node, true
		}
	}
	return nil, false
}

// Nodes returns every capture with the given name.
func (m Match) Nodes(name string) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for i := range m.Captures {
		if m.Captures[i].Name == name {
			out = append(out, &m.Captures[i].Node)
		}
	}
	return out
}

// Package syntax adapts tree-sitter concrete syntax trees to the
// language-neutral position model and runs capture queries against them.
package syntax

import (
	"iter"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/model"
)

// Tree is the immutable result of parsing one file against one grammar.
// It is owned by the caller of the parse and must be closed to release the
// underlying C memory.
type Tree struct {
	tree    *tree_sitter.Tree
	source  []byte
	lang    model.Language
	grammar *tree_sitter.Language
}

// NewTree wraps a tree-sitter tree. The tree keeps the grammar pointer it was
// parsed with, so later grammar registrations never affect it.
func NewTree(t *tree_sitter.Tree, source []byte, lang model.Language, grammar *tree_sitter.Language) *Tree {
	return &Tree{tree: t, source: source, lang: lang, grammar: grammar}
}

// Root returns the root node.
func (t *Tree) Root() *tree_sitter.Node {
	return t.tree.RootNode()
}

// Source returns the parsed text.
func (t *Tree) Source() []byte {
	return t.source
}

// Language returns the language tag the tree was parsed as.
func (t *Tree) Language() model.Language {
	return t.lang
}

// Grammar returns the grammar the tree was parsed with.
func (t *Tree) Grammar() *tree_sitter.Language {
	return t.grammar
}

// HasErrors reports whether the parser had to recover from syntax errors.
func (t *Tree) HasErrors() bool {
	return t.Root().HasError()
}

// Close releases the tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(t.source)
}

// Range converts n into a TextRange. Byte offsets, rows and columns all come
// from the same node, so they are always consistent with each other.
func (t *Tree) Range(n *tree_sitter.Node) model.TextRange {
	r := NodeRange(n)
	r.Text = t.Text(n)
	return r
}

// RangeBetween covers first through last, which must belong to t and start
// in that order.
func (t *Tree) RangeBetween(first, last *tree_sitter.Node) model.TextRange {
	r := NodeRange(first)
	end := NodeRange(last)
	r.End = end.End
	r.Text = string(t.source[r.Start.ByteOffset:r.End.ByteOffset])
	return r
}

// NodeRange is Range without the text slice.
func NodeRange(n *tree_sitter.Node) model.TextRange {
	start, end := n.StartPosition(), n.EndPosition()
	return model.TextRange{
		Start: model.Point{Line: int(start.Row) + 1, Column: int(start.Column), ByteOffset: int(n.StartByte())},
		End:   model.Point{Line: int(end.Row) + 1, Column: int(end.Column), ByteOffset: int(n.EndByte())},
	}
}

// Position returns the CodePosition of n.
func Position(n *tree_sitter.Node) model.CodePosition {
	return NodeRange(n).Position()
}

// FindAll runs q against the subtree rooted at n (the tree root when n is
// nil). The sequence is lazy and restartable: every iteration opens a fresh
// cursor, so ranging over it twice yields the same matches in the same order.
func (t *Tree) FindAll(q *Query, n *tree_sitter.Node) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		node := n
		if node == nil {
			node = t.Root()
		}
		qc := tree_sitter.NewQueryCursor()
		defer qc.Close()

		matches := qc.Matches(q.q, node, t.source)
		for {
			m := matches.Next()
			if m == nil {
				return
			}
			if !yield(q.copyMatch(m)) {
				return
			}
		}
	}
}

// Captures flattens FindAll into individual captures in match order.
func (t *Tree) Captures(q *Query, n *tree_sitter.Node) iter.Seq[Capture] {
	return func(yield func(Capture) bool) {
		for m := range t.FindAll(q, n) {
			for _, c := range m.Captures {
				if !yield(c) {
					return
				}
			}
		}
	}
}

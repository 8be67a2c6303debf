package syntax

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// SameNode reports whether a and b are the same node of the same tree.
func SameNode(a, b *tree_sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Id() == b.Id()
}

// FieldText returns the text of n's child under field, or "".
func FieldText(n *tree_sitter.Node, field string, source []byte) string {
	if n == nil {
		return ""
	}
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return c.Utf8Text(source)
}

// ChildrenByField returns every child of n stored under field.
func ChildrenByField(n *tree_sitter.Node, field string) []tree_sitter.Node {
	if n == nil {
		return nil
	}
	cursor := n.Walk()
	defer cursor.Close()
	return n.ChildrenByFieldName(field, cursor)
}

// NamedChildren returns n's named children.
func NamedChildren(n *tree_sitter.Node) []tree_sitter.Node {
	if n == nil {
		return nil
	}
	cursor := n.Walk()
	defer cursor.Close()
	return n.NamedChildren(cursor)
}

// Children returns all of n's children, anonymous tokens included.
func Children(n *tree_sitter.Node) []tree_sitter.Node {
	if n == nil {
		return nil
	}
	cursor := n.Walk()
	defer cursor.Close()
	return n.Children(cursor)
}

// ChildOfKind returns the first child of n with one of the given kinds.
func ChildOfKind(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && oneOf(c.Kind(), kinds) {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns every child of n with one of the given kinds.
func ChildrenOfKind(n *tree_sitter.Node, kinds ...string) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	var out []*tree_sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && oneOf(c.Kind(), kinds) {
			out = append(out, c)
		}
	}
	return out
}

// HasChildKind reports whether n has a direct child (named or anonymous) of
// the given kind. Keyword modifiers such as "static" or "async" are
// anonymous tokens and are found this way.
func HasChildKind(n *tree_sitter.Node, kind string) bool {
	return ChildOfKind(n, kind) != nil
}

// Ancestors yields n's parents from the nearest up to the root.
func Ancestors(n *tree_sitter.Node) func(yield func(*tree_sitter.Node) bool) {
	return func(yield func(*tree_sitter.Node) bool) {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if !yield(p) {
				return
			}
		}
	}
}

// PrecedingComment returns the comment directly above n, if any. Runs of line
// comments are joined with newlines.
func PrecedingComment(n *tree_sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	var lines []string
	cur := n
	for {
		prev := cur.PrevNamedSibling()
		if prev == nil || !strings.Contains(prev.Kind(), "comment") {
			break
		}
		if int(cur.StartPosition().Row)-int(prev.EndPosition().Row) > 1 {
			break
		}
		lines = append([]string{prev.Utf8Text(source)}, lines...)
		cur = prev
	}
	return strings.Join(lines, "\n")
}

// CollapseWhitespace replaces runs of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func oneOf(kind string, kinds []string) bool {
	for _, k := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

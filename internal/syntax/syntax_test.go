package syntax_test

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/grammar"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

const javaSource = `package demo;

// Greets people.
class Foo extends Bar {
    int x;
    void bar() { baz(); }
}
`

func parseJava(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := grammar.NewCatalog().Parse(context.Background(), []byte(src), model.LangJava)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func TestCompile_Error(t *testing.T) {
	c := grammar.NewCatalog()
	g, err := c.Language(context.Background(), model.LangJava)
	require.NoError(t, err)

	_, err = syntax.Compile(g, "broken", "(class_declaration name: (identifier) @name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	_, err = syntax.Compile(g, "unknown-node", "(no_such_node) @x")
	require.Error(t, err)
}

func TestTree_FindAllIsRestartable(t *testing.T) {
	tree := parseJava(t, javaSource)
	q, err := syntax.Compile(tree.Grammar(), "decls", `
(class_declaration name: (identifier) @name) @decl
(method_declaration name: (identifier) @name) @fn
`)
	require.NoError(t, err)
	defer q.Close()
	assert.Equal(t, []string{"name", "decl", "fn"}, q.CaptureNames())

	collect := func() []string {
		var out []string
		for m := range tree.FindAll(q, nil) {
			n, ok := m.Node("name")
			require.True(t, ok)
			out = append(out, tree.Text(n))
		}
		return out
	}
	first := collect()
	assert.Equal(t, []string{"Foo", "bar"}, first)
	assert.Equal(t, first, collect(), "second iteration yields the same matches")

	// Early break releases the cursor without consuming the rest.
	for range tree.FindAll(q, nil) {
		break
	}

	var names []string
	for c := range tree.Captures(q, nil) {
		names = append(names, c.Name)
	}
	assert.True(t, slices.Contains(names, "fn"))
}

func TestTree_Range(t *testing.T) {
	tree := parseJava(t, javaSource)
	q, err := syntax.Compile(tree.Grammar(), "cls", `(class_declaration) @decl`)
	require.NoError(t, err)
	defer q.Close()

	var r model.TextRange
	for m := range tree.FindAll(q, nil) {
		n, _ := m.Node("decl")
		r = tree.Range(n)
	}
	assert.Equal(t, 4, r.Start.Line)
	assert.Equal(t, 0, r.Start.Column)
	assert.Equal(t, 7, r.End.Line)
	assert.Equal(t, javaSource[r.Start.ByteOffset:r.End.ByteOffset], r.Text)
	assert.True(t, r.Start.Before(r.End))
}

func TestNodeHelpers(t *testing.T) {
	tree := parseJava(t, javaSource)
	q, err := syntax.Compile(tree.Grammar(), "members", `
(class_declaration) @decl
(method_invocation name: (identifier) @call)
`)
	require.NoError(t, err)
	defer q.Close()

	var decl, call *tree_sitter.Node
	for m := range tree.FindAll(q, nil) {
		if n, ok := m.Node("decl"); ok {
			decl = n
		}
		if n, ok := m.Node("call"); ok {
			call = n
		}
	}
	require.NotNil(t, decl)
	require.NotNil(t, call)

	src := tree.Source()
	assert.Equal(t, "Foo", syntax.FieldText(decl, "name", src))
	assert.Equal(t, "", syntax.FieldText(decl, "no_such_field", src))
	assert.Equal(t, "// Greets people.", syntax.PrecedingComment(decl, src))

	super := decl.ChildByFieldName("superclass")
	require.NotNil(t, super)
	assert.Equal(t, "extends Bar", syntax.CollapseWhitespace(tree.Text(super)))

	body := decl.ChildByFieldName("body")
	require.NotNil(t, body)
	assert.NotNil(t, syntax.ChildOfKind(body, "field_declaration"))
	assert.Len(t, syntax.ChildrenOfKind(body, "field_declaration", "method_declaration"), 2)
	assert.True(t, syntax.HasChildKind(body, "{"))
	assert.NotEmpty(t, syntax.NamedChildren(body))
	assert.Greater(t, len(syntax.Children(body)), len(syntax.NamedChildren(body)))

	var kinds []string
	for a := range syntax.Ancestors(call) {
		kinds = append(kinds, a.Kind())
	}
	assert.Contains(t, kinds, "method_declaration")
	assert.Contains(t, kinds, "class_declaration")
	assert.Equal(t, "program", kinds[len(kinds)-1])

	assert.True(t, syntax.SameNode(decl, decl))
	assert.False(t, syntax.SameNode(decl, call))
	assert.False(t, syntax.SameNode(decl, nil))
}

package structurer

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

// dialect interprets the nodes captured by one language's queries.
type dialect interface {
	// span returns the first and last nodes of a declaration's full text,
	// including decorators, attributes and export keywords.
	span(decl *tree_sitter.Node) (first, last *tree_sitter.Node)
	// decorate fills relations, annotations and type refinements.
	decorate(t *syntax.Tree, decl *tree_sitter.Node, ds *model.CodeDataStruct)
	// fields converts a @field capture; one declaration may hold several.
	fields(t *syntax.Tree, n *tree_sitter.Node) []model.CodeField
	// function converts a @function capture.
	function(t *syntax.Tree, n *tree_sitter.Node) (model.CodeFunction, bool)
	// receiver names the type a free-standing function attaches to.
	receiver(t *syntax.Tree, fn *tree_sitter.Node) (string, bool)
	// implementation converts an @implements capture.
	implementation(t *syntax.Tree, n *tree_sitter.Node) (typ, iface string, ok bool)
	packageName(t *syntax.Tree, n *tree_sitter.Node) string
	imports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeImport
	exports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeExport
	module(path string) string
	// isLocalBoundary reports node kinds whose contents are local even when
	// they are not captured as functions (lambdas, closures).
	isLocalBoundary(kind string) bool
}

// baseDialect provides the defaults shared by most languages.
type baseDialect struct {
	localKinds []string
}

func (baseDialect) span(decl *tree_sitter.Node) (*tree_sitter.Node, *tree_sitter.Node) {
	return decl, decl
}

func (baseDialect) receiver(*syntax.Tree, *tree_sitter.Node) (string, bool) { return "", false }

func (baseDialect) implementation(*syntax.Tree, *tree_sitter.Node) (string, string, bool) {
	return "", "", false
}

func (baseDialect) packageName(*syntax.Tree, *tree_sitter.Node) string { return "" }

func (baseDialect) exports(*syntax.Tree, *tree_sitter.Node) []model.CodeExport { return nil }

func (d baseDialect) isLocalBoundary(kind string) bool {
	for _, k := range d.localKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func text(t *syntax.Tree, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return t.Text(n)
}

func fieldText(t *syntax.Tree, n *tree_sitter.Node, field string) string {
	return syntax.FieldText(n, field, t.Source())
}

// unquote strips one layer of matching string quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

// keywords returns the anonymous tokens among n's children, such as
// "public" or "static".
func keywords(n *tree_sitter.Node) []string {
	var out []string
	for _, c := range syntax.Children(n) {
		if !c.IsNamed() {
			out = append(out, c.Kind())
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// positional stores an unnamed annotation argument.
func positional(params map[string]string, i int, v string) {
	params[strconv.Itoa(i)] = v
}

// splitTypeList splits "A, B<C, D>, E" at top-level commas.
func splitTypeList(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				if part := strings.TrimSpace(s[start:i]); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}

// baseTypeName drops type arguments: "Map<K, V>" becomes "Map".
func baseTypeName(s string) string {
	if i := strings.IndexAny(s, "<["); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

package structurer

import (
	"go/token"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

// NewGo returns the Go structurer.
func NewGo(loader *queries.Loader, logger *slog.Logger) *TreeStructurer {
	return newTreeStructurer(model.LangGo, goDialect{baseDialect{localKinds: []string{"func_literal"}}}, loader, logger)
}

type goDialect struct{ baseDialect }

func (goDialect) module(p string) string {
	dir := filepath.ToSlash(filepath.Dir(p))
	if dir == "." {
		return ""
	}
	return dir
}

// span widens a lone type_spec to its type_declaration so Position and
// Content include the "type" keyword.
func (goDialect) span(n *tree_sitter.Node) (*tree_sitter.Node, *tree_sitter.Node) {
	p := n.Parent()
	if p != nil && p.Kind() == "type_declaration" && len(syntax.ChildrenOfKind(p, "type_spec")) == 1 {
		return p, p
	}
	return n, n
}

func (goDialect) packageName(t *syntax.Tree, n *tree_sitter.Node) string {
	return text(t, syntax.ChildOfKind(n, "package_identifier"))
}

func (goDialect) imports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeImport {
	src := unquote(fieldText(t, n, "path"))
	if src == "" {
		return nil
	}
	return []model.CodeImport{{Source: src, Names: []string{path.Base(src)}, Alias: fieldText(t, n, "name")}}
}

func (goDialect) decorate(t *syntax.Tree, n *tree_sitter.Node, ds *model.CodeDataStruct) {
	typ := n.ChildByFieldName("type")
	if typ == nil {
		return
	}
	ds.Annotations = goDocAnnotations(syntax.PrecedingComment(goDocAnchor(n), t.Source()))

	switch typ.Kind() {
	case "struct_type":
		list := syntax.ChildOfKind(typ, "field_declaration_list")
		for _, f := range syntax.ChildrenOfKind(list, "field_declaration") {
			if f.ChildByFieldName("name") == nil {
				ds.MultipleExtend = append(ds.MultipleExtend, goTypeName(t, f.ChildByFieldName("type")))
			}
		}
	case "interface_type":
		for _, e := range syntax.ChildrenOfKind(typ, "type_elem") {
			ds.MultipleExtend = append(ds.MultipleExtend, strings.TrimSpace(text(t, e)))
		}
	}
}

// goDocAnchor returns the node a doc comment attaches to.
func goDocAnchor(n *tree_sitter.Node) *tree_sitter.Node {
	if p := n.Parent(); p != nil && p.Kind() == "type_declaration" {
		return p
	}
	return n
}

// goDocAnnotations turns "//go:generate ..." style directives in a doc
// comment into annotations.
func goDocAnnotations(doc string) []model.CodeAnnotation {
	var out []model.CodeAnnotation
	for _, line := range strings.Split(doc, "\n") {
		directive, ok := strings.CutPrefix(strings.TrimSpace(line), "//go:")
		if !ok {
			continue
		}
		name, args, _ := strings.Cut(directive, " ")
		a := model.CodeAnnotation{Name: "go:" + name}
		if args = strings.TrimSpace(args); args != "" {
			a.Parameters = map[string]string{"value": args}
		}
		out = append(out, a)
	}
	return out
}

// goTypeName strips pointers and type arguments from a type node.
func goTypeName(t *syntax.Tree, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "pointer_type":
		if inner := syntax.NamedChildren(n); len(inner) > 0 {
			return goTypeName(t, &inner[0])
		}
	case "generic_type":
		return goTypeName(t, n.ChildByFieldName("type"))
	}
	return text(t, n)
}

func (goDialect) fields(t *syntax.Tree, n *tree_sitter.Node) []model.CodeField {
	// Fields of anonymous struct types nested in a field are skipped.
	list := n.Parent()
	if list == nil || list.Parent() == nil || list.Parent().Parent() == nil || list.Parent().Parent().Kind() != "type_spec" {
		return nil
	}
	names := syntax.ChildrenByField(n, "name")
	if len(names) == 0 {
		return nil // embedded, recorded as MultipleExtend
	}
	typ := n.ChildByFieldName("type")
	kind := ""
	if typ != nil {
		kind = typ.Kind()
	}
	var mods []string
	if tag := fieldText(t, n, "tag"); tag != "" {
		mods = []string{unquote(tag)}
	}

	comment := syntax.PrecedingComment(n, t.Source())
	out := make([]model.CodeField, 0, len(names))
	for _, name := range names {
		out = append(out, model.CodeField{
			Name:       text(t, &name),
			Type:       text(t, typ),
			IsArray:    kind == "slice_type" || kind == "array_type",
			IsNullable: kind == "pointer_type" || kind == "map_type" || kind == "interface_type",
			Comment:    comment,
			Modifiers:  mods,
		})
	}
	return out
}

func (goDialect) function(t *syntax.Tree, n *tree_sitter.Node) (model.CodeFunction, bool) {
	fn := model.CodeFunction{
		Name:       fieldText(t, n, "name"),
		ReturnType: strings.TrimSpace(fieldText(t, n, "result")),
		Parameters: goParameters(t, n.ChildByFieldName("parameters")),
	}
	if token.IsExported(fn.Name) {
		fn.Modifiers = []string{"exported"}
	}
	return fn, fn.Name != ""
}

func goParameters(t *syntax.Tree, list *tree_sitter.Node) []model.CodeParameter {
	var out []model.CodeParameter
	for _, p := range syntax.NamedChildren(list) {
		typ := fieldText(t, &p, "type")
		if p.Kind() == "variadic_parameter_declaration" {
			typ = "..." + typ
		} else if p.Kind() != "parameter_declaration" {
			continue
		}
		names := syntax.ChildrenByField(&p, "name")
		if len(names) == 0 {
			out = append(out, model.CodeParameter{Type: typ})
			continue
		}
		for _, name := range names {
			out = append(out, model.CodeParameter{Name: text(t, &name), Type: typ})
		}
	}
	return out
}

// receiver attaches methods to their receiver's base type.
func (goDialect) receiver(t *syntax.Tree, fn *tree_sitter.Node) (string, bool) {
	if fn.Kind() != "method_declaration" {
		return "", false
	}
	params := syntax.ChildrenOfKind(fn.ChildByFieldName("receiver"), "parameter_declaration")
	if len(params) == 0 {
		return "", false
	}
	name := goTypeName(t, params[0].ChildByFieldName("type"))
	return name, name != ""
}

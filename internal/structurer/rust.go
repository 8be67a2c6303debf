package structurer

import (
	"log/slog"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

// NewRust returns the Rust structurer.
func NewRust(loader *queries.Loader, logger *slog.Logger) *TreeStructurer {
	return newTreeStructurer(model.LangRust, rustDialect{baseDialect{localKinds: []string{"closure_expression"}}}, loader, logger)
}

type rustDialect struct{ baseDialect }

func (rustDialect) module(path string) string {
	p := filepath.ToSlash(path)
	p = strings.TrimSuffix(p, filepath.Ext(p))
	return strings.ReplaceAll(strings.TrimPrefix(p, "./"), "/", "::")
}

func (d rustDialect) decorate(t *syntax.Tree, n *tree_sitter.Node, ds *model.CodeDataStruct) {
	ds.Annotations = d.attributes(t, n)
	if n.Kind() == "trait_item" {
		for _, b := range syntax.NamedChildren(n.ChildByFieldName("bounds")) {
			ds.MultipleExtend = append(ds.MultipleExtend, text(t, &b))
		}
	}
}

// span starts at the first #[...] item directly above n.
func (rustDialect) span(n *tree_sitter.Node) (*tree_sitter.Node, *tree_sitter.Node) {
	first := n
	for prev := n.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch prev.Kind() {
		case "line_comment", "block_comment":
			continue
		case "attribute_item":
			first = prev
			continue
		}
		break
	}
	return first, n
}

// attributes reads the #[...] items directly above n.
func (rustDialect) attributes(t *syntax.Tree, n *tree_sitter.Node) []model.CodeAnnotation {
	var items []model.CodeAnnotation
	for prev := n.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		kind := prev.Kind()
		if kind == "line_comment" || kind == "block_comment" {
			continue
		}
		if kind != "attribute_item" {
			break
		}
		attr := syntax.ChildOfKind(prev, "attribute")
		if attr == nil {
			continue
		}
		parts := syntax.NamedChildren(attr)
		if len(parts) == 0 {
			continue
		}
		a := model.CodeAnnotation{Name: text(t, &parts[0])}
		if args := attr.ChildByFieldName("arguments"); args != nil {
			inner := strings.TrimSuffix(strings.TrimPrefix(text(t, args), "("), ")")
			list := splitTypeList(inner)
			if len(list) > 0 {
				a.Parameters = make(map[string]string, len(list))
			}
			for i, v := range list {
				positional(a.Parameters, i, v)
			}
		} else if v := attr.ChildByFieldName("value"); v != nil {
			a.Parameters = map[string]string{"value": unquote(text(t, v))}
		}
		// Collected bottom-up; prepend to keep source order.
		items = append([]model.CodeAnnotation{a}, items...)
	}
	return items
}

func rustTypeName(t *syntax.Tree, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "generic_type":
		return rustTypeName(t, n.ChildByFieldName("type"))
	case "scoped_type_identifier":
		return fieldText(t, n, "name")
	case "reference_type":
		return rustTypeName(t, n.ChildByFieldName("type"))
	}
	return text(t, n)
}

func (rustDialect) fields(t *syntax.Tree, n *tree_sitter.Node) []model.CodeField {
	comment := syntax.PrecedingComment(n, t.Source())
	if n.Kind() == "enum_variant" {
		f := model.CodeField{Name: fieldText(t, n, "name"), Default: fieldText(t, n, "value"), Comment: comment}
		if body := n.ChildByFieldName("body"); body != nil {
			f.Type = syntax.CollapseWhitespace(text(t, body))
		}
		return []model.CodeField{f}
	}

	// Named fields of struct-like enum variants belong to the variant.
	if list := n.Parent(); list != nil && list.Parent() != nil && list.Parent().Kind() == "enum_variant" {
		return nil
	}
	typ := n.ChildByFieldName("type")
	base := rustTypeName(t, typ)
	var mods []string
	if v := syntax.ChildOfKind(n, "visibility_modifier"); v != nil {
		mods = []string{text(t, v)}
	}
	return []model.CodeField{{
		Name:       fieldText(t, n, "name"),
		Type:       text(t, typ),
		IsArray:    (typ != nil && typ.Kind() == "array_type") || base == "Vec" || base == "VecDeque",
		IsNullable: base == "Option",
		Comment:    comment,
		Modifiers:  mods,
	}}
}

func (d rustDialect) function(t *syntax.Tree, n *tree_sitter.Node) (model.CodeFunction, bool) {
	var mods []string
	if v := syntax.ChildOfKind(n, "visibility_modifier"); v != nil {
		mods = append(mods, text(t, v))
	}
	if fm := syntax.ChildOfKind(n, "function_modifiers"); fm != nil {
		mods = append(mods, strings.Fields(text(t, fm))...)
	}

	params := n.ChildByFieldName("parameters")
	hasSelf := syntax.ChildOfKind(params, "self_parameter") != nil
	inImpl := false
	if list := n.Parent(); list != nil && list.Kind() == "declaration_list" {
		if p := list.Parent(); p != nil && (p.Kind() == "impl_item" || p.Kind() == "trait_item") {
			inImpl = true
		}
	}

	fn := model.CodeFunction{
		Name:       fieldText(t, n, "name"),
		ReturnType: fieldText(t, n, "return_type"),
		Parameters: rustParameters(t, params),
		IsStatic:   inImpl && !hasSelf,
		IsAsync:    contains(mods, "async"),
		Decorators: d.attributes(t, n),
		Modifiers:  mods,
	}
	fn.IsConstructor = fn.IsStatic && fn.Name == "new"
	return fn, fn.Name != ""
}

func rustParameters(t *syntax.Tree, list *tree_sitter.Node) []model.CodeParameter {
	var out []model.CodeParameter
	for _, p := range syntax.NamedChildren(list) {
		switch p.Kind() {
		case "parameter":
			out = append(out, model.CodeParameter{Name: fieldText(t, &p, "pattern"), Type: fieldText(t, &p, "type")})
		case "variadic_parameter":
			out = append(out, model.CodeParameter{Name: "...", Type: text(t, &p)})
		}
	}
	return out
}

// receiver attaches functions of an impl block to the implemented type.
func (rustDialect) receiver(t *syntax.Tree, fn *tree_sitter.Node) (string, bool) {
	list := fn.Parent()
	if list == nil || list.Kind() != "declaration_list" {
		return "", false
	}
	impl := list.Parent()
	if impl == nil || impl.Kind() != "impl_item" {
		return "", false
	}
	name := rustTypeName(t, impl.ChildByFieldName("type"))
	return name, name != ""
}

func (rustDialect) implementation(t *syntax.Tree, n *tree_sitter.Node) (string, string, bool) {
	typ := rustTypeName(t, n.ChildByFieldName("type"))
	trait := rustTypeName(t, n.ChildByFieldName("trait"))
	return typ, trait, typ != "" && trait != ""
}

func (rustDialect) imports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeImport {
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return nil
	}
	switch arg.Kind() {
	case "scoped_identifier":
		return []model.CodeImport{{Source: fieldText(t, arg, "path"), Names: []string{fieldText(t, arg, "name")}}}
	case "use_as_clause":
		return []model.CodeImport{{Source: fieldText(t, arg, "path"), Alias: fieldText(t, arg, "alias")}}
	case "scoped_use_list":
		imp := model.CodeImport{Source: fieldText(t, arg, "path")}
		for _, item := range syntax.NamedChildren(arg.ChildByFieldName("list")) {
			imp.Names = append(imp.Names, syntax.CollapseWhitespace(text(t, &item)))
		}
		return []model.CodeImport{imp}
	case "use_wildcard":
		return []model.CodeImport{{Source: strings.TrimSuffix(text(t, arg), "::*"), Names: []string{"*"}}}
	case "use_list":
		imp := model.CodeImport{}
		for _, item := range syntax.NamedChildren(arg) {
			imp.Names = append(imp.Names, syntax.CollapseWhitespace(text(t, &item)))
		}
		return []model.CodeImport{imp}
	}
	return []model.CodeImport{{Source: text(t, arg)}}
}

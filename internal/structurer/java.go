package structurer

import (
	"log/slog"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

// NewJava returns the Java structurer.
func NewJava(loader *queries.Loader, logger *slog.Logger) *TreeStructurer {
	return newTreeStructurer(model.LangJava, javaDialect{baseDialect{localKinds: []string{"lambda_expression"}}}, loader, logger)
}

type javaDialect struct{ baseDialect }

func (javaDialect) module(string) string { return "" }

func (javaDialect) packageName(t *syntax.Tree, n *tree_sitter.Node) string {
	return text(t, syntax.ChildOfKind(n, "scoped_identifier", "identifier"))
}

func (javaDialect) imports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeImport {
	path := text(t, syntax.ChildOfKind(n, "scoped_identifier", "identifier"))
	if path == "" {
		return nil
	}
	if syntax.HasChildKind(n, "asterisk") {
		return []model.CodeImport{{Source: path, Names: []string{"*"}}}
	}
	name := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		name = path[i+1:]
	}
	return []model.CodeImport{{Source: path, Names: []string{name}}}
}

func (d javaDialect) decorate(t *syntax.Tree, n *tree_sitter.Node, ds *model.CodeDataStruct) {
	ds.Annotations = d.annotations(t, syntax.ChildOfKind(n, "modifiers"))

	if sc := n.ChildByFieldName("superclass"); sc != nil {
		if typ := syntax.NamedChildren(sc); len(typ) > 0 {
			ds.Extend = javaTypeName(t, &typ[0])
		}
	}
	if si := n.ChildByFieldName("interfaces"); si != nil {
		ds.Implements = javaTypeList(t, si)
	}
	if ext := syntax.ChildOfKind(n, "extends_interfaces"); ext != nil {
		ds.MultipleExtend = javaTypeList(t, ext)
	}

	// Record components are the record's fields.
	if n.Kind() == "record_declaration" {
		for _, p := range syntax.NamedChildren(n.ChildByFieldName("parameters")) {
			if p.Kind() != "formal_parameter" {
				continue
			}
			typ := p.ChildByFieldName("type")
			ds.Fields = append(ds.Fields, model.CodeField{
				Name:    fieldText(t, &p, "name"),
				Type:    text(t, typ),
				IsArray: typ != nil && typ.Kind() == "array_type",
			})
		}
	}
}

// javaTypeList collects the types of a super_interfaces or extends_interfaces
// node, which wrap a type_list.
func javaTypeList(t *syntax.Tree, n *tree_sitter.Node) []string {
	list := syntax.ChildOfKind(n, "type_list")
	if list == nil {
		return nil
	}
	var out []string
	for _, c := range syntax.NamedChildren(list) {
		out = append(out, javaTypeName(t, &c))
	}
	return out
}

func javaTypeName(t *syntax.Tree, n *tree_sitter.Node) string {
	if n.Kind() == "generic_type" {
		if c := syntax.ChildOfKind(n, "type_identifier", "scoped_type_identifier"); c != nil {
			return text(t, c)
		}
	}
	return text(t, n)
}

func (javaDialect) annotations(t *syntax.Tree, modifiers *tree_sitter.Node) []model.CodeAnnotation {
	var out []model.CodeAnnotation
	for _, c := range syntax.NamedChildren(modifiers) {
		switch c.Kind() {
		case "marker_annotation":
			out = append(out, model.CodeAnnotation{Name: fieldText(t, &c, "name")})
		case "annotation":
			a := model.CodeAnnotation{Name: fieldText(t, &c, "name")}
			args := syntax.NamedChildren(c.ChildByFieldName("arguments"))
			if len(args) > 0 {
				a.Parameters = make(map[string]string, len(args))
			}
			for i, arg := range args {
				if arg.Kind() == "element_value_pair" {
					a.Parameters[fieldText(t, &arg, "key")] = unquote(fieldText(t, &arg, "value"))
					continue
				}
				if len(args) == 1 {
					a.Parameters["value"] = unquote(text(t, &arg))
				} else {
					positional(a.Parameters, i, unquote(text(t, &arg)))
				}
			}
			out = append(out, a)
		}
	}
	return out
}

func (javaDialect) modifiers(t *syntax.Tree, n *tree_sitter.Node) []string {
	return keywords(syntax.ChildOfKind(n, "modifiers"))
}

func (d javaDialect) fields(t *syntax.Tree, n *tree_sitter.Node) []model.CodeField {
	comment := syntax.PrecedingComment(n, t.Source())
	if n.Kind() == "enum_constant" {
		return []model.CodeField{{
			Name:    fieldText(t, n, "name"),
			Default: fieldText(t, n, "arguments"),
			Comment: comment,
		}}
	}

	typ := n.ChildByFieldName("type")
	mods := d.modifiers(t, n)
	nullable := false
	for _, a := range d.annotations(t, syntax.ChildOfKind(n, "modifiers")) {
		if a.Name == "Nullable" || strings.HasSuffix(a.Name, ".Nullable") {
			nullable = true
		}
	}

	var out []model.CodeField
	for _, decl := range syntax.ChildrenByField(n, "declarator") {
		out = append(out, model.CodeField{
			Name:       fieldText(t, &decl, "name"),
			Type:       text(t, typ),
			IsArray:    (typ != nil && typ.Kind() == "array_type") || decl.ChildByFieldName("dimensions") != nil,
			IsNullable: nullable,
			Default:    fieldText(t, &decl, "value"),
			Comment:    comment,
			Modifiers:  mods,
		})
	}
	return out
}

func (d javaDialect) function(t *syntax.Tree, n *tree_sitter.Node) (model.CodeFunction, bool) {
	mods := d.modifiers(t, n)
	fn := model.CodeFunction{
		Name:          fieldText(t, n, "name"),
		ReturnType:    fieldText(t, n, "type"),
		Parameters:    d.parameters(t, n.ChildByFieldName("parameters")),
		IsStatic:      contains(mods, "static"),
		IsConstructor: n.Kind() == "constructor_declaration",
		Decorators:    d.annotations(t, syntax.ChildOfKind(n, "modifiers")),
		Modifiers:     mods,
	}
	return fn, fn.Name != ""
}

func (javaDialect) parameters(t *syntax.Tree, list *tree_sitter.Node) []model.CodeParameter {
	var out []model.CodeParameter
	for _, p := range syntax.NamedChildren(list) {
		switch p.Kind() {
		case "formal_parameter":
			out = append(out, model.CodeParameter{Name: fieldText(t, &p, "name"), Type: fieldText(t, &p, "type")})
		case "spread_parameter":
			var typ string
			for _, c := range syntax.NamedChildren(&p) {
				if c.Kind() != "modifiers" && c.Kind() != "variable_declarator" {
					typ = text(t, &c)
					break
				}
			}
			decl := syntax.ChildOfKind(&p, "variable_declarator")
			out = append(out, model.CodeParameter{Name: fieldText(t, decl, "name"), Type: typ + "..."})
		}
	}
	return out
}

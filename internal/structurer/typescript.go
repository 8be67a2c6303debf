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

// NewTypeScript returns the TypeScript structurer. It also accepts plain
// JavaScript.
func NewTypeScript(loader *queries.Loader, logger *slog.Logger) *TreeStructurer {
	d := tsDialect{baseDialect{localKinds: []string{"arrow_function", "function_expression", "class"}}}
	return newTreeStructurer(model.LangTypeScript, d, loader, logger)
}

type tsDialect struct{ baseDialect }

func (tsDialect) module(path string) string {
	p := filepath.ToSlash(path)
	return strings.TrimSuffix(p, filepath.Ext(p))
}

// span widens an exported declaration to its export_statement, which also
// holds decorators written before "export". A class expression covers the
// variable declaration it is the only value of.
func (tsDialect) span(n *tree_sitter.Node) (*tree_sitter.Node, *tree_sitter.Node) {
	outer := n
	if n.Kind() == "class" {
		if v := n.Parent(); v != nil && v.Kind() == "variable_declarator" {
			if decl := v.Parent(); decl != nil && len(syntax.ChildrenOfKind(decl, "variable_declarator")) == 1 {
				outer = decl
			}
		}
	}
	if p := outer.Parent(); p != nil && p.Kind() == "export_statement" {
		outer = p
	}
	return outer, outer
}

func (d tsDialect) decorate(t *syntax.Tree, n *tree_sitter.Node, ds *model.CodeDataStruct) {
	if p := n.Parent(); p != nil && p.Kind() == "export_statement" {
		ds.Annotations = append(ds.Annotations, d.decorators(t, p)...)
	}
	ds.Annotations = append(ds.Annotations, d.decorators(t, n)...)

	if heritage := syntax.ChildOfKind(n, "class_heritage"); heritage != nil {
		if ext := syntax.ChildOfKind(heritage, "extends_clause"); ext != nil {
			for i, v := range syntax.ChildrenByField(ext, "value") {
				if i == 0 {
					ds.Extend = text(t, &v)
				} else {
					ds.MultipleExtend = append(ds.MultipleExtend, text(t, &v))
				}
			}
		}
		if impl := syntax.ChildOfKind(heritage, "implements_clause"); impl != nil {
			for _, c := range syntax.NamedChildren(impl) {
				ds.Implements = append(ds.Implements, tsTypeName(t, &c))
			}
		}
	}
	if ext := syntax.ChildOfKind(n, "extends_type_clause"); ext != nil {
		for _, c := range syntax.NamedChildren(ext) {
			ds.MultipleExtend = append(ds.MultipleExtend, tsTypeName(t, &c))
		}
	}
}

func tsTypeName(t *syntax.Tree, n *tree_sitter.Node) string {
	if n.Kind() == "generic_type" {
		if name := n.ChildByFieldName("name"); name != nil {
			return text(t, name)
		}
	}
	return text(t, n)
}

// decorators reads the decorator children of n.
func (tsDialect) decorators(t *syntax.Tree, n *tree_sitter.Node) []model.CodeAnnotation {
	var out []model.CodeAnnotation
	for _, dec := range syntax.ChildrenOfKind(n, "decorator") {
		expr := syntax.NamedChildren(dec)
		if len(expr) == 0 {
			continue
		}
		e := &expr[0]
		if e.Kind() != "call_expression" {
			out = append(out, model.CodeAnnotation{Name: text(t, e)})
			continue
		}
		a := model.CodeAnnotation{Name: fieldText(t, e, "function")}
		args := syntax.NamedChildren(e.ChildByFieldName("arguments"))
		if len(args) > 0 {
			a.Parameters = make(map[string]string)
		}
		for i, arg := range args {
			if arg.Kind() != "object" {
				positional(a.Parameters, i, unquote(text(t, &arg)))
				continue
			}
			for _, pair := range syntax.ChildrenOfKind(&arg, "pair") {
				a.Parameters[unquote(fieldText(t, pair, "key"))] = unquote(fieldText(t, pair, "value"))
			}
		}
		out = append(out, a)
	}
	return out
}

// typeAnnotation returns the text of a type_annotation without its colon.
func typeAnnotation(t *syntax.Tree, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text(t, n)), ":"))
}

func tsNullable(typ string) bool {
	for _, part := range strings.Split(typ, "|") {
		switch strings.TrimSpace(part) {
		case "null", "undefined":
			return true
		}
	}
	return false
}

func tsArray(typ string) bool {
	return strings.HasSuffix(typ, "[]") || strings.HasPrefix(typ, "Array<") || strings.HasPrefix(typ, "ReadonlyArray<")
}

// tsModifiers collects accessibility and keyword modifiers of a member.
func tsModifiers(t *syntax.Tree, n *tree_sitter.Node) []string {
	var out []string
	for _, c := range syntax.Children(n) {
		switch c.Kind() {
		case "accessibility_modifier", "override_modifier":
			out = append(out, text(t, &c))
		case "static", "readonly", "abstract", "declare", "async":
			if !c.IsNamed() {
				out = append(out, c.Kind())
			}
		}
	}
	return out
}

func (tsDialect) fields(t *syntax.Tree, n *tree_sitter.Node) []model.CodeField {
	comment := syntax.PrecedingComment(n, t.Source())
	switch n.Kind() {
	case "property_identifier":
		return []model.CodeField{{Name: text(t, n), Comment: comment}}
	case "enum_assignment":
		return []model.CodeField{{Name: fieldText(t, n, "name"), Default: fieldText(t, n, "value"), Comment: comment}}
	}

	typ := typeAnnotation(t, n.ChildByFieldName("type"))
	return []model.CodeField{{
		Name:       fieldText(t, n, "name"),
		Type:       typ,
		IsArray:    tsArray(typ),
		IsNullable: syntax.HasChildKind(n, "?") || tsNullable(typ),
		Default:    fieldText(t, n, "value"),
		Comment:    comment,
		Modifiers:  tsModifiers(t, n),
	}}
}

func (d tsDialect) function(t *syntax.Tree, n *tree_sitter.Node) (model.CodeFunction, bool) {
	// sig holds parameters and return type; for function-valued fields and
	// variables that is the value node.
	sig := n
	switch n.Kind() {
	case "public_field_definition", "variable_declarator":
		sig = n.ChildByFieldName("value")
		if sig == nil {
			return model.CodeFunction{}, false
		}
	}

	mods := tsModifiers(t, n)
	if sig != n {
		mods = append(mods, tsModifiers(t, sig)...)
	}
	fn := model.CodeFunction{
		Name:       fieldText(t, n, "name"),
		ReturnType: typeAnnotation(t, sig.ChildByFieldName("return_type")),
		Parameters: d.parameters(t, sig),
		IsStatic:   contains(mods, "static"),
		IsAsync:    contains(mods, "async"),
		Decorators: d.decorators(t, n),
		Modifiers:  mods,
	}
	fn.IsConstructor = n.Kind() == "method_definition" && fn.Name == "constructor"
	return fn, fn.Name != ""
}

func (tsDialect) parameters(t *syntax.Tree, sig *tree_sitter.Node) []model.CodeParameter {
	if p := sig.ChildByFieldName("parameter"); p != nil {
		return []model.CodeParameter{{Name: text(t, p)}}
	}
	var out []model.CodeParameter
	for _, p := range syntax.NamedChildren(sig.ChildByFieldName("parameters")) {
		switch p.Kind() {
		case "required_parameter", "optional_parameter":
			out = append(out, model.CodeParameter{
				Name: fieldText(t, &p, "pattern"),
				Type: typeAnnotation(t, p.ChildByFieldName("type")),
			})
		case "identifier":
			out = append(out, model.CodeParameter{Name: text(t, &p)})
		}
	}
	return out
}

func (tsDialect) imports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeImport {
	imp := model.CodeImport{Source: unquote(fieldText(t, n, "source"))}
	if clause := syntax.ChildOfKind(n, "import_clause"); clause != nil {
		for _, c := range syntax.NamedChildren(clause) {
			switch c.Kind() {
			case "identifier":
				imp.Names = append(imp.Names, text(t, &c))
			case "namespace_import":
				imp.Names = append(imp.Names, "*")
				imp.Alias = text(t, syntax.ChildOfKind(&c, "identifier"))
			case "named_imports":
				for _, spec := range syntax.ChildrenOfKind(&c, "import_specifier") {
					imp.Names = append(imp.Names, fieldText(t, spec, "name"))
				}
			}
		}
	}
	return []model.CodeImport{imp}
}

func (tsDialect) exports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeExport {
	if syntax.HasChildKind(n, "default") {
		kind := ""
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			kind = tsExportKind(decl.Kind())
		}
		return []model.CodeExport{{Name: "default", Type: kind}}
	}
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Kind() {
		case "lexical_declaration", "variable_declaration":
			var out []model.CodeExport
			for _, v := range syntax.ChildrenOfKind(decl, "variable_declarator") {
				out = append(out, model.CodeExport{Name: fieldText(t, v, "name"), Type: "variable"})
			}
			return out
		default:
			if name := fieldText(t, decl, "name"); name != "" {
				return []model.CodeExport{{Name: name, Type: tsExportKind(decl.Kind())}}
			}
			return nil
		}
	}
	if clause := syntax.ChildOfKind(n, "export_clause"); clause != nil {
		var out []model.CodeExport
		for _, spec := range syntax.ChildrenOfKind(clause, "export_specifier") {
			name := fieldText(t, spec, "alias")
			if name == "" {
				name = fieldText(t, spec, "name")
			}
			out = append(out, model.CodeExport{Name: name})
		}
		return out
	}
	if syntax.HasChildKind(n, "*") {
		return []model.CodeExport{{Name: "*"}}
	}
	return nil
}

func tsExportKind(kind string) string {
	switch kind {
	case "class_declaration", "abstract_class_declaration", "class":
		return "class"
	case "interface_declaration":
		return "interface"
	case "enum_declaration":
		return "enum"
	case "function_declaration", "generator_function_declaration", "function_expression", "arrow_function":
		return "function"
	case "type_alias_declaration":
		return "type"
	}
	return ""
}

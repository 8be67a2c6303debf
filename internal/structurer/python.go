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

// NewPython returns the Python structurer.
func NewPython(loader *queries.Loader, logger *slog.Logger) *TreeStructurer {
	return newTreeStructurer(model.LangPython, pyDialect{baseDialect{localKinds: []string{"lambda"}}}, loader, logger)
}

type pyDialect struct{ baseDialect }

var (
	pyEnumBases      = []string{"Enum", "IntEnum", "StrEnum", "Flag", "IntFlag"}
	pyInterfaceBases = []string{"Protocol", "ABC"}
)

func (pyDialect) module(path string) string {
	p := filepath.ToSlash(path)
	p = strings.TrimSuffix(p, filepath.Ext(p))
	p = strings.TrimSuffix(p, "/__init__")
	return strings.ReplaceAll(strings.TrimPrefix(p, "./"), "/", ".")
}

// span widens a decorated class to its decorated_definition.
func (pyDialect) span(n *tree_sitter.Node) (*tree_sitter.Node, *tree_sitter.Node) {
	if p := n.Parent(); p != nil && p.Kind() == "decorated_definition" {
		return p, p
	}
	return n, n
}

func (d pyDialect) decorate(t *syntax.Tree, n *tree_sitter.Node, ds *model.CodeDataStruct) {
	ds.Annotations = d.decorators(t, n)

	var bases []string
	for _, b := range syntax.NamedChildren(n.ChildByFieldName("superclasses")) {
		switch b.Kind() {
		case "identifier", "attribute", "subscript":
			bases = append(bases, text(t, &b))
		}
	}
	for i, b := range bases {
		if i == 0 {
			ds.Extend = b
		} else {
			ds.MultipleExtend = append(ds.MultipleExtend, b)
		}
		short := baseTypeName(b[strings.LastIndexByte(b, '.')+1:])
		switch {
		case contains(pyEnumBases, short):
			ds.Type = model.TypeEnum
		case contains(pyInterfaceBases, short) && ds.Type != model.TypeEnum:
			ds.Type = model.TypeInterface
		}
	}
}

// decorators reads the decorators of a class or function, which live on the
// enclosing decorated_definition.
func (pyDialect) decorators(t *syntax.Tree, n *tree_sitter.Node) []model.CodeAnnotation {
	p := n.Parent()
	if p == nil || p.Kind() != "decorated_definition" {
		return nil
	}
	var out []model.CodeAnnotation
	for _, dec := range syntax.ChildrenOfKind(p, "decorator") {
		expr := syntax.NamedChildren(dec)
		if len(expr) == 0 {
			continue
		}
		e := &expr[0]
		if e.Kind() != "call" {
			out = append(out, model.CodeAnnotation{Name: text(t, e)})
			continue
		}
		a := model.CodeAnnotation{Name: fieldText(t, e, "function")}
		args := syntax.NamedChildren(e.ChildByFieldName("arguments"))
		if len(args) > 0 {
			a.Parameters = make(map[string]string, len(args))
		}
		for i, arg := range args {
			if arg.Kind() == "keyword_argument" {
				a.Parameters[fieldText(t, &arg, "name")] = unquote(fieldText(t, &arg, "value"))
			} else {
				positional(a.Parameters, i, unquote(text(t, &arg)))
			}
		}
		out = append(out, a)
	}
	return out
}

func (pyDialect) fields(t *syntax.Tree, n *tree_sitter.Node) []model.CodeField {
	left := n.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return nil
	}
	typ := fieldText(t, n, "type")
	return []model.CodeField{{
		Name:       text(t, left),
		Type:       typ,
		IsArray:    pyArray(typ),
		IsNullable: pyNullable(typ),
		Default:    fieldText(t, n, "right"),
		Comment:    syntax.PrecedingComment(n.Parent(), t.Source()),
	}}
}

func pyNullable(typ string) bool {
	if strings.HasPrefix(typ, "Optional[") {
		return true
	}
	for _, part := range strings.Split(typ, "|") {
		if strings.TrimSpace(part) == "None" {
			return true
		}
	}
	return false
}

func pyArray(typ string) bool {
	switch baseTypeName(typ) {
	case "list", "List", "Sequence", "tuple", "Tuple", "set", "Set":
		return true
	}
	return false
}

func (d pyDialect) function(t *syntax.Tree, n *tree_sitter.Node) (model.CodeFunction, bool) {
	decorators := d.decorators(t, n)
	fn := model.CodeFunction{
		Name:       fieldText(t, n, "name"),
		ReturnType: fieldText(t, n, "return_type"),
		Parameters: pyParameters(t, n.ChildByFieldName("parameters")),
		IsAsync:    syntax.HasChildKind(n, "async"),
		Decorators: decorators,
	}
	for _, dec := range decorators {
		if dec.Name == "staticmethod" || dec.Name == "classmethod" {
			fn.IsStatic = true
			fn.Modifiers = append(fn.Modifiers, dec.Name)
		}
	}
	fn.IsConstructor = fn.Name == "__init__"
	return fn, fn.Name != ""
}

func pyParameters(t *syntax.Tree, list *tree_sitter.Node) []model.CodeParameter {
	var out []model.CodeParameter
	for i, p := range syntax.NamedChildren(list) {
		var param model.CodeParameter
		switch p.Kind() {
		case "identifier":
			param.Name = text(t, &p)
		case "typed_parameter":
			if id := syntax.NamedChildren(&p); len(id) > 0 {
				param.Name = text(t, &id[0])
			}
			param.Type = fieldText(t, &p, "type")
		case "default_parameter":
			param.Name = fieldText(t, &p, "name")
		case "typed_default_parameter":
			param.Name = fieldText(t, &p, "name")
			param.Type = fieldText(t, &p, "type")
		case "list_splat_pattern", "dictionary_splat_pattern":
			param.Name = text(t, &p)
		default:
			continue
		}
		if i == 0 && (param.Name == "self" || param.Name == "cls") {
			continue
		}
		out = append(out, param)
	}
	return out
}

func (pyDialect) imports(t *syntax.Tree, n *tree_sitter.Node) []model.CodeImport {
	if n.Kind() == "import_statement" {
		var out []model.CodeImport
		for _, name := range syntax.ChildrenByField(n, "name") {
			if name.Kind() == "aliased_import" {
				out = append(out, model.CodeImport{Source: fieldText(t, &name, "name"), Alias: fieldText(t, &name, "alias")})
			} else {
				out = append(out, model.CodeImport{Source: text(t, &name)})
			}
		}
		return out
	}

	imp := model.CodeImport{Source: fieldText(t, n, "module_name")}
	for _, name := range syntax.ChildrenByField(n, "name") {
		if name.Kind() == "aliased_import" {
			imp.Names = append(imp.Names, fieldText(t, &name, "name"))
		} else {
			imp.Names = append(imp.Names, text(t, &name))
		}
	}
	if syntax.HasChildKind(n, "wildcard_import") {
		imp.Names = append(imp.Names, "*")
	}
	return []model.CodeImport{imp}
}

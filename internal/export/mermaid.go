package export

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/store"
)

// ClassDiagram produces a Mermaid classDiagram from structs and their inner
// structures. Extends becomes <|--, implements ..|> and nesting *--. The
// synthetic holder of top-level functions is left out, and a name seen
// twice is drawn once.
func ClassDiagram(structs []model.CodeDataStruct) string {
	d := &classDiagram{seen: make(map[string]bool)}
	for _, s := range structs {
		d.add("", s)
	}

	var sb strings.Builder
	sb.WriteString("classDiagram\n")
	for _, c := range d.classes {
		sb.WriteString(c)
	}
	for _, r := range d.relations {
		sb.WriteString("  " + r + "\n")
	}
	return sb.String()
}

type classDiagram struct {
	seen      map[string]bool
	classes   []string
	relations []string
}

func (d *classDiagram) add(outer string, s model.CodeDataStruct) {
	if isHolder(s) {
		return
	}
	name := s.NodeName
	if outer != "" {
		name = outer + "." + s.NodeName
	}
	id := classID(name)
	if d.seen[id] {
		return
	}
	d.seen[id] = true

	var sb strings.Builder
	if id != name {
		fmt.Fprintf(&sb, "  class %s[\"%s\"] {\n", id, name)
	} else {
		fmt.Fprintf(&sb, "  class %s {\n", id)
	}
	switch s.Type {
	case model.TypeInterface:
		sb.WriteString("    <<interface>>\n")
	case model.TypeEnum:
		sb.WriteString("    <<enumeration>>\n")
	}
	for _, f := range s.Fields {
		typ := f.Type
		if f.IsArray && typ != "" && !strings.HasSuffix(typ, "]") {
			typ += "[]"
		}
		member := strings.TrimSpace(memberType(typ) + " " + f.Name)
		fmt.Fprintf(&sb, "    %s%s\n", visibility(f.Modifiers), member)
	}
	for _, fn := range s.Functions {
		params := make([]string, 0, len(fn.Parameters))
		for _, p := range fn.Parameters {
			params = append(params, strings.TrimSpace(memberType(p.Type)+" "+p.Name))
		}
		line := fmt.Sprintf("%s%s(%s)", visibility(fn.Modifiers), fn.Name, strings.Join(params, ", "))
		if fn.IsStatic {
			line += "$"
		}
		if fn.ReturnType != "" {
			line += " " + memberType(fn.ReturnType)
		}
		sb.WriteString("    " + line + "\n")
	}
	sb.WriteString("  }\n")
	d.classes = append(d.classes, sb.String())

	if s.Extend != "" {
		d.relations = append(d.relations, fmt.Sprintf("%s <|-- %s", classID(typeName(s.Extend)), id))
	}
	for _, e := range s.MultipleExtend {
		d.relations = append(d.relations, fmt.Sprintf("%s <|-- %s", classID(typeName(e)), id))
	}
	for _, i := range s.Implements {
		d.relations = append(d.relations, fmt.Sprintf("%s ..|> %s", id, classID(typeName(i))))
	}
	for _, inner := range s.InnerStructures {
		if !isHolder(inner) {
			d.relations = append(d.relations, fmt.Sprintf("%s *-- %s", id, classID(name+"."+inner.NodeName)))
		}
		d.add(name, inner)
	}
}

// isHolder reports whether s is the synthetic holder of top-level functions.
func isHolder(s model.CodeDataStruct) bool {
	return s.IsSynthetic() && s.NodeName == model.DefaultStructName
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// classID turns a struct name into a Mermaid class identifier.
func classID(name string) string {
	return strings.Trim(nonIdent.ReplaceAllString(name, "_"), "_")
}

// typeName strips generic arguments, pointers and references.
func typeName(ref string) string {
	ref = strings.TrimLeft(strings.TrimSpace(ref), "*&")
	if i := strings.IndexAny(ref, "<[("); i > 0 {
		ref = ref[:i]
	}
	return strings.TrimSpace(ref)
}

// memberType rewrites a type for Mermaid, which writes generics as List~T~.
func memberType(t string) string {
	t = strings.NewReplacer("<", "~", ">", "~", "{", "(", "}", ")", "\n", " ").Replace(t)
	return strings.Join(strings.Fields(t), " ")
}

func visibility(modifiers []string) string {
	for _, m := range modifiers {
		switch m {
		case "private":
			return "-"
		case "protected":
			return "#"
		}
	}
	return "+"
}

// DependencyDiagram produces a Mermaid graph TD diagram from the IMPORTS
// edges of an index. Files are grouped by directory.
func DependencyDiagram(ctx context.Context, s store.Store) (string, error) {
	edges, err := s.AllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	var imports []store.Edge
	dirs := make(map[string][]string)
	member := make(map[string]bool)
	addFile := func(p string) {
		if !member[p] {
			member[p] = true
			dirs[path.Dir(p)] = append(dirs[path.Dir(p)], p)
		}
	}
	for _, e := range edges {
		if e.Kind != store.EdgeKindImports {
			continue
		}
		imports = append(imports, e)
		addFile(e.SourceID)
		addFile(e.TargetID)
	}
	sort.Slice(imports, func(i, j int) bool {
		if imports[i].SourceID != imports[j].SourceID {
			return imports[i].SourceID < imports[j].SourceID
		}
		return imports[i].TargetID < imports[j].TargetID
	})

	// Mermaid node IDs must be alphanumeric.
	nodeIDs := make(map[string]string)
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", len(nodeIDs))
		nodeIDs[key] = id
		return id
	}

	dirNames := make([]string, 0, len(dirs))
	for dir := range dirs {
		dirNames = append(dirNames, dir)
	}
	sort.Strings(dirNames)

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, dir := range dirNames {
		files := dirs[dir]
		sort.Strings(files)
		fmt.Fprintf(&sb, "  subgraph %s[\"%.40s\"]\n", getID(dir+"/"), dir)
		for _, f := range files {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", getID(f), shortPath(f))
		}
		sb.WriteString("  end\n")
	}
	for _, e := range imports {
		fmt.Fprintf(&sb, "  %s --> %s\n", getID(e.SourceID), getID(e.TargetID))
	}
	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) <= 2 {
		return p
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

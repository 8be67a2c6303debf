package structurer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/grammar"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

// TreeStructurer is the query-driven structurer shared by every language.
// The dialect interprets the captured nodes; the algorithm that assigns
// them to declarations is the same for all grammars.
type TreeStructurer struct {
	lang    model.Language
	dialect dialect
	loader  *queries.Loader
	logger  *slog.Logger

	mu      sync.RWMutex
	catalog *grammar.Catalog
	grammar *tree_sitter.Language
	set     *queries.Set
}

func newTreeStructurer(lang model.Language, d dialect, loader *queries.Loader, logger *slog.Logger) *TreeStructurer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TreeStructurer{
		lang:    lang,
		dialect: d,
		loader:  loader,
		logger:  logger.With("component", "structurer", "language", string(lang)),
	}
}

// Name returns the language tag.
func (s *TreeStructurer) Name() string { return string(s.lang) }

// Language returns the language the structurer handles.
func (s *TreeStructurer) Language() model.Language { return s.lang }

// IsApplicable reports whether lang is this structurer's language.
func (s *TreeStructurer) IsApplicable(lang model.Language) bool { return lang == s.lang }

// Init loads the grammar and compiles the query set.
func (s *TreeStructurer) Init(ctx context.Context, catalog *grammar.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set != nil && s.catalog == catalog {
		return nil
	}
	g, err := catalog.Language(ctx, s.lang)
	if err != nil {
		return err
	}
	set, err := s.loader.Load(s.lang, g)
	if err != nil {
		return err
	}
	s.catalog, s.grammar, s.set = catalog, g, set
	return nil
}

// Queries returns the compiled query set, or nil before Init.
func (s *TreeStructurer) Queries() *queries.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// Parse parses content with the bound catalog. The caller owns the tree.
func (s *TreeStructurer) Parse(ctx context.Context, content []byte) (*syntax.Tree, error) {
	s.mu.RLock()
	catalog := s.catalog
	s.mu.RUnlock()
	if catalog == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, s.lang)
	}
	return catalog.Parse(ctx, content, s.lang)
}

// ParseFile parses content and structures it.
func (s *TreeStructurer) ParseFile(ctx context.Context, content []byte, path string) ([]model.CodeDataStruct, error) {
	tree, err := s.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return s.Structure(tree, path)
}

// Structure converts an already parsed tree. It does not take ownership of
// the tree.
func (s *TreeStructurer) Structure(tree *syntax.Tree, path string) ([]model.CodeDataStruct, error) {
	set, err := s.QueriesFor(tree)
	if err != nil {
		return nil, err
	}
	b := &builder{
		tree:    tree,
		dialect: s.dialect,
		set:     set,
		path:    path,
		module:  s.dialect.module(path),
		logger:  s.logger,
		decls:   make(map[uintptr]*decl),
		funcs:   make(map[uintptr]bool),
		emitted: make(map[uintptr]funcRef),
		holders: make(map[string]*model.CodeDataStruct),
	}
	return b.build(), nil
}

// QueriesFor returns the query set compiled for the tree's grammar. A grammar
// replaced in the catalog after Init gets its queries compiled on first use.
func (s *TreeStructurer) QueriesFor(tree *syntax.Tree) (*queries.Set, error) {
	s.mu.RLock()
	set, g := s.set, s.grammar
	s.mu.RUnlock()
	if set == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, s.lang)
	}
	if tree.Grammar() == g {
		return set, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tree.Grammar() == s.grammar {
		return s.set, nil
	}
	// The previous set may still be in use by concurrent parses, so it is
	// left for the garbage collector rather than closed.
	set, err := s.loader.Load(s.lang, tree.Grammar())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("recompiled queries for replaced grammar")
	s.grammar, s.set = tree.Grammar(), set
	return set, nil
}

// decl is one captured declaration while a file is being structured.
type decl struct {
	node     tree_sitter.Node
	ds       *model.CodeDataStruct
	parent   *decl
	children []*decl
	dropped  bool
}

// funcRef addresses an emitted function inside its owner.
type funcRef struct {
	owner *model.CodeDataStruct
	index int
}

type member struct {
	node     tree_sitter.Node
	function bool
}

type builder struct {
	tree    *syntax.Tree
	dialect dialect
	set     *queries.Set
	path    string
	module  string
	pkg     string
	logger  *slog.Logger

	imports []model.CodeImport
	exports []model.CodeExport

	order   []*decl
	decls   map[uintptr]*decl
	funcs   map[uintptr]bool
	emitted map[uintptr]funcRef

	holders     map[string]*model.CodeDataStruct
	holderOrder []string
}

func (b *builder) build() []model.CodeDataStruct {
	b.collectImports()
	b.collectDecls()
	b.nest()
	b.collectImplements()
	b.collectMembers()
	b.collectCalls()
	return b.emit()
}

func (b *builder) collectImports() {
	for c := range b.tree.Captures(b.set.Get(queries.Imports), nil) {
		n := c.Node
		switch c.Name {
		case queries.CapturePackage:
			if b.pkg == "" {
				b.pkg = b.dialect.packageName(b.tree, &n)
			}
		case queries.CaptureImport:
			b.imports = append(b.imports, b.dialect.imports(b.tree, &n)...)
		case queries.CaptureExport:
			b.exports = append(b.exports, b.dialect.exports(b.tree, &n)...)
		}
	}
}

func (b *builder) collectDecls() {
	for m := range b.tree.FindAll(b.set.Get(queries.Declarations), nil) {
		var (
			node *tree_sitter.Node
			typ  model.DataStructType
		)
		for i := range m.Captures {
			if kind, ok := strings.CutPrefix(m.Captures[i].Name, queries.CaptureDeclPrefix); ok {
				node = &m.Captures[i].Node
				typ = declType(kind)
			}
		}
		nameNode, ok := m.Node(queries.CaptureName)
		if node == nil || !ok || typ == "" {
			continue
		}
		if _, seen := b.decls[node.Id()]; seen {
			continue
		}
		r := b.tree.RangeBetween(b.dialect.span(node))
		d := &decl{
			node: *node,
			ds: &model.CodeDataStruct{
				NodeName: b.tree.Text(nameNode),
				Module:   b.module,
				Package:  b.pkg,
				FilePath: b.path,
				Type:     typ,
				Position: r.Position(),
				Content:  r.Text,
			},
		}
		b.decls[node.Id()] = d
		b.order = append(b.order, d)
	}
	sort.SliceStable(b.order, func(i, j int) bool {
		return b.order[i].node.StartByte() < b.order[j].node.StartByte()
	})

	// Function nodes are needed before nesting to recognize local declarations.
	for c := range b.tree.Captures(b.set.Get(queries.Members), nil) {
		if c.Name == queries.CaptureFunction {
			b.funcs[c.Node.Id()] = true
		}
	}
}

func declType(kind string) model.DataStructType {
	switch kind {
	case "class":
		return model.TypeClass
	case "interface":
		return model.TypeInterface
	case "enum":
		return model.TypeEnum
	case "message":
		return model.TypeMessage
	}
	return ""
}

// owner walks up from n to the nearest live declaration. local is true when
// a function boundary is crossed first.
func (b *builder) owner(n *tree_sitter.Node) (d *decl, local bool) {
	for p := range syntax.Ancestors(n) {
		if d, ok := b.decls[p.Id()]; ok && !d.dropped {
			return d, false
		}
		if b.funcs[p.Id()] || b.dialect.isLocalBoundary(p.Kind()) {
			return nil, true
		}
	}
	return nil, false
}

func (b *builder) nest() {
	for _, d := range b.order {
		parent, local := b.owner(&d.node)
		if local {
			d.dropped = true
			continue
		}
		d.parent = parent
		if parent != nil {
			parent.children = append(parent.children, d)
		}
	}
	for _, d := range b.order {
		if !d.dropped {
			b.dialect.decorate(b.tree, &d.node, d.ds)
		}
	}
}

// topLevel returns the first top-level declaration named name.
func (b *builder) topLevel(name string) *model.CodeDataStruct {
	for _, d := range b.order {
		if !d.dropped && d.parent == nil && d.ds.NodeName == name {
			return d.ds
		}
	}
	return nil
}

// target returns the struct that receives members attached by type name,
// creating a synthetic holder when the type is not declared in the file.
func (b *builder) target(name string) *model.CodeDataStruct {
	if ds := b.topLevel(name); ds != nil {
		return ds
	}
	if h, ok := b.holders[name]; ok {
		return h
	}
	h := &model.CodeDataStruct{
		NodeName:  name,
		Module:    b.module,
		Package:   b.pkg,
		FilePath:  b.path,
		Type:      model.TypeClass,
		Extension: map[string]any{model.ExtSynthetic: true},
	}
	b.holders[name] = h
	b.holderOrder = append(b.holderOrder, name)
	return h
}

func (b *builder) collectImplements() {
	for c := range b.tree.Captures(b.set.Get(queries.Declarations), nil) {
		if c.Name != queries.CaptureImplements {
			continue
		}
		n := c.Node
		if _, local := b.owner(&n); local {
			continue
		}
		typ, iface, ok := b.dialect.implementation(b.tree, &n)
		if !ok {
			continue
		}
		ds := b.target(typ)
		ds.Implements = appendUnique(ds.Implements, iface)
	}
}

func (b *builder) collectMembers() {
	var (
		members []member
		index   = make(map[uintptr]int)
	)
	for c := range b.tree.Captures(b.set.Get(queries.Members), nil) {
		fn := c.Name == queries.CaptureFunction
		if !fn && c.Name != queries.CaptureField {
			continue
		}
		id := c.Node.Id()
		if _, isDecl := b.decls[id]; isDecl {
			continue
		}
		if i, seen := index[id]; seen {
			members[i].function = members[i].function || fn
			continue
		}
		index[id] = len(members)
		members = append(members, member{node: c.Node, function: fn})
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].node.StartByte() < members[j].node.StartByte()
	})

	for i := range members {
		m := &members[i]
		owner, local := b.owner(&m.node)
		if local {
			continue
		}
		if !m.function {
			if owner != nil {
				owner.ds.Fields = append(owner.ds.Fields, b.dialect.fields(b.tree, &m.node)...)
			}
			continue
		}

		fn, ok := b.dialect.function(b.tree, &m.node)
		if !ok {
			continue
		}
		r := b.tree.Range(&m.node)
		fn.Position = r.Position()
		fn.Content = r.Text

		var target *model.CodeDataStruct
		switch {
		case owner != nil:
			target = owner.ds
		default:
			if typ, ok := b.dialect.receiver(b.tree, &m.node); ok {
				target = b.target(typ)
			} else {
				target = b.target(model.DefaultStructName)
			}
		}
		target.Functions = append(target.Functions, fn)
		b.emitted[m.node.Id()] = funcRef{owner: target, index: len(target.Functions) - 1}
	}
}

func (b *builder) collectCalls() {
	for c := range b.tree.Captures(b.set.Get(queries.Calls), nil) {
		if c.Name != queries.CaptureCall {
			continue
		}
		n := c.Node
		name := b.tree.Text(&n)
		if name == "" {
			continue
		}
		for p := range syntax.Ancestors(&n) {
			if ref, ok := b.emitted[p.Id()]; ok {
				fn := &ref.owner.Functions[ref.index]
				fn.FunctionCalls = appendUnique(fn.FunctionCalls, name)
				break
			}
			if d, ok := b.decls[p.Id()]; ok && !d.dropped {
				d.ds.FunctionCalls = appendUnique(d.ds.FunctionCalls, name)
				break
			}
		}
	}
}

func (b *builder) emit() []model.CodeDataStruct {
	out := make([]model.CodeDataStruct, 0, len(b.order)+len(b.holderOrder))
	add := func(ds model.CodeDataStruct) {
		ds.Imports = append([]model.CodeImport(nil), b.imports...)
		ds.Exports = append([]model.CodeExport(nil), b.exports...)
		if ds.Extension == nil {
			ds.Extension = make(map[string]any)
		}
		ds.Extension[model.ExtLanguage] = string(b.tree.Language())
		if b.tree.HasErrors() {
			ds.Extension[model.ExtSyntaxErrors] = true
		}
		normalize(&ds)
		if err := ds.Validate(); err != nil {
			b.logger.Warn("dropping invalid struct", "path", b.path, "error", err)
			return
		}
		out = append(out, ds)
	}

	for _, d := range b.order {
		if d.dropped || d.parent != nil {
			continue
		}
		add(b.materialize(d))
	}
	for _, name := range b.holderOrder {
		add(*b.holders[name])
	}
	return out
}

// materialize copies d and its live children into a value tree.
func (b *builder) materialize(d *decl) model.CodeDataStruct {
	ds := *d.ds
	for _, c := range d.children {
		if c.dropped {
			continue
		}
		inner := b.materialize(c)
		normalize(&inner)
		ds.InnerStructures = append(ds.InnerStructures, inner)
	}
	return ds
}

// normalize replaces nil slices with empty ones so every struct encodes the
// same shape.
func normalize(ds *model.CodeDataStruct) {
	ds.Fields = nonNil(ds.Fields)
	ds.Functions = nonNil(ds.Functions)
	ds.MultipleExtend = nonNil(ds.MultipleExtend)
	ds.Implements = nonNil(ds.Implements)
	ds.InnerStructures = nonNil(ds.InnerStructures)
	ds.Annotations = nonNil(ds.Annotations)
	ds.Imports = nonNil(ds.Imports)
	ds.Exports = nonNil(ds.Exports)
	ds.FunctionCalls = nonNil(ds.FunctionCalls)
	for i := range ds.Functions {
		fn := &ds.Functions[i]
		fn.Parameters = nonNil(fn.Parameters)
		fn.Decorators = nonNil(fn.Decorators)
		fn.FunctionCalls = nonNil(fn.FunctionCalls)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

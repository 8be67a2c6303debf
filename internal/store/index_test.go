package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/model"
)

func javaResults() []*engine.FileResult {
	return []*engine.FileResult{
		{
			Path:        "src/com/acme/Entity.java",
			Language:    model.LangJava,
			ContentHash: 0xabc,
			Structs: []model.CodeDataStruct{
				{NodeName: "Entity", Type: model.TypeClass, Package: "com.acme", Position: model.CodePosition{StartLine: 3, StopLine: 10}},
				{NodeName: "Identified", Type: model.TypeInterface, Package: "com.acme"},
			},
		},
		{
			Path:         "src/com/acme/order/Order.java",
			Language:     model.LangJava,
			SyntaxErrors: true,
			Structs: []model.CodeDataStruct{{
				NodeName:   "Order",
				Type:       model.TypeClass,
				Package:    "com.acme.order",
				Extend:     "Entity",
				Implements: []string{"com.acme.Identified", "Comparable<Order>"},
				Fields:     []model.CodeField{{Name: "id"}, {Name: "lines"}},
				Imports:    []model.CodeImport{{Source: "com.acme.Entity"}, {Source: "java.util.List"}},
				InnerStructures: []model.CodeDataStruct{{
					NodeName:        "Line",
					Type:            model.TypeClass,
					Extend:          "Order",
					InnerStructures: []model.CodeDataStruct{{NodeName: "Kind", Type: model.TypeEnum}},
				}},
			}},
		},
	}
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, Index(ctx, s, javaResults()))

	t.Run("files", func(t *testing.T) {
		f, err := s.GetFile(ctx, "src/com/acme/Entity.java")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "0000000000000abc", f.ContentHash)
		assert.Equal(t, 2, f.StructCount)

		f, err = s.GetFile(ctx, "src/com/acme/order/Order.java")
		require.NoError(t, err)
		assert.Equal(t, 3, f.StructCount, "inner structures are counted")
		assert.True(t, f.SyntaxErrors)
	})

	t.Run("inner structures are flattened", func(t *testing.T) {
		got, err := s.QueryStructs(ctx, "", "", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"src/com/acme/Entity.java:Entity",
			"src/com/acme/Entity.java:Identified",
			"src/com/acme/order/Order.java:Order",
			"src/com/acme/order/Order.java:Order.Line",
			"src/com/acme/order/Order.java:Order.Line.Kind",
		}, ids(got))

		order, err := s.GetStruct(ctx, "src/com/acme/order/Order.java", "Order")
		require.NoError(t, err)
		assert.Equal(t, 2, order.Fields)
		assert.Equal(t, "com.acme.order", order.Package)
	})

	t.Run("edges", func(t *testing.T) {
		edges, err := s.AllEdges(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Edge{
			{SourceID: "src/com/acme/Entity.java", TargetID: "src/com/acme/Entity.java:Entity", Kind: EdgeKindDefines},
			{SourceID: "src/com/acme/Entity.java", TargetID: "src/com/acme/Entity.java:Identified", Kind: EdgeKindDefines},
			{SourceID: "src/com/acme/order/Order.java", TargetID: "src/com/acme/order/Order.java:Order", Kind: EdgeKindDefines},
			{SourceID: "src/com/acme/order/Order.java:Order", TargetID: "src/com/acme/order/Order.java:Order.Line", Kind: EdgeKindContains},
			{SourceID: "src/com/acme/order/Order.java:Order.Line", TargetID: "src/com/acme/order/Order.java:Order.Line.Kind", Kind: EdgeKindContains},
			{SourceID: "src/com/acme/order/Order.java:Order", TargetID: "src/com/acme/Entity.java:Entity", Kind: EdgeKindExtends},
			{SourceID: "src/com/acme/order/Order.java:Order", TargetID: "src/com/acme/Entity.java:Identified", Kind: EdgeKindImplements},
			{SourceID: "src/com/acme/order/Order.java:Order.Line", TargetID: "src/com/acme/order/Order.java:Order", Kind: EdgeKindExtends},
			{SourceID: "src/com/acme/order/Order.java", TargetID: "src/com/acme/Entity.java", Kind: EdgeKindImports},
		}, edges)
	})
}

func TestIndex_AmbiguousNamesPreferLocal(t *testing.T) {
	ctx := context.Background()
	results := []*engine.FileResult{
		{Path: "a/base.py", Language: model.LangPython, Structs: []model.CodeDataStruct{{NodeName: "Base", Package: "a"}}},
		{Path: "b/base.py", Language: model.LangPython, Structs: []model.CodeDataStruct{{NodeName: "Base", Package: "b"}}},
		{Path: "b/child.py", Language: model.LangPython, Structs: []model.CodeDataStruct{{NodeName: "Child", Package: "b", Extend: "Base"}}},
		{Path: "c/other.py", Language: model.LangPython, Structs: []model.CodeDataStruct{{NodeName: "Other", Package: "c", Extend: "Base"}}},
		{Path: "c/self.py", Language: model.LangPython, Structs: []model.CodeDataStruct{{NodeName: "Self", Extend: "Self"}}},
	}
	s := NewMemStore()
	require.NoError(t, Index(ctx, s, results))

	got, err := s.Related(ctx, "b/child.py:Child", EdgeKindExtends, DirectionOutgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"b/base.py:Base"}, got, "same package wins")

	got, err = s.Related(ctx, "c/other.py:Other", EdgeKindExtends, DirectionOutgoing)
	require.NoError(t, err)
	assert.Empty(t, got, "ambiguous names are not linked")

	got, err = s.Related(ctx, "c/self.py:Self", EdgeKindExtends, DirectionOutgoing)
	require.NoError(t, err)
	assert.Empty(t, got, "no self edges")
}

func TestIndex_QualifiedNamesMatchPackage(t *testing.T) {
	ctx := context.Background()
	results := []*engine.FileResult{
		{Path: "internal/stream/reader.go", Language: model.LangGo, Structs: []model.CodeDataStruct{
			{NodeName: "Reader", Type: model.TypeClass, Package: "stream", Module: "internal/stream"},
		}},
		{Path: "internal/shop/cart.go", Language: model.LangGo, Structs: []model.CodeDataStruct{
			{NodeName: "Cart", Type: model.TypeClass, Package: "shop", Module: "internal/shop", MultipleExtend: []string{"io.Reader"}},
			{NodeName: "Feed", Type: model.TypeClass, Package: "shop", Module: "internal/shop", MultipleExtend: []string{"*stream.Reader"}},
		}},
		{Path: "src/model/user.rs", Language: model.LangRust, Structs: []model.CodeDataStruct{
			{NodeName: "User", Type: model.TypeClass, Module: "src::model::user"},
		}},
		{Path: "src/model/admin.rs", Language: model.LangRust, Structs: []model.CodeDataStruct{
			{NodeName: "Admin", Type: model.TypeClass, Module: "src::model::admin", Implements: []string{"crate::model::user::User"}},
		}},
	}
	s := NewMemStore()
	require.NoError(t, Index(ctx, s, results))

	got, err := s.Related(ctx, "internal/shop/cart.go:Cart", EdgeKindExtends, DirectionOutgoing)
	require.NoError(t, err)
	assert.Empty(t, got, "io.Reader is not stream.Reader")

	got, err = s.Related(ctx, "internal/shop/cart.go:Feed", EdgeKindExtends, DirectionOutgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"internal/stream/reader.go:Reader"}, got)

	got, err = s.Related(ctx, "src/model/admin.rs:Admin", EdgeKindImplements, DirectionOutgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/model/user.rs:User"}, got)
}

func TestIndex_DuplicateNamesInOneFile(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, Index(ctx, s, []*engine.FileResult{{
		Path:     "a.ts",
		Language: model.LangTypeScript,
		Structs:  []model.CodeDataStruct{{NodeName: "A", Type: model.TypeClass}, {NodeName: "A", Type: model.TypeInterface}},
	}}))
	a, err := s.GetStruct(ctx, "a.ts", "A")
	require.NoError(t, err)
	assert.Equal(t, model.TypeClass, a.Kind, "first declaration wins")
}

func TestIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Index(ctx, NewMemStore(), javaResults()), context.Canceled)
}

func TestIndex_ScannedProject(t *testing.T) {
	ctx := context.Background()
	root := "../../testdata/fixtures/go_project"

	files, err := engine.Scan(root, engine.ScanOptions{})
	require.NoError(t, err)
	e, err := engine.New(ctx, engine.WithLanguages(model.LangGo), engine.WithScopeGraphs(false))
	require.NoError(t, err)
	batch, err := e.ParseBatch(ctx, files)
	require.NoError(t, err)
	require.Empty(t, batch.Diagnostics)

	s := NewMemStore()
	require.NoError(t, Index(ctx, s, batch.Files, WithRepoRoot(root)))

	repo, err := s.GetStruct(ctx, "model.go", "Repository")
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, model.TypeInterface, repo.Kind)

	deps, err := s.Dependencies(ctx, "store/memory.go", DirectionOutgoing, 3)
	require.NoError(t, err)
	assert.Equal(t, []DependencyChain{{Nodes: []string{"store/memory.go", "model.go"}, Depth: 1}}, deps)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.FileCount)
	assert.Equal(t, 1, st.EdgesByKind[EdgeKindImports])
}

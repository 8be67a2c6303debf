package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/model"
)

// seed adds files a.go, b.go and c.go where a imports b and b imports c.
func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []string{"a.go", "b.go", "c.go"} {
		require.NoError(t, s.AddFile(ctx, FileNode{Path: p, Language: model.LangGo, ContentHash: "00000000000000ff", StructCount: 1}))
	}
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "Order", Kind: model.TypeClass, FilePath: "a.go", StartLine: 3, EndLine: 9, Fields: 2, Functions: 1}))
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "OrderStore", Kind: model.TypeInterface, FilePath: "b.go", StartLine: 1, EndLine: 4}))
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "Order.Line", Kind: model.TypeClass, FilePath: "a.go", StartLine: 5, EndLine: 6}))
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "Color", Kind: model.TypeEnum, FilePath: "c.go"}))

	for _, e := range []Edge{
		{SourceID: "a.go", TargetID: "a.go:Order", Kind: EdgeKindDefines},
		{SourceID: "a.go:Order", TargetID: "a.go:Order.Line", Kind: EdgeKindContains},
		{SourceID: "a.go:Order", TargetID: "b.go:OrderStore", Kind: EdgeKindImplements},
		{SourceID: "a.go", TargetID: "b.go", Kind: EdgeKindImports},
		{SourceID: "b.go", TargetID: "c.go", Kind: EdgeKindImports},
	} {
		require.NoError(t, s.AddEdge(ctx, e))
	}
}

// storeContract runs the behaviour every Store implementation shares.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("file round trip", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.GetFile(ctx, "a.go")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, FileNode{Path: "a.go", Language: model.LangGo, ContentHash: "00000000000000ff", StructCount: 1}, *got)

		missing, err := s.GetFile(ctx, "nope.go")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("struct round trip", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.GetStruct(ctx, "a.go", "Order")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, StructNode{
			ID: "a.go:Order", Name: "Order", Kind: model.TypeClass, FilePath: "a.go",
			StartLine: 3, EndLine: 9, Fields: 2, Functions: 1,
		}, *got)

		missing, err := s.GetStruct(ctx, "b.go", "Order")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("query structs", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.QueryStructs(ctx, "order", "", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go:Order", "a.go:Order.Line", "b.go:OrderStore"}, ids(got))

		got, err = s.QueryStructs(ctx, "ORDER", model.TypeInterface, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b.go:OrderStore"}, ids(got))

		got, err = s.QueryStructs(ctx, "", "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go:Order", "a.go:Order.Line"}, ids(got))

		got, err = s.QueryStructs(ctx, "zzz", "", 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("related", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.Related(ctx, "a.go:Order", EdgeKindImplements, DirectionOutgoing)
		require.NoError(t, err)
		assert.Equal(t, []string{"b.go:OrderStore"}, got)

		got, err = s.Related(ctx, "b.go:OrderStore", EdgeKindImplements, DirectionIncoming)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go:Order"}, got)

		got, err = s.Related(ctx, "a.go", EdgeKindDefines, DirectionOutgoing)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go:Order"}, got)

		got, err = s.Related(ctx, "a.go:Order", EdgeKindExtends, DirectionOutgoing)
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = s.Related(ctx, "a.go", EdgeKindDefines, Direction("sideways"))
		assert.Error(t, err)
	})

	t.Run("dependencies", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		chains, err := s.Dependencies(ctx, "a.go", DirectionOutgoing, 5)
		require.NoError(t, err)
		assert.Equal(t, []DependencyChain{
			{Nodes: []string{"a.go", "b.go"}, Depth: 1},
			{Nodes: []string{"a.go", "b.go", "c.go"}, Depth: 2},
		}, chains)

		chains, err = s.Dependencies(ctx, "c.go", DirectionIncoming, 1)
		require.NoError(t, err)
		assert.Equal(t, []DependencyChain{{Nodes: []string{"c.go", "b.go"}, Depth: 1}}, chains)

		chains, err = s.Dependencies(ctx, "a.go", DirectionOutgoing, 0)
		require.NoError(t, err)
		assert.Empty(t, chains)
	})

	t.Run("edges to unknown nodes are rejected", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		assert.Error(t, s.AddEdge(ctx, Edge{SourceID: "a.go", TargetID: "missing.go", Kind: EdgeKindImports}))
		assert.Error(t, s.AddEdge(ctx, Edge{SourceID: "a.go", TargetID: "b.go", Kind: EdgeKind("CALLS")}))
	})

	t.Run("stats and edges", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		// Duplicate edges collapse.
		require.NoError(t, s.AddEdge(ctx, Edge{SourceID: "a.go", TargetID: "b.go", Kind: EdgeKindImports}))

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, st.FileCount)
		assert.Equal(t, 4, st.StructCount)
		assert.Equal(t, 5, st.EdgeCount)
		assert.Equal(t, 2, st.EdgesByKind[EdgeKindImports])
		assert.Equal(t, 1, st.EdgesByKind[EdgeKindContains])

		edges, err := s.AllEdges(ctx)
		require.NoError(t, err)
		assert.Len(t, edges, 5)
		assert.Contains(t, edges, Edge{SourceID: "a.go:Order", TargetID: "a.go:Order.Line", Kind: EdgeKindContains})
	})
}

func ids(nodes []StructNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestMemStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s := NewMemStore()
		t.Cleanup(func() { _ = s.Close() })
		require.NoError(t, s.InitSchema(context.Background()))
		return s
	})
}

func TestMemStore_UpsertsByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "A", FilePath: "a.go", Fields: 1}))
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "A", FilePath: "a.go", Fields: 2}))

	got, err := s.GetStruct(ctx, "a.go", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Fields)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.StructCount)
}

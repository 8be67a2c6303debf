package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/store"
)

func TestClassDiagram(t *testing.T) {
	structs := []model.CodeDataStruct{
		{
			NodeName:   "Order",
			Type:       model.TypeClass,
			Extend:     "BaseEntity<Long>",
			Implements: []string{"Serializable"},
			Fields: []model.CodeField{
				{Name: "id", Type: "Long", Modifiers: []string{"private"}},
				{Name: "lines", Type: "List<Line>"},
				{Name: "tags", Type: "String", IsArray: true, Modifiers: []string{"protected"}},
			},
			Functions: []model.CodeFunction{
				{Name: "total", ReturnType: "int", Parameters: []model.CodeParameter{{Name: "tax", Type: "double"}}},
				{Name: "of", ReturnType: "Order", IsStatic: true},
			},
			InnerStructures: []model.CodeDataStruct{{NodeName: "Line", Type: model.TypeClass}},
		},
		{NodeName: "Repo", Type: model.TypeInterface, MultipleExtend: []string{"io.Closer"}},
		{NodeName: "Color", Type: model.TypeEnum, Fields: []model.CodeField{{Name: "RED"}}},
		{NodeName: "Order", Type: model.TypeClass},
		{NodeName: model.DefaultStructName, Extension: map[string]any{model.ExtSynthetic: true},
			Functions: []model.CodeFunction{{Name: "main"}}},
	}

	want := `classDiagram
  class Order {
    -Long id
    +List~Line~ lines
    #String[] tags
    +total(double tax) int
    +of()$ Order
  }
  class Order_Line["Order.Line"] {
  }
  class Repo {
    <<interface>>
  }
  class Color {
    <<enumeration>>
    +RED
  }
  BaseEntity <|-- Order
  Order ..|> Serializable
  Order *-- Order_Line
  io_Closer <|-- Repo
`
	assert.Equal(t, want, ClassDiagram(structs))
}

func TestClassDiagram_Empty(t *testing.T) {
	assert.Equal(t, "classDiagram\n", ClassDiagram(nil))
}

func TestDependencyDiagram(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	for _, p := range []string{"cmd/main.go", "internal/a/a.go", "internal/b/b.go", "lonely.go"} {
		require.NoError(t, s.AddFile(ctx, store.FileNode{Path: p}))
	}
	require.NoError(t, s.AddStruct(ctx, store.StructNode{Name: "A", FilePath: "internal/a/a.go"}))
	require.NoError(t, s.AddEdge(ctx, store.Edge{SourceID: "internal/a/a.go", TargetID: "internal/a/a.go:A", Kind: store.EdgeKindDefines}))
	require.NoError(t, s.AddEdge(ctx, store.Edge{SourceID: "internal/a/a.go", TargetID: "internal/b/b.go", Kind: store.EdgeKindImports}))
	require.NoError(t, s.AddEdge(ctx, store.Edge{SourceID: "cmd/main.go", TargetID: "internal/a/a.go", Kind: store.EdgeKindImports}))

	got, err := DependencyDiagram(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, `graph TD
  subgraph N0["cmd"]
    N1["cmd/main.go"]
  end
  subgraph N2["internal/a"]
    N3["a/a.go"]
  end
  subgraph N4["internal/b"]
    N5["b/b.go"]
  end
  N1 --> N3
  N3 --> N5
`, got)
}

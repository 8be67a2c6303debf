//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/model"
)

// newKuzuTestStore creates a fresh in-memory KuzuStore with an initialized
// schema, closed when the test finishes.
func newKuzuTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()), "InitSchema should not fail")
	return s
}

func TestKuzuStore(t *testing.T) {
	storeContract(t, newKuzuTestStore)
}

func TestKuzuStore_InitSchemaIdempotent(t *testing.T) {
	s := newKuzuTestStore(t)
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestKuzuStore_UpsertsByID(t *testing.T) {
	ctx := context.Background()
	s := newKuzuTestStore(t)
	require.NoError(t, s.AddFile(ctx, FileNode{Path: "a.go", Language: model.LangGo}))
	require.NoError(t, s.AddFile(ctx, FileNode{Path: "a.go", Language: model.LangGo, StructCount: 3, SyntaxErrors: true}))
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "A", FilePath: "a.go", Fields: 1}))
	require.NoError(t, s.AddStruct(ctx, StructNode{Name: "A", FilePath: "a.go", Fields: 2, Synthetic: true}))

	f, err := s.GetFile(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, 3, f.StructCount)
	assert.True(t, f.SyntaxErrors)

	got, err := s.GetStruct(ctx, "a.go", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Fields)
	assert.True(t, got.Synthetic)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.FileCount)
	assert.Equal(t, 1, st.StructCount)
}

func TestKuzuFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "index.kuzu")

	s, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	seed(t, s)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")

	reopened, err := NewKuzuFileStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.InitSchema(ctx))

	got, err := reopened.GetStruct(ctx, "b.go", "OrderStore")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TypeInterface, got.Kind)

	st, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st.EdgeCount)
}

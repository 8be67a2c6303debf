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

func newSQLiteTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, newSQLiteTestStore)
}

func TestSQLiteStore_UpsertsByID(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)
	require.NoError(t, s.InitSchema(ctx), "InitSchema is idempotent")
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

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "index.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	seed(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.InitSchema(ctx))

	clusters, err := Clusters(ctx, reopened)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, clusters[0].Members)
	assert.Equal(t, 2, clusters[0].Edges)
}

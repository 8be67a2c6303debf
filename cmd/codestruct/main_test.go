package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/config"
	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/export"
	"github.com/dusk-indust/codestruct/internal/scopegraph"
	"github.com/dusk-indust/codestruct/internal/store"
)

var fixture = filepath.Join("..", "..", "testdata", "fixtures", "go_project")

// execute runs the root command with args against an empty config
// directory and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", t.TempDir()}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestParse_Directory(t *testing.T) {
	out, err := execute(t, "parse", fixture)
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 3)
	assert.Equal(t, filepath.ToSlash(filepath.Join(fixture, "model.go")), doc.Files[0].Path)
	assert.Empty(t, doc.Diagnostics)
	assert.Nil(t, doc.Files[0].ScopeGraph)
}

func TestParse_FilesWithDiagnostics(t *testing.T) {
	dir := t.TempDir()
	py := filepath.Join(dir, "shape.py")
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(py, []byte("class Shape:\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))

	out, err := execute(t, "parse", "--scopes", "--compact", py, txt)
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "Shape", doc.Files[0].Structs[0].NodeName)
	assert.NotNil(t, doc.Files[0].ScopeGraph)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, engine.KindUnsupportedLanguage, doc.Diagnostics[0].Kind)
}

func TestParse_LanguageOverride(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Shape.txt")
	require.NoError(t, os.WriteFile(src, []byte("class Shape {}\n"), 0o644))

	out, err := execute(t, "parse", "--language", "Java", src)
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "java", string(doc.Files[0].Language))
}

func TestScopes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(src, []byte("x = 1\nx = 2\nprint(x)\n"), 0o644))

	out, err := execute(t, "scopes", src)
	require.NoError(t, err)
	var g struct {
		Language string            `json:"language"`
		Nodes    []scopegraph.Node `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Equal(t, "python", g.Language)
	assert.NotEmpty(t, g.Nodes)

	out, err = execute(t, "scopes", "--unresolved", src)
	require.NoError(t, err)
	assert.JSONEq(t, `["print:3:0"]`, out)
}

func TestIndex(t *testing.T) {
	out, err := execute(t, "index", "--languages", "go", fixture)
	require.NoError(t, err)

	var report indexReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Stats.FileCount)
	assert.Equal(t, 1, report.Stats.EdgesByKind[store.EdgeKindImports])
	assert.NotNil(t, report.Diagnostics)
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"model.go", "store/memory.go"}, report.Clusters[0].Members)
}

func TestIndex_KuzuDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "index")

	_, err := execute(t, "index", "--db", db, fixture)
	require.NoError(t, err)
	out, err := execute(t, "index", "--db", db, fixture)
	require.NoError(t, err, "re-indexing the same database")

	var report indexReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Stats.FileCount, "re-index upserts")
}

func TestIndex_SQLiteDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "index.db")

	_, err := execute(t, "index", "--languages", "go", "--db", db, fixture)
	require.NoError(t, err)
	out, err := execute(t, "index", "--languages", "go", "--db", db, fixture)
	require.NoError(t, err)

	var report indexReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Stats.FileCount)
	assert.Equal(t, 1, report.Stats.EdgesByKind[store.EdgeKindImports])

	out, err = execute(t, "diagram", "--deps", "--db", db, fixture)
	require.NoError(t, err)
	assert.Contains(t, out, `["store/memory.go"]`)
}

func TestDiagram(t *testing.T) {
	out, err := execute(t, "diagram", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "classDiagram\n")
	assert.Contains(t, out, "class UserService {")
	assert.Contains(t, out, "<<interface>>")

	out, err = execute(t, "diagram", "--deps", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, `["store/memory.go"]`)
}

func TestConfigErrors(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "parse", fixture)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codestruct.yml"), []byte("languages: [cobol]\n"), 0o644))
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", dir, "parse", fixture})
	require.ErrorIs(t, cmd.ExecuteContext(context.Background()), config.ErrInvalidConfig)
}

func TestParse_MissingPath(t *testing.T) {
	_, err := execute(t, "parse", filepath.Join(t.TempDir(), "missing.go"))
	require.Error(t, err)
}

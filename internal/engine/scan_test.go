package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/config"
	"github.com/dusk-indust/codestruct/internal/model"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func paths(files []FileInput) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestScan(t *testing.T) {
	root := writeTree(t, map[string]string{
		".gitignore":         "ignored/\n*.gen.go\n",
		"main.go":            "package main\n",
		"z.gen.go":           "package main\n",
		"pkg/util.py":        "x = 1\n",
		"pkg/web/app.ts":     "export const a = 1;\n",
		"src/Lib.java":       "class Lib {}\n",
		"src/lib.rs":         "fn f() {}\n",
		"ignored/skip.rs":    "fn g() {}\n",
		"node_modules/m.js":  "var x;\n",
		".git/HEAD.go":       "package git\n",
		"gen/api/client.go":  "package api\n",
		"README.md":          "# readme\n",
		"vendor/dep/dep.go":  "package dep\n",
		"pkg/big/huge.py":    "y = 2\n",
		"pkg/big/huge_2.pyi": "z: int\n",
	})

	t.Run("defaults from config", func(t *testing.T) {
		opts := ScanOptionsFromConfig(config.Default())
		opts.ExcludeGlobs = []string{"gen/**"}
		files, err := Scan(root, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"main.go",
			"pkg/big/huge.py",
			"pkg/big/huge_2.pyi",
			"pkg/util.py",
			"pkg/web/app.ts",
			"src/Lib.java",
			"src/lib.rs",
		}, paths(files))

		assert.Equal(t, model.LangGo, files[0].Language)
		assert.Equal(t, "package main\n", string(files[0].Content))
		assert.Equal(t, model.LangPython, files[2].Language)
	})

	t.Run("language filter", func(t *testing.T) {
		files, err := Scan(root, ScanOptions{Languages: []model.Language{model.LangRust, model.LangJava}})
		require.NoError(t, err)
		assert.Equal(t, []string{"src/Lib.java", "src/lib.rs"}, paths(files))
	})

	t.Run("no excludes still skips vcs and gitignore", func(t *testing.T) {
		files, err := Scan(root, ScanOptions{Languages: []model.Language{model.LangGo}})
		require.NoError(t, err)
		assert.Equal(t, []string{"gen/api/client.go", "main.go", "vendor/dep/dep.go"}, paths(files))
	})

	t.Run("max file size", func(t *testing.T) {
		files, err := Scan(root, ScanOptions{Languages: []model.Language{model.LangPython}, MaxFileSize: 6})
		require.NoError(t, err)
		assert.Equal(t, []string{"pkg/big/huge.py", "pkg/util.py"}, paths(files))
	})
}

func TestScan_Errors(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), ScanOptions{})
	assert.Error(t, err)

	root := writeTree(t, map[string]string{"a.go": "package a\n"})
	_, err = Scan(filepath.Join(root, "a.go"), ScanOptions{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

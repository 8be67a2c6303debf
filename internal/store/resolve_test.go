package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codestruct/internal/model"
)

type resolveCase struct {
	name   string
	source string
	from   string
	want   string
}

func runResolveCases(t *testing.T, r *Resolver, lang model.Language, tests []resolveCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(lang, tt.source, tt.from)
			assert.Equal(t, tt.want != "", ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestResolveTS(t *testing.T) {
	r := NewResolver("", []string{
		"src/index.ts",
		"src/service.ts",
		"src/types.ts",
		"src/sub/handler.ts",
		"src/components/index.ts",
	})
	runResolveCases(t, r, model.LangTypeScript, []resolveCase{
		{"dot-slash", "./service", "src/index.ts", "src/service.ts"},
		{"parent", "../types", "src/sub/handler.ts", "src/types.ts"},
		{"index file", "./components", "src/index.ts", "src/components/index.ts"},
		{"missing", "./nonexistent", "src/index.ts", ""},
		{"external package", "lodash", "src/index.ts", ""},
		{"scoped external", "@angular/core", "src/index.ts", ""},
	})
}

func TestResolveTS_Workspaces(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"package.json":                 `{"name": "root", "workspaces": ["packages/*"]}`,
		"packages/logger/package.json": `{"name": "@test/logger", "main": "src/index.ts"}`,
		"packages/db/package.json":     `{"name": "@test/db", "exports": {".": "./src/index.ts", "./queries": {"import": "./src/queries.ts"}}}`,
		"packages/util/package.json":   `{"name": "util"}`,
	})
	r := NewResolver(root, []string{
		"packages/logger/src/index.ts",
		"packages/db/src/index.ts",
		"packages/db/src/queries.ts",
		"packages/util/index.ts",
		"packages/util/strings.ts",
		"src/app.ts",
	})
	runResolveCases(t, r, model.LangTypeScript, []resolveCase{
		{"main field", "@test/logger", "src/app.ts", "packages/logger/src/index.ts"},
		{"exports default", "@test/db", "src/app.ts", "packages/db/src/index.ts"},
		{"conditional subpath export", "@test/db/queries", "src/app.ts", "packages/db/src/queries.ts"},
		{"index fallback", "util", "src/app.ts", "packages/util/index.ts"},
		{"unscoped subpath file", "util/strings", "src/app.ts", "packages/util/strings.ts"},
		{"unknown workspace subpath", "@test/db/missing", "src/app.ts", ""},
	})
}

func TestResolveGo(t *testing.T) {
	root := writeFiles(t, map[string]string{"go.mod": "module github.com/example/project\n\ngo 1.22\n"})
	r := NewResolver(root, []string{
		"internal/graph/store.go",
		"internal/graph/schema.go",
		"internal/graph/store_test.go",
		"internal/only/only_test.go",
		"main.go",
	})
	runResolveCases(t, r, model.LangGo, []resolveCase{
		{"local package picks first sorted file", "github.com/example/project/internal/graph", "main.go", "internal/graph/schema.go"},
		{"module root", "github.com/example/project", "internal/graph/store.go", "main.go"},
		{"test files only", "github.com/example/project/internal/only", "main.go", ""},
		{"prefix of another module", "github.com/example/projectx/a", "main.go", ""},
		{"stdlib", "context", "main.go", ""},
		{"external", "github.com/other/lib", "main.go", ""},
	})

	t.Run("without go.mod", func(t *testing.T) {
		r := NewResolver(t.TempDir(), []string{"internal/graph/store.go"})
		_, ok := r.Resolve(model.LangGo, "github.com/example/project/internal/graph", "main.go")
		assert.False(t, ok)
	})
}

func TestResolvePython(t *testing.T) {
	r := NewResolver("", []string{
		"app/__init__.py",
		"app/models.py",
		"app/api/views.py",
		"app/api/__init__.py",
		"app/util/__init__.py",
	})
	runResolveCases(t, r, model.LangPython, []resolveCase{
		{"same package", ".models", "app/main.py", "app/models.py"},
		{"parent package", "..models", "app/api/views.py", "app/models.py"},
		{"package init", "..util", "app/api/views.py", "app/util/__init__.py"},
		{"bare dot", ".", "app/api/views.py", "app/api/__init__.py"},
		{"absolute module in tree", "app.models", "main.py", "app/models.py"},
		{"external", "numpy", "app/models.py", ""},
	})
}

func TestResolveRust(t *testing.T) {
	r := NewResolver("", []string{
		"src/main.rs",
		"src/db.rs",
		"src/model/mod.rs",
		"src/model/user.rs",
		"crates/core/src/lib.rs",
		"crates/core/src/service.rs",
	})
	runResolveCases(t, r, model.LangRust, []resolveCase{
		{"crate file", "crate::db", "src/main.rs", "src/db.rs"},
		{"crate mod dir", "crate::model", "src/main.rs", "src/model/mod.rs"},
		{"crate item", "crate::model::user::User", "src/main.rs", "src/model/user.rs"},
		{"use list", "crate::model::{Repository, User}", "src/main.rs", "src/model/mod.rs"},
		{"nested crate root", "crate::service", "crates/core/src/lib.rs", "crates/core/src/service.rs"},
		{"self", "self::user", "src/model/mod.rs", "src/model/user.rs"},
		{"super", "super::db", "src/model/user.rs", "src/db.rs"},
		{"external crate", "serde", "src/main.rs", ""},
		{"std", "std::collections", "src/main.rs", ""},
	})
}

func TestResolveJava(t *testing.T) {
	r := NewResolver("", []string{
		"src/main/java/com/acme/model/User.java",
		"src/main/java/com/acme/model/Role.java",
		"src/main/java/com/acme/App.java",
	})
	runResolveCases(t, r, model.LangJava, []resolveCase{
		{"type", "com.acme.model.User", "src/main/java/com/acme/App.java", "src/main/java/com/acme/model/User.java"},
		{"package", "com.acme.model", "src/main/java/com/acme/App.java", "src/main/java/com/acme/model/Role.java"},
		{"wildcard", "com.acme.model.*", "src/main/java/com/acme/App.java", "src/main/java/com/acme/model/Role.java"},
		{"jdk", "java.util.List", "src/main/java/com/acme/App.java", ""},
	})
}

func TestResolver_NoWorkspaceMetadata(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "missing"), []string{"src/app.ts", "src/utils.ts"})
	assert.Empty(t, r.tsWorkspaces)
	assert.Empty(t, r.goModPath)

	got, ok := r.Resolve(model.LangTypeScript, "./utils", "src/app.ts")
	require.True(t, ok, "relative imports resolve without package.json")
	assert.Equal(t, "src/utils.ts", got)

	_, ok = r.Resolve("cobol", "X", "a.cob")
	assert.False(t, ok)
}

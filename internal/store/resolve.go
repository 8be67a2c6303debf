package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dusk-indust/codestruct/internal/model"
)

// Resolver rewrites raw import sources (CodeImport.Source) into
// slash-separated repo-relative file paths that match FileNode.Path values.
// It is built once per index run from the set of known file paths and any
// workspace metadata found in the repository root.
type Resolver struct {
	repoRoot     string
	fileSet      map[string]bool
	dirIndex     map[string][]string
	tsWorkspaces map[string]*tsWorkspace
	goModPath    string
}

// tsWorkspace holds metadata about a single npm workspace package.
type tsWorkspace struct {
	dir            string            // repo-relative directory (e.g. "packages/db")
	mainFile       string            // default export target, repo-relative
	subpathExports map[string]string // "./queries" → "packages/db/src/queries.ts"
}

// NewResolver builds a Resolver from the known repo-relative file paths.
// When repoRoot is not empty, go.mod and package.json workspaces under it
// enable package-aware resolution.
func NewResolver(repoRoot string, knownFiles []string) *Resolver {
	r := &Resolver{
		repoRoot:     repoRoot,
		fileSet:      make(map[string]bool, len(knownFiles)),
		dirIndex:     make(map[string][]string),
		tsWorkspaces: make(map[string]*tsWorkspace),
	}

	for _, f := range knownFiles {
		r.fileSet[f] = true
		dir := path.Dir(f)
		r.dirIndex[dir] = append(r.dirIndex[dir], f)
	}
	for dir := range r.dirIndex {
		sort.Strings(r.dirIndex[dir])
	}

	if repoRoot != "" {
		r.scanTSWorkspaces()
		r.scanGoMod()
	}
	return r
}

// Resolve maps the import source of sourceFile to a known file. External
// packages, standard libraries and anything outside the known set report
// false.
func (r *Resolver) Resolve(lang model.Language, source, sourceFile string) (string, bool) {
	switch lang {
	case model.LangTypeScript:
		return r.resolveTS(source, sourceFile)
	case model.LangGo:
		return r.resolveGo(source)
	case model.LangPython:
		return r.resolvePython(source, sourceFile)
	case model.LangRust:
		return r.resolveRust(source, sourceFile)
	case model.LangJava:
		return r.resolveJava(source)
	default:
		return "", false
	}
}

// --- TypeScript resolution ---

var tsExtensions = []string{".ts", ".tsx", ".js", ".jsx", "/index.ts", "/index.tsx", "/index.js"}

func (r *Resolver) resolveTS(importPath, sourceFile string) (string, bool) {
	if strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../") {
		base := path.Join(path.Dir(sourceFile), importPath)
		return r.probeFile(base, tsExtensions)
	}
	return r.resolveTSWorkspace(importPath)
}

func (r *Resolver) resolveTSWorkspace(importPath string) (string, bool) {
	// Exact package name, e.g. "@acme/logger".
	if ws, ok := r.tsWorkspaces[importPath]; ok {
		if ws.mainFile != "" {
			return ws.mainFile, true
		}
		return "", false
	}

	// "@scope/pkg/sub/path" → "@scope/pkg" + "./sub/path"
	// "pkg/sub/path" → "pkg" + "./sub/path"
	var pkgName, subpath string
	if strings.HasPrefix(importPath, "@") {
		afterScope := strings.Index(importPath[1:], "/")
		if afterScope == -1 {
			return "", false
		}
		scopeEnd := afterScope + 1
		secondSlash := strings.Index(importPath[scopeEnd+1:], "/")
		if secondSlash == -1 {
			return "", false
		}
		splitAt := scopeEnd + 1 + secondSlash
		pkgName = importPath[:splitAt]
		subpath = "./" + importPath[splitAt+1:]
	} else {
		slash := strings.Index(importPath, "/")
		if slash == -1 {
			return "", false
		}
		pkgName = importPath[:slash]
		subpath = "./" + importPath[slash+1:]
	}

	ws, ok := r.tsWorkspaces[pkgName]
	if !ok {
		return "", false
	}
	if target, ok := ws.subpathExports[subpath]; ok {
		return target, true
	}
	return r.probeFile(path.Join(ws.dir, subpath[2:]), tsExtensions)
}

// --- Go resolution ---

func (r *Resolver) resolveGo(importPath string) (string, bool) {
	if r.goModPath == "" {
		return "", false
	}
	if importPath != r.goModPath && !strings.HasPrefix(importPath, r.goModPath+"/") {
		return "", false // stdlib or external module
	}

	relDir := strings.TrimPrefix(strings.TrimPrefix(importPath, r.goModPath), "/")
	if relDir == "" {
		relDir = "."
	}
	// dirIndex is sorted, so the first non-test file is deterministic.
	for _, f := range r.dirIndex[relDir] {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			return f, true
		}
	}
	return "", false
}

// --- Python resolution ---

func (r *Resolver) resolvePython(importPath, sourceFile string) (string, bool) {
	if !strings.HasPrefix(importPath, ".") {
		// Absolute import: only resolvable when it names a module in the tree.
		return r.probeFile(strings.ReplaceAll(importPath, ".", "/"), []string{".py", "/__init__.py"})
	}

	dots := len(importPath) - len(strings.TrimLeft(importPath, "."))
	modulePart := importPath[dots:]

	// One dot is the current package, each further dot one parent up.
	baseDir := path.Dir(sourceFile)
	for i := 1; i < dots; i++ {
		baseDir = path.Dir(baseDir)
	}

	if modulePart == "" {
		return r.probeFile(path.Join(baseDir, "__init__"), []string{".py"})
	}
	base := path.Join(baseDir, strings.ReplaceAll(modulePart, ".", "/"))
	return r.probeFile(base, []string{".py", "/__init__.py"})
}

// --- Rust resolution ---

var rustExtensions = []string{".rs", "/mod.rs"}

func (r *Resolver) resolveRust(importPath, sourceFile string) (string, bool) {
	// "crate::model::{Repository, User}" → "crate::model"
	if idx := strings.Index(importPath, "::{"); idx != -1 {
		importPath = importPath[:idx]
	}

	switch {
	case strings.HasPrefix(importPath, "crate::"):
		relPath := strings.ReplaceAll(strings.TrimPrefix(importPath, "crate::"), "::", "/")
		candidates := []string{path.Join("src", relPath), relPath}
		// "some_crate/src/service.rs" has its crate root at "some_crate/src".
		if srcDir := findCrateRoot(sourceFile); srcDir != "" {
			candidates = append(candidates, path.Join(srcDir, relPath))
		}
		for _, base := range candidates {
			if resolved, ok := r.probeModule(base); ok {
				return resolved, true
			}
		}
		return "", false

	case strings.HasPrefix(importPath, "self::"):
		relPath := strings.ReplaceAll(strings.TrimPrefix(importPath, "self::"), "::", "/")
		return r.probeModule(path.Join(path.Dir(sourceFile), relPath))

	case strings.HasPrefix(importPath, "super::"):
		relPath := strings.ReplaceAll(strings.TrimPrefix(importPath, "super::"), "::", "/")
		return r.probeModule(path.Join(path.Dir(path.Dir(sourceFile)), relPath))

	default:
		return "", false // external crate
	}
}

// probeModule resolves a Rust module path, dropping trailing segments that
// name items rather than modules ("crate::model::User" → src/model.rs).
func (r *Resolver) probeModule(base string) (string, bool) {
	for base != "." && base != "" {
		if resolved, ok := r.probeFile(base, rustExtensions); ok {
			return resolved, true
		}
		base = path.Dir(base)
	}
	return "", false
}

// findCrateRoot walks up from a file path to the nearest "src" directory.
func findCrateRoot(filePath string) string {
	dir := path.Dir(filePath)
	for dir != "." && dir != "/" && dir != "" {
		if path.Base(dir) == "src" {
			return dir
		}
		dir = path.Dir(dir)
	}
	return ""
}

// --- Java resolution ---

// resolveJava matches a fully qualified type ("com.acme.model.User") or a
// package ("com.acme.model" from a wildcard import) against the tail of the
// known paths, so source roots like src/main/java need no configuration.
func (r *Resolver) resolveJava(importPath string) (string, bool) {
	rel := strings.ReplaceAll(strings.TrimSuffix(importPath, ".*"), ".", "/")
	var matches []string
	for f := range r.fileSet {
		if f == rel+".java" || strings.HasSuffix(f, "/"+rel+".java") {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		// Package import: first file of the package directory.
		for dir, files := range r.dirIndex {
			if dir != rel && !strings.HasSuffix(dir, "/"+rel) {
				continue
			}
			for _, f := range files {
				if strings.HasSuffix(f, ".java") {
					matches = append(matches, f)
					break
				}
			}
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

// --- Shared helpers ---

// probeFile checks if basePath, or basePath with any of the given extensions
// appended, is a known file. No filesystem I/O.
func (r *Resolver) probeFile(basePath string, extensions []string) (string, bool) {
	if r.fileSet[basePath] {
		return basePath, true
	}
	for _, ext := range extensions {
		candidate := basePath + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// --- Workspace / module scanning ---

// packageJSON is a minimal representation for reading package.json files.
type packageJSON struct {
	Name       string          `json:"name"`
	Main       string          `json:"main"`
	Workspaces json.RawMessage `json:"workspaces"`
	Exports    json.RawMessage `json:"exports"`
}

func (r *Resolver) scanTSWorkspaces() {
	data, err := os.ReadFile(filepath.Join(r.repoRoot, "package.json"))
	if err != nil {
		return
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}

	for _, pattern := range parseWorkspacePatterns(pkg.Workspaces) {
		matches, err := doublestar.FilepathGlob(filepath.Join(r.repoRoot, filepath.FromSlash(pattern)))
		if err != nil {
			continue
		}
		for _, dir := range matches {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				continue
			}
			r.loadWorkspacePackage(dir)
		}
	}
}

// parseWorkspacePatterns accepts both ["packages/*"] and
// {"packages": ["packages/*"]}.
func parseWorkspacePatterns(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

func (r *Resolver) loadWorkspacePackage(absDir string) {
	data, err := os.ReadFile(filepath.Join(absDir, "package.json"))
	if err != nil {
		return
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Name == "" {
		return
	}
	relDir, err := filepath.Rel(r.repoRoot, absDir)
	if err != nil {
		return
	}

	ws := &tsWorkspace{
		dir:            filepath.ToSlash(relDir),
		subpathExports: make(map[string]string),
	}
	r.parseExports(ws, pkg.Exports)

	if ws.mainFile == "" && pkg.Main != "" {
		if resolved, ok := r.probeFile(path.Join(ws.dir, pkg.Main), tsExtensions); ok {
			ws.mainFile = resolved
		}
	}
	if ws.mainFile == "" {
		for _, try := range []string{path.Join(ws.dir, "src", "index"), path.Join(ws.dir, "index")} {
			if resolved, ok := r.probeFile(try, tsExtensions); ok {
				ws.mainFile = resolved
				break
			}
		}
	}

	r.tsWorkspaces[pkg.Name] = ws
}

func (r *Resolver) parseExports(ws *tsWorkspace, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	// "exports": "./src/index.ts"
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if resolved, ok := r.probeFile(path.Join(ws.dir, str), tsExtensions); ok {
			ws.mainFile = resolved
		}
		return
	}

	// "exports": {".": "./src/index.ts", "./queries": "./src/queries.ts"}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return
	}
	for key, val := range obj {
		target := resolveExportValue(val)
		if target == "" {
			continue
		}
		resolved, ok := r.probeFile(path.Join(ws.dir, target), tsExtensions)
		if !ok {
			continue
		}
		if key == "." {
			ws.mainFile = resolved
		} else {
			ws.subpathExports[key] = resolved
		}
	}
}

// resolveExportValue extracts a file path from an export value, which can be
// a string or a conditional object preferring "import", then "default",
// then "require".
func resolveExportValue(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"import", "default", "require"} {
		if v, ok := obj[key]; ok {
			return resolveExportValue(v)
		}
	}
	return ""
}

func (r *Resolver) scanGoMod() {
	f, err := os.Open(filepath.Join(r.repoRoot, "go.mod"))
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			r.goModPath = strings.Trim(strings.TrimSpace(rest), `"`)
			return
		}
	}
}

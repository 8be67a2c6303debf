package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/codestruct/internal/config"
	"github.com/dusk-indust/codestruct/internal/model"
)

// ErrNotDirectory is returned by Scan when root is not a directory.
var ErrNotDirectory = errors.New("scan root is not a directory")

// ScanOptions filters the files returned by Scan.
type ScanOptions struct {
	// Languages limits the result; empty means every language with a known
	// extension.
	Languages []model.Language
	// ExcludeDirs are directory base names that are never entered.
	ExcludeDirs []string
	// ExcludeGlobs are doublestar patterns matched against slash-separated
	// paths relative to root.
	ExcludeGlobs []string
	// MaxFileSize skips larger files when positive.
	MaxFileSize int64
}

// ScanOptionsFromConfig builds ScanOptions from a loaded configuration.
func ScanOptionsFromConfig(cfg *config.Config) ScanOptions {
	return ScanOptions{
		Languages:    cfg.EnabledLanguages(),
		ExcludeDirs:  cfg.ExcludeDirs,
		ExcludeGlobs: cfg.ExcludeGlobs,
	}
}

// alwaysSkipped are version control directories, skipped regardless of
// ExcludeDirs.
var alwaysSkipped = []string{".git", ".hg", ".svn"}

// Scan walks root and reads every source file that passes the filters. The
// root .gitignore is honoured. Paths in the result are relative to root,
// slash-separated and sorted.
func Scan(root string, opts ScanOptions) ([]FileInput, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	gi := loadGitignore(root)
	var files []FileInput
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if slices.Contains(alwaysSkipped, name) || slices.Contains(opts.ExcludeDirs, name) {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}

		lang, ok := model.LanguageForPath(rel)
		if !ok || (len(opts.Languages) > 0 && !slices.Contains(opts.Languages, lang)) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if excluded(opts.ExcludeGlobs, rel) {
			return nil
		}
		if opts.MaxFileSize > 0 {
			if fi, err := d.Info(); err != nil || fi.Size() > opts.MaxFileSize {
				return nil
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil // skip unreadable files
		}
		files = append(files, FileInput{Path: rel, Content: content, Language: lang})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func excluded(globs []string, rel string) bool {
	for _, g := range globs {
		if matched, err := doublestar.Match(g, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// Package queries holds the versioned capture patterns each structurer runs
// against its grammar, one source file per language and extraction concern.
package queries

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

//go:embed */*.scm
var embedded embed.FS

// Concern names one extraction query.
type Concern string

const (
	Declarations Concern = "declarations"
	Members      Concern = "members"
	Imports      Concern = "imports"
	Calls        Concern = "calls"
	Locals       Concern = "locals"
)

// Concerns lists every concern a language must provide.
var Concerns = []Concern{Declarations, Members, Imports, Calls, Locals}

// Capture names shared by all languages.
const (
	CaptureName             = "name"
	CaptureDeclPrefix       = "decl."
	CaptureImplements       = "implements"
	CaptureField            = "field"
	CaptureFunction         = "function"
	CapturePackage          = "package"
	CaptureImport           = "import"
	CaptureExport           = "export"
	CaptureCall             = "call"
	CaptureScope            = "scope"
	CaptureDefinition       = "definition"
	CaptureDefinitionParent = "definition.parent"
	CaptureReference        = "reference"
	// CaptureReferenceIgnore marks identifiers that are not lexical
	// references, such as member names after a dot.
	CaptureReferenceIgnore = "reference.ignore"
)

// ErrQueryLoad is matched by every *LoadError.
var ErrQueryLoad = errors.New("query load error")

// LoadError reports a query source that is missing or invalid for the bound
// grammar.
type LoadError struct {
	Language model.Language
	Concern  Concern
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s %s query: %v", e.Language, e.Concern, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrQueryLoad) hold for every LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrQueryLoad }

// Loader reads query sources from a file system laid out as
// <language>/<concern>.scm.
type Loader struct {
	fsys fs.FS
}

// NewLoader returns a loader over fsys, or over the embedded queries when
// fsys is nil.
func NewLoader(fsys fs.FS) *Loader {
	if fsys == nil {
		fsys = embedded
	}
	return &Loader{fsys: fsys}
}

// Source returns the raw text of one query.
func (l *Loader) Source(lang model.Language, c Concern) (string, error) {
	data, err := fs.ReadFile(l.fsys, path.Join(string(lang), string(c)+".scm"))
	if err != nil {
		return "", &LoadError{Language: lang, Concern: c, Err: err}
	}
	return string(data), nil
}

// Load compiles every concern of lang against grammar. On failure the
// queries compiled so far are released.
func (l *Loader) Load(lang model.Language, grammar *tree_sitter.Language) (*Set, error) {
	set := &Set{lang: lang, queries: make(map[Concern]*syntax.Query, len(Concerns))}
	for _, c := range Concerns {
		src, err := l.Source(lang, c)
		if err != nil {
			set.Close()
			return nil, err
		}
		q, err := syntax.Compile(grammar, string(lang)+"/"+string(c), src)
		if err != nil {
			set.Close()
			return nil, &LoadError{Language: lang, Concern: c, Err: err}
		}
		set.queries[c] = q
	}
	return set, nil
}

// Set is the compiled queries of one language. It is read-only once loaded
// and shared by every parse of that language.
type Set struct {
	lang    model.Language
	queries map[Concern]*syntax.Query
}

// Language returns the language the set was compiled for.
func (s *Set) Language() model.Language { return s.lang }

// Get returns the query for c. Every concern is present in a loaded set.
func (s *Set) Get(c Concern) *syntax.Query {
	return s.queries[c]
}

// Close releases all compiled queries.
func (s *Set) Close() {
	for _, q := range s.queries {
		q.Close()
	}
}

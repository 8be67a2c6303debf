// Package engine wires the grammar catalog, the structurer registry and the
// scope graph builder into a single parse entry point, and drives batches
// of files through it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/dusk-indust/codestruct/internal/config"
	"github.com/dusk-indust/codestruct/internal/grammar"
	"github.com/dusk-indust/codestruct/internal/logging"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/scopegraph"
	"github.com/dusk-indust/codestruct/internal/structurer"
)

// FileInput is one file to parse.
type FileInput struct {
	Path     string
	Content  []byte
	Language model.Language
}

// FileResult is the outcome of parsing one file.
type FileResult struct {
	Path         string                 `json:"path"`
	Language     model.Language         `json:"language"`
	Structs      []model.CodeDataStruct `json:"structs"`
	Graph        *scopegraph.Graph      `json:"graph,omitempty"`
	ContentHash  uint64                 `json:"contentHash"`
	SyntaxErrors bool                   `json:"syntaxErrors,omitempty"`
}

type options struct {
	logger      *slog.Logger
	loader      *queries.Loader
	catalog     *grammar.Catalog
	registry    *structurer.Registry
	languages   []model.Language
	workers     int
	scopeGraphs bool
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger shared by the engine's components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithQueryLoader replaces the embedded query files.
func WithQueryLoader(l *queries.Loader) Option {
	return func(o *options) { o.loader = l }
}

// WithCatalog uses an existing grammar catalog.
func WithCatalog(c *grammar.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithRegistry uses an existing structurer registry instead of the default
// one.
func WithRegistry(r *structurer.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLanguages restricts the engine to langs.
func WithLanguages(langs ...model.Language) Option {
	return func(o *options) { o.languages = slices.Clone(langs) }
}

// WithWorkers bounds the number of files parsed concurrently by ParseBatch.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithScopeGraphs turns scope graph construction on or off.
func WithScopeGraphs(on bool) Option {
	return func(o *options) { o.scopeGraphs = on }
}

// OptionsFromConfig translates a loaded configuration into engine options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) []Option {
	opts := []Option{
		WithLogger(logger),
		WithLanguages(cfg.EnabledLanguages()...),
		WithWorkers(cfg.Workers),
		WithScopeGraphs(cfg.ScopeGraphs),
	}
	if cfg.QueryDir != "" {
		opts = append(opts, WithQueryLoader(queries.NewLoader(os.DirFS(cfg.QueryDir))))
	}
	return opts
}

// Engine is the explicit context object of a parse run. It is safe for
// concurrent use once New returns.
type Engine struct {
	catalog     *grammar.Catalog
	registry    *structurer.Registry
	scopes      *scopegraph.Builder
	logger      *slog.Logger
	languages   []model.Language
	workers     int
	scopeGraphs bool
}

// New builds an engine, loads the grammars of the enabled languages and
// initializes their structurers. Configuration problems fail here rather
// than on the first file.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	o := options{
		logger:      logging.Discard(),
		workers:     runtime.GOMAXPROCS(0),
		scopeGraphs: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.languages) == 0 {
		o.languages = model.Languages()
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.catalog == nil {
		o.catalog = grammar.NewCatalog(grammar.WithLogger(o.logger), grammar.WithCoreLanguages(o.languages...))
	}
	if o.registry == nil {
		o.registry = structurer.NewDefaultRegistry(o.loader, o.logger)
	}

	e := &Engine{
		catalog:     o.catalog,
		registry:    o.registry,
		scopes:      scopegraph.NewBuilder(scopegraph.WithLogger(o.logger)),
		logger:      o.logger.With("component", "engine"),
		languages:   o.languages,
		workers:     o.workers,
		scopeGraphs: o.scopeGraphs,
	}

	if err := e.catalog.Ready(ctx); err != nil {
		return nil, fmt.Errorf("load grammars: %w", err)
	}
	if err := e.registry.Validate(e.languages...); err != nil {
		return nil, fmt.Errorf("validate structurers: %w", err)
	}
	for _, lang := range e.languages {
		p, _ := e.registry.Structurer(lang)
		if err := p.Init(ctx, e.catalog); err != nil {
			return nil, fmt.Errorf("init %s structurer: %w", p.Name(), err)
		}
	}
	e.logger.Debug("engine ready", "languages", e.languages, "workers", e.workers, "scopeGraphs", e.scopeGraphs)
	return e, nil
}

// Catalog returns the grammar catalog.
func (e *Engine) Catalog() *grammar.Catalog { return e.catalog }

// Registry returns the structurer registry.
func (e *Engine) Registry() *structurer.Registry { return e.registry }

// Languages returns the enabled languages.
func (e *Engine) Languages() []model.Language { return slices.Clone(e.languages) }

// Enabled reports whether lang is handled by this engine.
func (e *Engine) Enabled(lang model.Language) bool {
	return slices.Contains(e.languages, lang)
}

// ParseFile parses one file. The same syntax tree feeds the structurer and,
// when enabled, the scope graph builder.
func (e *Engine) ParseFile(ctx context.Context, in FileInput) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.Enabled(in.Language) {
		return nil, fmt.Errorf("%s: %w: %s", in.Path, grammar.ErrUnsupportedLanguage, in.Language)
	}
	p, err := e.registry.Structurer(in.Language)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Path, err)
	}

	res := &FileResult{
		Path:        in.Path,
		Language:    in.Language,
		ContentHash: xxhash.Sum64(in.Content),
	}

	tp, ok := p.(structurer.TreeProvider)
	if !ok {
		structs, err := p.ParseFile(ctx, in.Content, in.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Path, err)
		}
		res.Structs = structs
		res.SyntaxErrors = reportsSyntaxErrors(structs)
		return res, nil
	}

	tree, err := tp.Parse(ctx, in.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Path, err)
	}
	defer tree.Close()

	res.SyntaxErrors = tree.HasErrors()
	if res.Structs, err = tp.Structure(tree, in.Path); err != nil {
		return nil, fmt.Errorf("%s: %w", in.Path, err)
	}
	if !e.scopeGraphs {
		return res, nil
	}

	set, err := tp.QueriesFor(tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Path, err)
	}
	if res.Graph, err = e.scopes.Build(tree, in.Path, set.Get(queries.Locals)); err != nil {
		return nil, fmt.Errorf("%s: %w", in.Path, err)
	}
	return res, nil
}

func reportsSyntaxErrors(structs []model.CodeDataStruct) bool {
	for _, s := range structs {
		if v, ok := s.Extension[model.ExtSyntaxErrors].(bool); ok && v {
			return true
		}
	}
	return false
}

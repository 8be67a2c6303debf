// Package grammar loads and caches one tree-sitter grammar per language and
// parses source text into syntax trees.
package grammar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

var (
	// ErrUnsupportedLanguage is returned when no grammar is registered for a language.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailure is returned when a grammar cannot produce a usable tree.
	ErrParseFailure = errors.New("parse failure")
)

// Loader produces a grammar. It is called at most once per registration.
type Loader func() (*tree_sitter.Language, error)

// State is the lifecycle state of one grammar handle.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// handle is the cache slot of one grammar. The load runs once in its own
// goroutine; done is closed when grammar or err is set.
type handle struct {
	loader  Loader
	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	state   State
	grammar *tree_sitter.Language
	err     error
}

func newHandle(loader Loader) *handle {
	return &handle{loader: loader, done: make(chan struct{})}
}

func (h *handle) start() {
	h.once.Do(func() {
		h.mu.Lock()
		h.state = StateLoading
		h.mu.Unlock()
		go func() {
			g, err := safeLoad(h.loader)
			h.mu.Lock()
			h.grammar, h.err = g, err
			if err != nil {
				h.state = StateFailed
			} else {
				h.state = StateReady
			}
			h.mu.Unlock()
			close(h.done)
		}()
	})
}

// wait blocks until the grammar is loaded or ctx is done. A cancelled wait
// leaves the load running so later callers find it cached.
func (h *handle) wait(ctx context.Context) (*tree_sitter.Language, error) {
	h.start()
	select {
	case <-h.done:
		return h.grammar, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *handle) current() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func safeLoad(loader Loader) (g *tree_sitter.Language, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grammar loader panicked: %v", r)
		}
	}()
	g, err = loader()
	if err == nil && g == nil {
		err = errors.New("grammar loader returned nil")
	}
	return g, err
}

// Catalog is the process-wide grammar cache. Handles are only ever added or
// replaced, never evicted, so lookups are safe for concurrent use. Parsing
// creates a parser per call; grammars are shared read-only.
type Catalog struct {
	mu      sync.RWMutex
	handles map[model.Language]*handle
	core    []model.Language
	logger  *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the catalog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithCoreLanguages restricts the languages loaded eagerly by Ready.
func WithCoreLanguages(langs ...model.Language) Option {
	return func(c *Catalog) { c.core = append([]model.Language(nil), langs...) }
}

// NewCatalog returns a catalog with the built-in grammars registered but not
// yet loaded.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		handles: make(map[model.Language]*handle),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for lang, loader := range builtinLoaders() {
		c.handles[lang] = newHandle(loader)
	}
	c.core = model.Languages()
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "grammar")
	return c
}

// Register adds or replaces the grammar for lang. Trees parsed earlier keep
// the grammar they were parsed with.
func (c *Catalog) Register(lang model.Language, loader Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles[lang] = newHandle(loader)
	c.logger.Debug("grammar registered", "language", lang)
}

// Languages returns the registered language tags in sorted order.
func (c *Catalog) Languages() []model.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Language, 0, len(c.handles))
	for l := range c.handles {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// State reports the load state of lang's grammar.
func (c *Catalog) State(lang model.Language) State {
	h := c.lookup(lang)
	if h == nil {
		return StateUnloaded
	}
	return h.current()
}

func (c *Catalog) lookup(lang model.Language) *handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handles[lang]
}

// Ready loads every core grammar. It is safe to call repeatedly. A grammar
// that fails to load is reported in the returned error but does not block
// the others.
func (c *Catalog) Ready(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, lang := range c.core {
		g.Go(func() error {
			if _, err := c.Language(gctx, lang); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Language returns the grammar for lang, loading it on first use.
func (c *Catalog) Language(ctx context.Context, lang model.Language) (*tree_sitter.Language, error) {
	h := c.lookup(lang)
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	first := h.current() == StateUnloaded
	g, err := h.wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load %s grammar: %v", ErrParseFailure, lang, err)
	}
	if first {
		c.logger.Debug("grammar loaded", "language", lang)
	}
	return g, nil
}

// Parse parses source as lang. The returned tree is owned by the caller.
func (c *Catalog) Parse(ctx context.Context, source []byte, lang model.Language) (*syntax.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := c.Language(ctx, lang)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(source) || bytes.IndexByte(source, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s input is not valid UTF-8 text", ErrParseFailure, lang)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(g); err != nil {
		return nil, fmt.Errorf("%w: set language %s: %v", ErrParseFailure, lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s parser returned no tree", ErrParseFailure, lang)
	}
	if root := tree.RootNode(); root == nil || root.IsError() {
		tree.Close()
		return nil, fmt.Errorf("%w: %s input has no recognizable structure", ErrParseFailure, lang)
	}
	return syntax.NewTree(tree, source, lang, g), nil
}

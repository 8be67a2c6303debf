// Package structurer turns syntax trees into CodeDataStructs. One provider
// exists per language; a Registry dispatches to exactly one of them.
package structurer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dusk-indust/codestruct/internal/grammar"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/syntax"
)

var (
	// ErrAmbiguousOrMissingProvider is returned when zero or several
	// providers claim a language.
	ErrAmbiguousOrMissingProvider = errors.New("ambiguous or missing provider")

	// ErrNotInitialized is returned by ParseFile before Init succeeded.
	ErrNotInitialized = errors.New("structurer not initialized")
)

// Provider converts the source of one language into the canonical model.
type Provider interface {
	// Name identifies the provider in logs and diagnostics.
	Name() string

	// IsApplicable reports whether the provider handles lang.
	IsApplicable(lang model.Language) bool

	// Init binds the provider to a grammar catalog and compiles its queries.
	// Calling it again after a successful Init is a no-op.
	Init(ctx context.Context, catalog *grammar.Catalog) error

	// ParseFile returns the top-level declarations of one file in document
	// order. An empty file yields an empty, non-nil slice.
	ParseFile(ctx context.Context, content []byte, path string) ([]model.CodeDataStruct, error)
}

// TreeProvider is a Provider that exposes its parse and structure steps, so
// a single tree can also feed the scope graph builder.
type TreeProvider interface {
	Provider
	Parse(ctx context.Context, content []byte) (*syntax.Tree, error)
	Structure(tree *syntax.Tree, path string) ([]model.CodeDataStruct, error)
	QueriesFor(tree *syntax.Tree) (*queries.Set, error)
}

var _ TreeProvider = (*TreeStructurer)(nil)

// Registry holds the bound providers. It is an explicit context object built
// once at startup and passed to whoever needs dispatch.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry binds the built-in structurers. A nil loader uses the
// embedded queries.
func NewDefaultRegistry(loader *queries.Loader, logger *slog.Logger) *Registry {
	if loader == nil {
		loader = queries.NewLoader(nil)
	}
	r := NewRegistry()
	r.Bind(NewJava(loader, logger))
	r.Bind(NewTypeScript(loader, logger))
	r.Bind(NewGo(loader, logger))
	r.Bind(NewPython(loader, logger))
	r.Bind(NewRust(loader, logger))
	return r
}

// Bind registers p. Binding a provider that is already bound is a no-op, so
// dispatch is unchanged.
func (r *Registry) Bind(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.providers {
		if existing == p {
			return
		}
	}
	r.providers = append(r.providers, p)
}

// Providers returns the bound providers in bind order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Structurer returns the single provider applicable to lang.
func (r *Registry) Structurer(lang model.Language) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []Provider
	for _, p := range r.providers {
		if p.IsApplicable(lang) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return nil, fmt.Errorf("%w: no provider for %q", ErrAmbiguousOrMissingProvider, lang)
	default:
		names := make([]string, len(found))
		for i, p := range found {
			names[i] = p.Name()
		}
		return nil, fmt.Errorf("%w: %d providers for %q: %v", ErrAmbiguousOrMissingProvider, len(found), lang, names)
	}
}

// Validate checks that every language in langs has exactly one provider.
func (r *Registry) Validate(langs ...model.Language) error {
	var errs []error
	for _, l := range langs {
		if _, err := r.Structurer(l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InitAll initializes every bound provider against catalog.
func (r *Registry) InitAll(ctx context.Context, catalog *grammar.Catalog) error {
	for _, p := range r.Providers() {
		if err := p.Init(ctx, catalog); err != nil {
			return fmt.Errorf("init %s structurer: %w", p.Name(), err)
		}
	}
	return nil
}

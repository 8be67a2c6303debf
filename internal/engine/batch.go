package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/codestruct/internal/grammar"
	"github.com/dusk-indust/codestruct/internal/model"
	"github.com/dusk-indust/codestruct/internal/queries"
	"github.com/dusk-indust/codestruct/internal/structurer"
)

// DiagnosticKind classifies a per-file failure.
type DiagnosticKind string

const (
	KindUnsupportedLanguage DiagnosticKind = "unsupported_language"
	KindParseFailure        DiagnosticKind = "parse_failure"
	KindMissingProvider     DiagnosticKind = "missing_provider"
	KindQueryLoad           DiagnosticKind = "query_load"
	KindInternal            DiagnosticKind = "internal"
)

// Diagnostic reports a file that produced no result.
type Diagnostic struct {
	Path     string         `json:"path"`
	Language model.Language `json:"language"`
	Kind     DiagnosticKind `json:"kind"`
	Message  string         `json:"message"`
}

// BatchResult holds the parsed files and the failures of a batch, each in
// input order.
type BatchResult struct {
	Files       []*FileResult `json:"files"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
}

// Classify maps an error from ParseFile to a diagnostic kind.
func Classify(err error) DiagnosticKind {
	switch {
	case errors.Is(err, grammar.ErrUnsupportedLanguage):
		return KindUnsupportedLanguage
	case errors.Is(err, grammar.ErrParseFailure):
		return KindParseFailure
	case errors.Is(err, structurer.ErrAmbiguousOrMissingProvider):
		return KindMissingProvider
	case errors.Is(err, queries.ErrQueryLoad):
		return KindQueryLoad
	default:
		return KindInternal
	}
}

// ParseBatch parses inputs with at most the configured number of workers.
// A failing file becomes a Diagnostic and never stops the batch; only
// cancellation of ctx does, in which case ctx's error is returned.
func (e *Engine) ParseBatch(ctx context.Context, inputs []FileInput) (*BatchResult, error) {
	results := make([]*FileResult, len(inputs))
	diags := make([]*Diagnostic, len(inputs))

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := e.parseGuarded(ctx, in)
			if err == nil {
				results[i] = res
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			d := Diagnostic{Path: in.Path, Language: in.Language, Kind: Classify(err), Message: err.Error()}
			e.logger.Warn("file skipped", "path", d.Path, "language", d.Language, "kind", d.Kind, "error", err)
			diags[i] = &d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &BatchResult{Files: make([]*FileResult, 0, len(inputs)), Diagnostics: []Diagnostic{}}
	for i := range inputs {
		if results[i] != nil {
			out.Files = append(out.Files, results[i])
		}
		if diags[i] != nil {
			out.Diagnostics = append(out.Diagnostics, *diags[i])
		}
	}
	e.logger.Info("batch parsed", "files", len(out.Files), "diagnostics", len(out.Diagnostics))
	return out, nil
}

// parseGuarded turns a panic inside a structurer into an internal error so
// one file cannot take down the batch.
func (e *Engine) parseGuarded(ctx context.Context, in FileInput) (res *FileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%s: panic while parsing: %v", in.Path, r)
		}
	}()
	return e.ParseFile(ctx, in)
}

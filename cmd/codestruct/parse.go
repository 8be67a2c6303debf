package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/export"
	"github.com/dusk-indust/codestruct/internal/model"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		language  string
		languages []string
		scopes    bool
		compact   bool
	)
	cmd := &cobra.Command{
		Use:   "parse <path>...",
		Short: "Print the data structures of files or directories as JSON",
		Long:  "Parses each file, or every supported file below each directory, and writes one JSON document with the structs of every file and a diagnostic for each file that failed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := engine.OptionsFromConfig(a.cfg, a.logger)
			if len(languages) > 0 {
				opts = append(opts, engine.WithLanguages(model.ParseLanguages(languages)...))
			}
			opts = append(opts, engine.WithScopeGraphs(scopes))
			e, err := engine.New(ctx, opts...)
			if err != nil {
				return err
			}

			inputs, err := collectInputs(args, model.Language(language), a.scanOptions(e))
			if err != nil {
				return err
			}
			batch, err := e.ParseBatch(ctx, inputs)
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), batch, export.JSONOptions{ScopeGraphs: scopes, Compact: compact})
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language of the given files (default: from the extension)")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "languages to enable (e.g. go,java)")
	cmd.Flags().BoolVar(&scopes, "scopes", false, "include each file's scope graph")
	cmd.Flags().BoolVar(&compact, "compact", false, "write JSON on one line")
	return cmd
}

// collectInputs reads files named directly and scans directories. A file
// with an unknown extension is kept with an empty language so the batch
// reports it.
func collectInputs(paths []string, language model.Language, opts engine.ScanOptions) ([]engine.FileInput, error) {
	var inputs []engine.FileInput
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			files, err := engine.Scan(p, opts)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				f.Path = filepath.ToSlash(filepath.Join(p, f.Path))
				inputs = append(inputs, f)
			}
			continue
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		lang := language
		if lang == "" {
			lang, _ = model.LanguageForPath(p)
		} else if langs := model.ParseLanguages([]string{string(lang)}); len(langs) == 1 {
			lang = langs[0]
		}
		inputs = append(inputs, engine.FileInput{Path: filepath.ToSlash(p), Content: content, Language: lang})
	}
	return inputs, nil
}

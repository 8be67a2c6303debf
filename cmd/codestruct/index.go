package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/store"
)

type indexReport struct {
	Stats       store.Stats         `json:"stats"`
	Clusters    []store.Cluster     `json:"clusters"`
	Diagnostics []engine.Diagnostic `json:"diagnostics"`
}

func newIndexCmd(a *app) *cobra.Command {
	var (
		dbPath    string
		languages []string
	)
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Index the structs of a directory and print index statistics",
		Long:  "Parses every supported file below dir and writes files, structs and their DEFINES, CONTAINS, EXTENDS, IMPLEMENTS and IMPORTS edges into the index. With --db the index is a KuzuDB or SQLite database that later runs reuse.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			diags, err := a.indexDir(ctx, s, args[0], languages)
			if err != nil {
				return err
			}
			stats, err := s.Stats(ctx)
			if err != nil {
				return err
			}

			clusters, err := store.Clusters(ctx, s)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(indexReport{Stats: *stats, Clusters: clusters, Diagnostics: diags})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "index database: a KuzuDB directory, or SQLite for .db files (default: store.path from config, else in memory)")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "languages to index (e.g. go,java)")
	return cmd
}

// indexDir scans, parses and indexes dir into s, returning the batch
// diagnostics.
func (a *app) indexDir(ctx context.Context, s store.Store, dir string, languages []string) ([]engine.Diagnostic, error) {
	e, err := a.engine(ctx, languages)
	if err != nil {
		return nil, err
	}
	files, err := engine.Scan(dir, a.scanOptions(e))
	if err != nil {
		return nil, err
	}
	batch, err := e.ParseBatch(ctx, files)
	if err != nil {
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		return nil, err
	}
	if err := store.Index(ctx, s, batch.Files, store.WithRepoRoot(dir), store.WithIndexLogger(a.logger)); err != nil {
		return nil, err
	}
	if batch.Diagnostics == nil {
		return []engine.Diagnostic{}, nil
	}
	return batch.Diagnostics, nil
}

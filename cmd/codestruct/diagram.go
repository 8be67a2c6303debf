package main

import (
	"github.com/spf13/cobra"

	"github.com/dusk-indust/codestruct/internal/export"
	"github.com/dusk-indust/codestruct/internal/model"
)

func newDiagramCmd(a *app) *cobra.Command {
	var (
		deps      bool
		dbPath    string
		languages []string
	)
	cmd := &cobra.Command{
		Use:   "diagram <path>",
		Short: "Print a Mermaid diagram of a file or directory",
		Long:  "Prints a Mermaid classDiagram of the structs below path. With --deps it indexes path and prints a graph of file imports instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if deps {
				s, err := a.openStore(dbPath)
				if err != nil {
					return err
				}
				defer s.Close()

				if _, err := a.indexDir(ctx, s, args[0], languages); err != nil {
					return err
				}
				d, err := export.DependencyDiagram(ctx, s)
				if err != nil {
					return err
				}
				return writeString(cmd.OutOrStdout(), d)
			}

			e, err := a.engine(ctx, languages)
			if err != nil {
				return err
			}
			inputs, err := collectInputs(args, "", a.scanOptions(e))
			if err != nil {
				return err
			}
			batch, err := e.ParseBatch(ctx, inputs)
			if err != nil {
				return err
			}
			for _, d := range batch.Diagnostics {
				a.logger.WarnContext(ctx, "file skipped", "path", d.Path, "kind", d.Kind, "error", d.Message)
			}

			var structs []model.CodeDataStruct
			for _, f := range batch.Files {
				structs = append(structs, f.Structs...)
			}
			return writeString(cmd.OutOrStdout(), export.ClassDiagram(structs))
		},
	}
	cmd.Flags().BoolVar(&deps, "deps", false, "draw file imports from the index instead of classes")
	cmd.Flags().StringVar(&dbPath, "db", "", "index database used with --deps: a KuzuDB directory, or SQLite for .db files (default: in memory)")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "languages to include (e.g. go,java)")
	return cmd
}

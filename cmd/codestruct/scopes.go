package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codestruct/internal/engine"
	"github.com/dusk-indust/codestruct/internal/model"
)

func newScopesCmd(a *app) *cobra.Command {
	var (
		language   string
		unresolved bool
	)
	cmd := &cobra.Command{
		Use:   "scopes <file>",
		Short: "Print the scope graph of a file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := engine.New(ctx, append(engine.OptionsFromConfig(a.cfg, a.logger), engine.WithScopeGraphs(true))...)
			if err != nil {
				return err
			}

			inputs, err := collectInputs(args, model.Language(language), a.scanOptions(e))
			if err != nil {
				return err
			}
			if len(inputs) != 1 {
				return fmt.Errorf("%s is not a file", args[0])
			}
			res, err := e.ParseFile(ctx, inputs[0])
			if err != nil {
				return err
			}
			if res.Graph == nil {
				return errors.New("no scope graph for " + res.Path)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !unresolved {
				return enc.Encode(res.Graph)
			}

			names := []string{}
			for _, id := range res.Graph.Unresolved() {
				if n, ok := res.Graph.Node(id); ok {
					names = append(names, fmt.Sprintf("%s:%d:%d", n.Name, n.Range.Start.Line, n.Range.Start.Column))
				}
			}
			return enc.Encode(names)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language of the file (default: from the extension)")
	cmd.Flags().BoolVar(&unresolved, "unresolved", false, "print only the references without a definition, as name:line:column in source order")
	return cmd
}

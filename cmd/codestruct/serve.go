package main

import (
	"github.com/spf13/cobra"

	"github.com/dusk-indust/codestruct/internal/mcptools"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		httpAddr string
		dbPath   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long:  "Serves the structure_file, index_directory, query_structs, resolve_symbol and class_diagram tools over stdio, or over streamable HTTP when --http is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx, nil)
			if err != nil {
				return err
			}
			s, err := a.openStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			svc := mcptools.NewService(e, s,
				mcptools.WithScanOptions(a.scanOptions(e)),
				mcptools.WithLogger(a.logger),
			)
			server := mcptools.NewServer(svc, version)

			if httpAddr == "" {
				httpAddr = a.cfg.MCP.HTTPAddr
			}
			if httpAddr == "" {
				a.logger.InfoContext(ctx, "serving MCP over stdio")
				return mcptools.RunStdio(ctx, server)
			}
			a.logger.InfoContext(ctx, "serving MCP over HTTP", "addr", httpAddr)
			return mcptools.RunHTTP(ctx, server, httpAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address (e.g. :8080) instead of stdio")
	cmd.Flags().StringVar(&dbPath, "db", "", "index database: a KuzuDB directory, or SQLite for .db files (default: store.path from config, else in memory)")
	return cmd
}

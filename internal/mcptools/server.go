// Package mcptools exposes the engine and the struct index as MCP tools.
package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server with all 5 tools registered.
func NewServer(svc *Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codestruct",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "structure_file",
		Description: "Parse one source file with tree-sitter and return its data structures (classes, interfaces, enums, fields, functions, imports) plus a summary of its scope graph.",
	}, svc.StructureFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_directory",
		Description: "Scan a directory, parse every supported source file and write the structs with their DEFINES, CONTAINS, EXTENDS, IMPLEMENTS and IMPORTS relationships into the index.",
	}, svc.IndexDirectory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_structs",
		Description: "Search the index for structs by name substring, optionally filtered by kind, with each match's supertypes, implementors and inner structures.",
	}, svc.QueryStructs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_symbol",
		Description: "Resolve the identifier at a line and column of a file to its definition using the file's lexical scope graph.",
	}, svc.ResolveSymbol)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "class_diagram",
		Description: "Render a Mermaid classDiagram for a file or directory, or a Mermaid graph of file imports from the index.",
	}, svc.ClassDiagram)

	return server
}

// RunStdio runs the MCP server on stdio, blocking until stdin is closed or
// the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP at addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

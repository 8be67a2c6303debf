// Package store persists the structs produced by the engine as a queryable
// graph of files and structs.
package store

import (
	"context"
	"io"

	"github.com/dusk-indust/codestruct/internal/model"
)

// Store is the interface for the struct index backend.
// Implementations: KuzuStore and SQLiteStore (persistent), MemStore (in-process
// and tests).
type Store interface {
	io.Closer

	// InitSchema is called once before any data is inserted.
	InitSchema(ctx context.Context) error

	AddFile(ctx context.Context, node FileNode) error
	AddStruct(ctx context.Context, node StructNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// GetFile and GetStruct return nil, nil when nothing matches.
	GetFile(ctx context.Context, path string) (*FileNode, error)
	GetStruct(ctx context.Context, filePath, name string) (*StructNode, error)

	// QueryStructs returns structs whose name contains query, ignoring case,
	// ordered by ID. An empty kind matches every kind; limit <= 0 means no
	// limit.
	QueryStructs(ctx context.Context, query string, kind model.DataStructType, limit int) ([]StructNode, error)

	// Related returns the IDs one edge of kind away from id, sorted.
	Related(ctx context.Context, id string, kind EdgeKind, dir Direction) ([]string, error)

	// Dependencies walks IMPORTS edges from a file path breadth first.
	Dependencies(ctx context.Context, path string, dir Direction, maxDepth int) ([]DependencyChain, error)

	AllEdges(ctx context.Context) ([]Edge, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Direction controls traversal direction.
type Direction string

const (
	// DirectionOutgoing follows edges from source to target: what does this use?
	DirectionOutgoing Direction = "outgoing"
	// DirectionIncoming follows edges from target to source: what uses this?
	DirectionIncoming Direction = "incoming"
)

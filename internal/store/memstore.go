package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/dusk-indust/codestruct/internal/model"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu      sync.RWMutex
	files   map[string]FileNode
	structs map[string]StructNode // key: StructID
	edges   []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		files:   make(map[string]FileNode),
		structs: make(map[string]StructNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddFile stores a file node keyed by its path.
func (m *MemStore) AddFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[node.Path] = node
	return nil
}

// AddStruct stores a struct node keyed by its ID, deriving the ID when empty.
func (m *MemStore) AddStruct(_ context.Context, node StructNode) error {
	if node.ID == "" {
		node.ID = StructID(node.FilePath, node.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structs[node.ID] = node
	return nil
}

// AddEdge appends an edge after checking that both endpoints exist. Adding
// an edge twice is a no-op.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	srcOK, dstOK := m.endpoints(edge.Kind, edge.SourceID, edge.TargetID)
	if !srcOK || !dstOK {
		return fmt.Errorf("memstore: %s edge %s -> %s: unknown endpoint", edge.Kind, edge.SourceID, edge.TargetID)
	}
	if slices.Contains(m.edges, edge) {
		return nil
	}
	m.edges = append(m.edges, edge)
	return nil
}

// endpoints reports whether the source and target of an edge of kind exist.
func (m *MemStore) endpoints(kind EdgeKind, src, dst string) (bool, bool) {
	_, srcFile := m.files[src]
	_, dstFile := m.files[dst]
	_, srcStruct := m.structs[src]
	_, dstStruct := m.structs[dst]
	switch kind {
	case EdgeKindDefines:
		return srcFile, dstStruct
	case EdgeKindImports:
		return srcFile, dstFile
	case EdgeKindContains, EdgeKindExtends, EdgeKindImplements:
		return srcStruct, dstStruct
	default:
		return false, false
	}
}

// GetFile returns the file node for the given path, or nil if not found.
func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// GetStruct returns the struct for the given file path and name, or nil if not found.
func (m *MemStore) GetStruct(_ context.Context, filePath, name string) (*StructNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.structs[StructID(filePath, name)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// QueryStructs returns structs whose name contains query (case-insensitive).
func (m *MemStore) QueryStructs(_ context.Context, query string, kind model.DataStructType, limit int) ([]StructNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerQuery := strings.ToLower(query)
	results := []StructNode{}
	for _, s := range m.structs {
		if kind != "" && s.Kind != kind {
			continue
		}
		if strings.Contains(strings.ToLower(s.Name), lowerQuery) {
			results = append(results, s)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Related returns the neighbours of id over edges of kind.
func (m *MemStore) Related(_ context.Context, id string, kind EdgeKind, dir Direction) ([]string, error) {
	if dir != DirectionOutgoing && dir != DirectionIncoming {
		return nil, fmt.Errorf("memstore: unknown direction: %s", dir)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.neighbors(id, kind, dir)
	sort.Strings(out)
	return out, nil
}

// Dependencies performs a BFS on IMPORTS edges from path in the given
// direction, up to maxDepth hops. It returns one DependencyChain per
// reachable file.
func (m *MemStore) Dependencies(_ context.Context, path string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{path: true}
	queue := []bfsEntry{{id: path, path: []string{path}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			neighbors := m.neighbors(entry.id, EdgeKindImports, dir)
			sort.Strings(neighbors)
			for _, nb := range neighbors {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns IDs reachable from id in one hop over kind.
func (m *MemStore) neighbors(id string, kind EdgeKind, dir Direction) []string {
	result := []string{}
	for _, e := range m.edges {
		if e.Kind != kind {
			continue
		}
		switch dir {
		case DirectionOutgoing:
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionIncoming:
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	return result
}

// AllEdges returns a copy of all edges in the store.
func (m *MemStore) AllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns counts of all node and edge types.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byKind := make(map[EdgeKind]int, len(EdgeKinds))
	for _, e := range m.edges {
		byKind[e.Kind]++
	}
	return &Stats{
		FileCount:   len(m.files),
		StructCount: len(m.structs),
		EdgeCount:   len(m.edges),
		EdgesByKind: byKind,
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

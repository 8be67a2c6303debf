//go:build cgo

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/codestruct/internal/model"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at
// dbPath. KuzuDB creates the leaf directory itself for new databases, so an
// index written by one run can be queried by the next.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w", path, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema setup ----------

// relTable describes the relationship table backing one EdgeKind.
type relTable struct {
	name    string
	from    string
	fromKey string
	to      string
	toKey   string
}

// CONTAINS is a Cypher operator, so inner structures use HAS_INNER.
var relTables = map[EdgeKind]relTable{
	EdgeKindDefines:    {"DEFINES", "File", "path", "Struct", "id"},
	EdgeKindContains:   {"HAS_INNER", "Struct", "id", "Struct", "id"},
	EdgeKindExtends:    {"EXTENDS", "Struct", "id", "Struct", "id"},
	EdgeKindImplements: {"IMPLEMENTS", "Struct", "id", "Struct", "id"},
	EdgeKindImports:    {"IMPORTS", "File", "path", "File", "path"},
}

// ddlStatements defines the node tables created by InitSchema. Node tables
// must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		path STRING,
		language STRING,
		content_hash STRING,
		struct_count INT64,
		syntax_errors BOOLEAN,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Struct(
		id STRING,
		name STRING,
		kind STRING,
		file_path STRING,
		package_name STRING,
		module_name STRING,
		start_line INT64,
		end_line INT64,
		fields INT64,
		functions INT64,
		synthetic BOOLEAN,
		PRIMARY KEY(id)
	)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	stmts := append([]string{}, ddlStatements...)
	for _, kind := range EdgeKinds {
		rt := relTables[kind]
		stmts = append(stmts, fmt.Sprintf("CREATE REL TABLE IF NOT EXISTS %s(FROM %s TO %s)", rt.name, rt.from, rt.to))
	}
	for _, stmt := range stmts {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddFile upserts a File node.
func (s *KuzuStore) AddFile(_ context.Context, node FileNode) error {
	return s.exec(
		`MERGE (f:File {path: $path})
		 SET f.language = $lang, f.content_hash = $hash, f.struct_count = $structs, f.syntax_errors = $errs`,
		map[string]any{
			"path":    node.Path,
			"lang":    string(node.Language),
			"hash":    node.ContentHash,
			"structs": int64(node.StructCount),
			"errs":    node.SyntaxErrors,
		},
	)
}

// AddStruct upserts a Struct node.
func (s *KuzuStore) AddStruct(_ context.Context, node StructNode) error {
	if node.ID == "" {
		node.ID = StructID(node.FilePath, node.Name)
	}
	return s.exec(
		`MERGE (s:Struct {id: $id})
		 SET s.name = $name,
			s.kind = $kind,
			s.file_path = $fp,
			s.package_name = $pkg,
			s.module_name = $mod,
			s.start_line = $sl,
			s.end_line = $el,
			s.fields = $fields,
			s.functions = $funcs,
			s.synthetic = $synthetic`,
		map[string]any{
			"id":        node.ID,
			"name":      node.Name,
			"kind":      string(node.Kind),
			"fp":        node.FilePath,
			"pkg":       node.Package,
			"mod":       node.Module,
			"sl":        int64(node.StartLine),
			"el":        int64(node.EndLine),
			"fields":    int64(node.Fields),
			"funcs":     int64(node.Functions),
			"synthetic": node.Synthetic,
		},
	)
}

// AddEdge merges a relationship between two existing nodes. The relationship
// table is chosen based on the EdgeKind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	rt, ok := relTables[edge.Kind]
	if !ok {
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	cypher := fmt.Sprintf(
		`MATCH (a:%s {%s: $src}), (b:%s {%s: $dst})
		 MERGE (a)-[r:%s]->(b)
		 RETURN count(r)`,
		rt.from, rt.fromKey, rt.to, rt.toKey, rt.name)
	rows, err := s.query(cypher, map[string]any{"src": edge.SourceID, "dst": edge.TargetID})
	if err != nil {
		return err
	}
	if len(rows) == 0 || toInt(rows[0][0]) == 0 {
		return fmt.Errorf("kuzu: %s edge %s -> %s: unknown endpoint", edge.Kind, edge.SourceID, edge.TargetID)
	}
	return nil
}

// ---------- Read operations ----------

// GetFile retrieves a single File node by path, or returns nil if not found.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query(
		`MATCH (f:File {path: $path})
		 RETURN f.path, f.language, f.content_hash, f.struct_count, f.syntax_errors`,
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &FileNode{
		Path:         toString(r[0]),
		Language:     model.Language(toString(r[1])),
		ContentHash:  toString(r[2]),
		StructCount:  toInt(r[3]),
		SyntaxErrors: toBool(r[4]),
	}, nil
}

const structColumns = `s.id, s.name, s.kind, s.file_path, s.package_name, s.module_name,
	s.start_line, s.end_line, s.fields, s.functions, s.synthetic`

// GetStruct retrieves a single Struct node by file path and name, or nil if not found.
func (s *KuzuStore) GetStruct(_ context.Context, filePath, name string) (*StructNode, error) {
	rows, err := s.query(
		"MATCH (s:Struct {id: $id}) RETURN "+structColumns,
		map[string]any{"id": StructID(filePath, name)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToStruct(rows[0]), nil
}

// QueryStructs returns structs whose name contains the query string.
func (s *KuzuStore) QueryStructs(_ context.Context, queryStr string, kind model.DataStructType, limit int) ([]StructNode, error) {
	cypher := "MATCH (s:Struct) WHERE lower(s.name) CONTAINS lower($q)"
	params := map[string]any{"q": queryStr}
	if kind != "" {
		cypher += " AND s.kind = $kind"
		params["kind"] = string(kind)
	}
	cypher += " RETURN " + structColumns + " ORDER BY s.id"
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]StructNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToStruct(r))
	}
	return out, nil
}

// ---------- Graph traversal ----------

// Related returns the neighbours of id over edges of kind.
func (s *KuzuStore) Related(_ context.Context, id string, kind EdgeKind, dir Direction) ([]string, error) {
	return s.neighbors(id, kind, dir)
}

// Dependencies performs a BFS over IMPORTS edges starting from the given
// file path. It returns one DependencyChain per reachable file.
func (s *KuzuStore) Dependencies(_ context.Context, path string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{path: true}
	queue := []bfsEntry{{path: []string{path}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.neighbors(tip, EdgeKindImports, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// neighbors returns the sorted immediate neighbours of id along kind.
func (s *KuzuStore) neighbors(id string, kind EdgeKind, dir Direction) ([]string, error) {
	rt, ok := relTables[kind]
	if !ok {
		return nil, fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
	var cypher string
	switch dir {
	case DirectionOutgoing:
		cypher = fmt.Sprintf("MATCH (a:%s {%s: $id})-[:%s]->(b:%s) RETURN b.%s AS n ORDER BY n",
			rt.from, rt.fromKey, rt.name, rt.to, rt.toKey)
	case DirectionIncoming:
		cypher = fmt.Sprintf("MATCH (a:%s)-[:%s]->(b:%s {%s: $id}) RETURN a.%s AS n ORDER BY n",
			rt.from, rt.name, rt.to, rt.toKey, rt.fromKey)
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// ---------- Edge enumeration ----------

// AllEdges returns all edges across all relationship tables, grouped by kind.
func (s *KuzuStore) AllEdges(_ context.Context) ([]Edge, error) {
	var edges []Edge
	for _, kind := range EdgeKinds {
		rt := relTables[kind]
		cypher := fmt.Sprintf("MATCH (a:%s)-[:%s]->(b:%s) RETURN a.%s AS src, b.%s AS dst ORDER BY src, dst",
			rt.from, rt.name, rt.to, rt.fromKey, rt.toKey)
		rows, err := s.query(cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     kind,
			})
		}
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and relationship tables.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	files, err := s.count("MATCH (n:File) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	structs, err := s.count("MATCH (n:Struct) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	st := &Stats{
		FileCount:   files,
		StructCount: structs,
		EdgesByKind: make(map[EdgeKind]int, len(EdgeKinds)),
	}
	for _, kind := range EdgeKinds {
		// Table names are fixed internal constants, not user input.
		n, err := s.count(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", relTables[kind].name))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			st.EdgesByKind[kind] = n
		}
		st.EdgeCount += n
	}
	return st, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToStruct converts a structColumns result row into a StructNode.
func rowToStruct(r []any) *StructNode {
	return &StructNode{
		ID:        toString(r[0]),
		Name:      toString(r[1]),
		Kind:      model.DataStructType(toString(r[2])),
		FilePath:  toString(r[3]),
		Package:   toString(r[4]),
		Module:    toString(r[5]),
		StartLine: toInt(r[6]),
		EndLine:   toInt(r[7]),
		Fields:    toInt(r[8]),
		Functions: toInt(r[9]),
		Synthetic: toBool(r[10]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

//go:build cgo

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dusk-indust/codestruct/internal/model"
)

// SQLiteStore implements Store on a single SQLite database file. Edges live
// in one table keyed by kind, source and target.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the SQLite database at dbPath with WAL mode enabled,
// creating parent directories as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create parent directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// One writer at a time; a single connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS files (
  path          TEXT PRIMARY KEY,
  language      TEXT NOT NULL,
  content_hash  TEXT,
  struct_count  INTEGER,
  syntax_errors BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS structs (
  id           TEXT PRIMARY KEY,
  name         TEXT NOT NULL,
  kind         TEXT,
  file_path    TEXT NOT NULL,
  package_name TEXT,
  module_name  TEXT,
  start_line   INTEGER,
  end_line     INTEGER,
  fields       INTEGER,
  functions    INTEGER,
  synthetic    BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS edges (
  kind      TEXT NOT NULL,
  source_id TEXT NOT NULL,
  target_id TEXT NOT NULL,
  PRIMARY KEY (kind, source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(kind, target_id);
CREATE INDEX IF NOT EXISTS idx_structs_file ON structs(file_path);
`

// InitSchema creates the tables and indexes. Idempotent.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteDDL); err != nil {
		return fmt.Errorf("sqlite: init schema: %w", err)
	}
	return nil
}

// AddFile upserts a file row.
func (s *SQLiteStore) AddFile(ctx context.Context, node FileNode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (path, language, content_hash, struct_count, syntax_errors)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   language = excluded.language,
		   content_hash = excluded.content_hash,
		   struct_count = excluded.struct_count,
		   syntax_errors = excluded.syntax_errors`,
		node.Path, string(node.Language), node.ContentHash, node.StructCount, node.SyntaxErrors,
	)
	if err != nil {
		return fmt.Errorf("sqlite: add file %s: %w", node.Path, err)
	}
	return nil
}

// AddStruct upserts a struct row, deriving the ID when empty.
func (s *SQLiteStore) AddStruct(ctx context.Context, node StructNode) error {
	if node.ID == "" {
		node.ID = StructID(node.FilePath, node.Name)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO structs (id, name, kind, file_path, package_name, module_name,
		   start_line, end_line, fields, functions, synthetic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   kind = excluded.kind,
		   file_path = excluded.file_path,
		   package_name = excluded.package_name,
		   module_name = excluded.module_name,
		   start_line = excluded.start_line,
		   end_line = excluded.end_line,
		   fields = excluded.fields,
		   functions = excluded.functions,
		   synthetic = excluded.synthetic`,
		node.ID, node.Name, string(node.Kind), node.FilePath, node.Package, node.Module,
		node.StartLine, node.EndLine, node.Fields, node.Functions, node.Synthetic,
	)
	if err != nil {
		return fmt.Errorf("sqlite: add struct %s: %w", node.ID, err)
	}
	return nil
}

// endpointTables maps an edge kind to the tables holding its source and
// target.
var endpointTables = map[EdgeKind][2]string{
	EdgeKindDefines:    {"files", "structs"},
	EdgeKindContains:   {"structs", "structs"},
	EdgeKindExtends:    {"structs", "structs"},
	EdgeKindImplements: {"structs", "structs"},
	EdgeKindImports:    {"files", "files"},
}

// AddEdge inserts an edge after checking that both endpoints exist. Adding
// an edge twice is a no-op.
func (s *SQLiteStore) AddEdge(ctx context.Context, edge Edge) error {
	tables, ok := endpointTables[edge.Kind]
	if !ok {
		return fmt.Errorf("sqlite: unsupported edge kind: %s", edge.Kind)
	}
	srcOK, err := s.exists(ctx, tables[0], edge.SourceID)
	if err != nil {
		return err
	}
	dstOK, err := s.exists(ctx, tables[1], edge.TargetID)
	if err != nil {
		return err
	}
	if !srcOK || !dstOK {
		return fmt.Errorf("sqlite: %s edge %s -> %s: unknown endpoint", edge.Kind, edge.SourceID, edge.TargetID)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO edges (kind, source_id, target_id) VALUES (?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		string(edge.Kind), edge.SourceID, edge.TargetID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: add edge: %w", err)
	}
	return nil
}

// exists reports whether table holds a row with the given key. Table names
// come from endpointTables only.
func (s *SQLiteStore) exists(ctx context.Context, table, key string) (bool, error) {
	col := "id"
	if table == "files" {
		col = "path"
	}
	var one int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table, col), key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: lookup %s: %w", key, err)
	}
	return true, nil
}

// GetFile returns the file row for path, or nil if not found.
func (s *SQLiteStore) GetFile(ctx context.Context, path string) (*FileNode, error) {
	var (
		f    FileNode
		lang string
		hash sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT path, language, content_hash, struct_count, syntax_errors FROM files WHERE path = ?", path,
	).Scan(&f.Path, &lang, &hash, &f.StructCount, &f.SyntaxErrors)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get file %s: %w", path, err)
	}
	f.Language = model.Language(lang)
	f.ContentHash = hash.String
	return &f, nil
}

const structSelect = `SELECT id, name, kind, file_path, package_name, module_name,
	start_line, end_line, fields, functions, synthetic FROM structs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStruct(row rowScanner) (*StructNode, error) {
	var (
		n             StructNode
		kind          string
		pkg, mod      sql.NullString
		start, end    sql.NullInt64
		fields, funcs sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.Name, &kind, &n.FilePath, &pkg, &mod, &start, &end, &fields, &funcs, &n.Synthetic); err != nil {
		return nil, err
	}
	n.Kind = model.DataStructType(kind)
	n.Package = pkg.String
	n.Module = mod.String
	n.StartLine = int(start.Int64)
	n.EndLine = int(end.Int64)
	n.Fields = int(fields.Int64)
	n.Functions = int(funcs.Int64)
	return &n, nil
}

// GetStruct returns the struct named name in filePath, or nil if not found.
func (s *SQLiteStore) GetStruct(ctx context.Context, filePath, name string) (*StructNode, error) {
	id := StructID(filePath, name)
	n, err := scanStruct(s.db.QueryRowContext(ctx, structSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get struct %s: %w", id, err)
	}
	return n, nil
}

// QueryStructs returns structs whose name contains query, ignoring ASCII
// case.
func (s *SQLiteStore) QueryStructs(ctx context.Context, query string, kind model.DataStructType, limit int) ([]StructNode, error) {
	stmt := structSelect + " WHERE (? = '' OR instr(lower(name), lower(?)) > 0)"
	args := []any{query, query}
	if kind != "" {
		stmt += " AND kind = ?"
		args = append(args, string(kind))
	}
	stmt += " ORDER BY id"
	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query structs: %w", err)
	}
	defer rows.Close()

	out := []StructNode{}
	for rows.Next() {
		n, err := scanStruct(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan struct: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Related returns the neighbours of id over edges of kind.
func (s *SQLiteStore) Related(ctx context.Context, id string, kind EdgeKind, dir Direction) ([]string, error) {
	return s.neighbors(ctx, id, kind, dir)
}

// Dependencies performs a BFS over IMPORTS edges starting from path. It
// returns one DependencyChain per reachable file.
func (s *SQLiteStore) Dependencies(ctx context.Context, path string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	visited := map[string]bool{path: true}
	queue := [][]string{{path}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next [][]string
		for _, chain := range queue {
			neighbors, err := s.neighbors(ctx, chain[len(chain)-1], EdgeKindImports, dir)
			if err != nil {
				return nil, err
			}
			for _, nb := range neighbors {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				extended := make([]string, len(chain), len(chain)+1)
				copy(extended, chain)
				extended = append(extended, nb)
				chains = append(chains, DependencyChain{Nodes: extended, Depth: len(extended) - 1})
				next = append(next, extended)
			}
		}
		queue = next
	}
	return chains, nil
}

// neighbors returns the sorted IDs one edge of kind away from id.
func (s *SQLiteStore) neighbors(ctx context.Context, id string, kind EdgeKind, dir Direction) ([]string, error) {
	var stmt string
	switch dir {
	case DirectionOutgoing:
		stmt = "SELECT target_id FROM edges WHERE kind = ? AND source_id = ? ORDER BY target_id"
	case DirectionIncoming:
		stmt = "SELECT source_id FROM edges WHERE kind = ? AND target_id = ? ORDER BY source_id"
	default:
		return nil, fmt.Errorf("sqlite: unknown direction: %s", dir)
	}

	rows, err := s.db.QueryContext(ctx, stmt, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: neighbors of %s: %w", id, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite: scan neighbor: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// AllEdges returns every edge, grouped by kind in EdgeKinds order.
func (s *SQLiteStore) AllEdges(ctx context.Context) ([]Edge, error) {
	var edges []Edge
	for _, kind := range EdgeKinds {
		rows, err := s.db.QueryContext(ctx,
			"SELECT source_id, target_id FROM edges WHERE kind = ? ORDER BY source_id, target_id", string(kind))
		if err != nil {
			return nil, fmt.Errorf("sqlite: list edges: %w", err)
		}
		for rows.Next() {
			e := Edge{Kind: kind}
			if err := rows.Scan(&e.SourceID, &e.TargetID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("sqlite: scan edge: %w", err)
			}
			edges = append(edges, e)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return edges, nil
}

// Stats returns row counts for files, structs and each edge kind.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{EdgesByKind: make(map[EdgeKind]int, len(EdgeKinds))}
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM files").Scan(&st.FileCount); err != nil {
		return nil, fmt.Errorf("sqlite: count files: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM structs").Scan(&st.StructCount); err != nil {
		return nil, fmt.Errorf("sqlite: count structs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, count(*) FROM edges GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("sqlite: count edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scan edge count: %w", err)
		}
		st.EdgesByKind[EdgeKind(kind)] = n
		st.EdgeCount += n
	}
	return st, rows.Err()
}

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Cluster is a group of files connected through IMPORTS edges, ignoring
// edge direction.
type Cluster struct {
	// Name is the longest common directory prefix of the members, or ""
	// when they share none.
	Name    string   `json:"name"`
	Members []string `json:"members"`
	// Edges counts the IMPORTS edges between members.
	Edges int `json:"edges"`
}

// Clusters finds the connected components of the file import graph. Files
// without imports in either direction form no cluster. Clusters are ordered
// by size, largest first, then by name.
func Clusters(ctx context.Context, s Store) ([]Cluster, error) {
	edges, err := s.AllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("get edges: %w", err)
	}

	adj := make(map[string]map[string]bool)
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]bool)
		}
		adj[a][b] = true
	}
	count := 0
	for _, e := range edges {
		if e.Kind != EdgeKindImports {
			continue
		}
		link(e.SourceID, e.TargetID)
		link(e.TargetID, e.SourceID)
		count++
	}
	if count == 0 {
		return []Cluster{}, nil
	}

	files := make([]string, 0, len(adj))
	for f := range adj {
		files = append(files, f)
	}
	sort.Strings(files)

	component := make(map[string]int, len(files))
	var clusters []Cluster
	for _, f := range files {
		if _, ok := component[f]; ok {
			continue
		}
		members := bfsComponent(f, adj, component, len(clusters))
		sort.Strings(members)
		clusters = append(clusters, Cluster{Name: longestCommonPrefix(members), Members: members})
	}
	for _, e := range edges {
		if e.Kind == EdgeKindImports {
			clusters[component[e.SourceID]].Edges++
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i].Members) != len(clusters[j].Members) {
			return len(clusters[i].Members) > len(clusters[j].Members)
		}
		return clusters[i].Name < clusters[j].Name
	})
	return clusters, nil
}

// bfsComponent collects every file reachable from start and records id as
// their component.
func bfsComponent(start string, adj map[string]map[string]bool, component map[string]int, id int) []string {
	var members []string
	queue := []string{start}
	component[start] = id

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		members = append(members, node)
		for neighbor := range adj[node] {
			if _, seen := component[neighbor]; !seen {
				component[neighbor] = id
				queue = append(queue, neighbor)
			}
		}
	}
	return members
}

// longestCommonPrefix finds the longest common directory prefix of paths,
// ending in a slash.
func longestCommonPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	prefix := paths[0]
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		prefix = prefix[:i+1]
	} else {
		return ""
	}
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p, prefix) {
			trimmed := strings.TrimSuffix(prefix, "/")
			i := strings.LastIndex(trimmed, "/")
			if i < 0 {
				return ""
			}
			prefix = trimmed[:i+1]
		}
	}
	return prefix
}

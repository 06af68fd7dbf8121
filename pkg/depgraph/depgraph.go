// Package depgraph provides the directed dependency graph over database
// object names. Edges run source -> dependent: the dependent (a view) reads
// from the source (a table or another view). Nodes are discovered lazily from
// edge endpoints; there is no separate node list. Unlike a build DAG, the
// graph makes no acyclicity promise — stale metadata can produce cycles, and
// every traversal here tolerates them.
package depgraph

import (
	"sort"

	"github.com/sabrimoh/erdash/pkg/metadata"
)

// Graph is a directed graph over object names with two-way adjacency.
// It is built once and read-only afterwards.
type Graph struct {
	children map[string][]string // source -> dependents
	parents  map[string][]string // dependent -> sources
	nodes    map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		children: make(map[string][]string),
		parents:  make(map[string][]string),
		nodes:    make(map[string]struct{}),
	}
}

// FromEdges builds a graph from a metadata edge list.
func FromEdges(edges []metadata.Edge) *Graph {
	g := New()
	for _, e := range edges {
		g.AddEdge(e.Source, e.Dependent)
	}
	return g
}

// AddEdge records that dependent reads from source. Duplicate edges are
// ignored; empty endpoints are ignored. Self-loops are kept — the traversals
// guard against them, and dropping them would hide broken metadata.
func (g *Graph) AddEdge(source, dependent string) {
	if source == "" || dependent == "" {
		return
	}
	g.nodes[source] = struct{}{}
	g.nodes[dependent] = struct{}{}

	if !contains(g.children[source], dependent) {
		g.children[source] = append(g.children[source], dependent)
	}
	if !contains(g.parents[dependent], source) {
		g.parents[dependent] = append(g.parents[dependent], source)
	}
}

// ParentsOf returns the objects that name depends on, sorted. Unknown names
// yield an empty slice, never an error.
func (g *Graph) ParentsOf(name string) []string {
	return sortedCopy(g.parents[name])
}

// ChildrenOf returns the objects that depend on name, sorted.
func (g *Graph) ChildrenOf(name string) []string {
	return sortedCopy(g.children[name])
}

// HasNode reports whether the name appears as any edge endpoint.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Nodes returns all known object names, sorted.
func (g *Graph) Nodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeCount returns the number of distinct endpoints.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, deps := range g.children {
		count += len(deps)
	}
	return count
}

// Upstream returns every object reachable by following parent edges from
// name, sorted. The start node itself is excluded unless it sits on a cycle.
func (g *Graph) Upstream(name string) []string {
	return g.collect(name, g.parents)
}

// Downstream returns every object reachable by following child edges from
// name, sorted.
func (g *Graph) Downstream(name string) []string {
	return g.collect(name, g.children)
}

func (g *Graph) collect(start string, adjacency map[string][]string) []string {
	seen := make(map[string]struct{})

	var walk func(id string)
	walk = func(id string) {
		for _, next := range adjacency[id] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			walk(next)
		}
	}
	walk(start)

	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Roots returns nodes with no parents: the base objects of the schema.
func (g *Graph) Roots() []string {
	var roots []string
	for name := range g.nodes {
		if len(g.parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns nodes with no dependents.
func (g *Graph) Leaves() []string {
	var leaves []string
	for name := range g.nodes {
		if len(g.children[name]) == 0 {
			leaves = append(leaves, name)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// HasCycle reports whether the graph contains a cycle, along with one cycle
// path when found. Lineage tracing does not need this, but diagnostics do:
// a cyclic dependency graph always means stale or corrupt metadata.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	inStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		inStack[id] = true

		for _, child := range g.children[id] {
			if !visited[child] {
				cameFrom[child] = id
				if dfs(child) {
					return true
				}
			} else if inStack[child] {
				cyclePath = []string{child}
				for curr := id; curr != child; curr = cameFrom[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{child}, cyclePath...)
				return true
			}
		}

		inStack[id] = false
		return false
	}

	for _, id := range g.Nodes() {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

func contains(slice []string, s string) bool {
	for _, existing := range slice {
		if existing == s {
			return true
		}
	}
	return false
}

func sortedCopy(slice []string) []string {
	if len(slice) == 0 {
		return nil
	}
	out := make([]string, len(slice))
	copy(out, slice)
	sort.Strings(out)
	return out
}

package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sabrimoh/erdash/pkg/depgraph"
	"github.com/sabrimoh/erdash/pkg/metadata"
)

// DiagramBuilder produces Graphviz DOT sources from the schema index and
// dependency graph. Rendering DOT to SVG is left to an external graphviz
// installation; the builder only emits the source text.
type DiagramBuilder struct {
	index *metadata.Index
	graph *depgraph.Graph
}

// NewDiagramBuilder creates a builder over a built index and graph.
func NewDiagramBuilder(index *metadata.Index, graph *depgraph.Graph) *DiagramBuilder {
	return &DiagramBuilder{index: index, graph: graph}
}

// SourcesDOT renders the digraph of everything the named view reads from,
// walking parent edges transitively. Cycles are tolerated via the visited set.
func (b *DiagramBuilder) SourcesDOT(view string) string {
	var sb strings.Builder
	writeDigraphHeader(&sb, view+"_deps", "TB")

	visited := make(map[string]struct{})
	var walk func(name string)
	walk = func(name string) {
		if _, seen := visited[name]; seen {
			return
		}
		visited[name] = struct{}{}
		b.writeObjectNode(&sb, name)
		for _, parent := range b.graph.ParentsOf(name) {
			writeEdge(&sb, name, parent, nil)
			walk(parent)
		}
	}
	walk(view)

	sb.WriteString("}\n")
	return sb.String()
}

// DependentsDOT renders the digraph of everything that reads from the named
// object, walking child edges transitively. Edge direction matches the
// sources diagram: reader points at what it reads.
func (b *DiagramBuilder) DependentsDOT(object string) string {
	var sb strings.Builder
	writeDigraphHeader(&sb, object+"_revdeps", "TB")

	visited := make(map[string]struct{})
	var walk func(name string)
	walk = func(name string) {
		if _, seen := visited[name]; seen {
			return
		}
		visited[name] = struct{}{}
		b.writeObjectNode(&sb, name)
		for _, child := range b.graph.ChildrenOf(name) {
			writeEdge(&sb, child, name, nil)
			walk(child)
		}
	}
	walk(object)

	sb.WriteString("}\n")
	return sb.String()
}

// ERDiagramDOT renders the full schema diagram: a tables cluster, a views
// cluster, primary key highlighting, labeled foreign key edges, and view
// dependency edges carrying a SQL snippet tooltip.
func (b *DiagramBuilder) ERDiagramDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph \"er_diagram\" {\n")
	sb.WriteString("  rankdir=LR;\n  splines=ortho;\n  ranksep=1.5;\n  nodesep=1.5;\n  fontname=\"Helvetica\";\n")
	sb.WriteString("  node [fontname=\"Helvetica\"];\n  edge [fontname=\"Helvetica\"];\n")

	pkTables := make(map[string]struct{})
	for _, table := range b.index.Tables() {
		if len(b.index.PrimaryKeyColumns(table)) > 0 {
			pkTables[table] = struct{}{}
		}
	}

	sb.WriteString("  subgraph cluster_tables {\n")
	sb.WriteString("    label=\"Tables\";\n    style=filled;\n    color=lightgrey;\n")
	for _, table := range b.index.Tables() {
		color := "lightblue"
		if _, ok := pkTables[table]; ok {
			color = "lightgreen"
		}
		tooltip := "Columns:\n" + strings.Join(b.index.TableColumns(table), "\n")
		fmt.Fprintf(&sb, "    %s [shape=box, style=filled, color=%s, tooltip=%s, URL=%s];\n",
			dotQuote(table), color, dotQuote(tooltip), dotQuote("details/"+table+".html"))
	}
	sb.WriteString("  }\n")

	sb.WriteString("  subgraph cluster_views {\n")
	sb.WriteString("    label=\"Views\";\n    style=filled;\n    color=lightgrey;\n")
	for _, view := range b.index.Views() {
		tooltip := "View Columns:\n" + strings.Join(b.index.ViewColumns(view), "\n")
		fmt.Fprintf(&sb, "    %s [shape=ellipse, style=filled, color=lightyellow, tooltip=%s, URL=%s];\n",
			dotQuote(view), dotQuote(tooltip), dotQuote("details/"+view+".html"))
	}
	sb.WriteString("  }\n")

	for _, fk := range b.index.ForeignKeys() {
		label := fmt.Sprintf("FK: %s(%s) -> %s(%s)", fk.Table, fk.Column, fk.TargetTable, fk.TargetColumn)
		writeEdge(&sb, fk.Table, fk.TargetTable, map[string]string{
			"label":   label,
			"color":   "blue",
			"tooltip": label,
		})
	}

	for _, edge := range b.index.Edges() {
		def, _ := b.index.Definition(edge.Dependent)
		tooltip := fmt.Sprintf("%s depends on %s", edge.Dependent, edge.Source)
		if snippet := SnippetAround(def, edge.Source, DefaultSnippetWidth); snippet != "" {
			tooltip += "\nSnippet:\n" + snippet
		}
		writeEdge(&sb, edge.Dependent, edge.Source, map[string]string{
			"color":   "brown",
			"tooltip": tooltip,
		})
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (b *DiagramBuilder) writeObjectNode(sb *strings.Builder, name string) {
	url := dotQuote(name + ".html")
	if b.index.IsTable(name) {
		fmt.Fprintf(sb, "  %s [shape=box, style=filled, color=lightblue, URL=%s, target=\"_top\"];\n",
			dotQuote(name), url)
		return
	}
	fmt.Fprintf(sb, "  %s [shape=ellipse, style=filled, color=lightyellow, URL=%s, target=\"_top\"];\n",
		dotQuote(name), url)
}

func writeDigraphHeader(sb *strings.Builder, name, rankdir string) {
	fmt.Fprintf(sb, "digraph %s {\n", dotQuote(name))
	fmt.Fprintf(sb, "  rankdir=%s;\n  splines=ortho;\n  ranksep=0.75;\n  nodesep=0.5;\n  fontname=\"Helvetica\";\n", rankdir)
	sb.WriteString("  node [fontname=\"Helvetica\"];\n  edge [fontname=\"Helvetica\"];\n")
}

func writeEdge(sb *strings.Builder, from, to string, attrs map[string]string) {
	merged := map[string]string{
		"id":       edgeID(from, to),
		"decorate": "true",
		"penwidth": "2",
	}
	if _, ok := attrs["color"]; !ok {
		merged["color"] = "brown"
	}
	for k, v := range attrs {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, dotQuote(merged[k])))
	}
	fmt.Fprintf(sb, "  %s -> %s [%s];\n", dotQuote(from), dotQuote(to), strings.Join(parts, ", "))
}

func edgeID(from, to string) string {
	return "edge_" + from + "_" + to
}

// dotQuote wraps a value in double quotes, escaping embedded quotes and
// normalizing newlines to DOT's literal \n escapes.
func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", "")
	return `"` + s + `"`
}

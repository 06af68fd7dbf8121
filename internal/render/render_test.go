package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabrimoh/erdash/pkg/depgraph"
	"github.com/sabrimoh/erdash/pkg/lineage"
	"github.com/sabrimoh/erdash/pkg/metadata"
)

func buildFixture(t *testing.T) (*metadata.Index, *depgraph.Graph) {
	t.Helper()
	rows := []metadata.Row{
		{TableName: "orders", ColumnName: "id", ObjectType: metadata.ObjectBaseTable},
		{TableName: "orders", ColumnName: "amount", ObjectType: metadata.ObjectBaseTable},
		{TableName: "customers", ColumnName: "id", ObjectType: metadata.ObjectBaseTable},
		{TableName: "v_orders", ColumnName: "id", ObjectType: metadata.ObjectView,
			ViewDefinition: "SELECT id, sum(amount) AS total FROM orders GROUP BY id"},
		{TableName: "v_orders", ColumnName: "total", ObjectType: metadata.ObjectView},
		{ObjectType: metadata.ObjectViewDependency, DependentViewName: "v_orders", SourceTableName: "orders"},
		{TableName: "orders", ColumnName: "id", ObjectType: metadata.ObjectPrimaryKey, ConstraintType: "PRIMARY KEY"},
		{TableName: "orders", ColumnName: "customer_id", ObjectType: metadata.ObjectForeignKey,
			TargetTable: "customers", TargetColumn: "id"},
	}
	index := metadata.NewIndex(rows)
	return index, depgraph.FromEdges(index.Edges())
}

func TestSnippetAround(t *testing.T) {
	text := strings.Repeat("x", 200) + " FROM orders o " + strings.Repeat("y", 200)

	snippet := SnippetAround(text, "orders", 40)
	require.NotEmpty(t, snippet)
	assert.Contains(t, snippet, "orders")
	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.LessOrEqual(t, len(snippet), 40+len("......")+len("orders"))
}

func TestSnippetAroundCaseInsensitive(t *testing.T) {
	snippet := SnippetAround("SELECT * FROM Orders", "orders", 150)
	assert.Contains(t, snippet, "Orders")
}

func TestSnippetAroundMissingKeyword(t *testing.T) {
	// absent keyword falls back to the head of the text
	assert.Equal(t, "SELECT 1", SnippetAround("SELECT 1", "orders", 150))
	assert.Empty(t, SnippetAround("", "orders", 150))
}

func TestERDiagramDOT(t *testing.T) {
	index, graph := buildFixture(t)
	dot := NewDiagramBuilder(index, graph).ERDiagramDOT()

	assert.Contains(t, dot, "subgraph cluster_tables")
	assert.Contains(t, dot, "subgraph cluster_views")
	// orders has a primary key so it gets the highlight color
	assert.Contains(t, dot, `"orders" [shape=box, style=filled, color=lightgreen`)
	assert.Contains(t, dot, `"customers" [shape=box, style=filled, color=lightblue`)
	assert.Contains(t, dot, `"v_orders" [shape=ellipse, style=filled, color=lightyellow`)
	assert.Contains(t, dot, `FK: orders(customer_id) -> customers(id)`)
	assert.Contains(t, dot, `id="edge_v_orders_orders"`)
	assert.Contains(t, dot, `URL="details/orders.html"`)
}

func TestERDiagramDOTSnippetTooltip(t *testing.T) {
	index, graph := buildFixture(t)
	dot := NewDiagramBuilder(index, graph).ERDiagramDOT()

	// the dependency edge tooltip carries a window of the view SQL
	assert.Contains(t, dot, "FROM orders")
}

func TestSourcesDOT(t *testing.T) {
	index, graph := buildFixture(t)
	dot := NewDiagramBuilder(index, graph).SourcesDOT("v_orders")

	assert.Contains(t, dot, `"v_orders" [shape=ellipse`)
	assert.Contains(t, dot, `"orders" [shape=box`)
	assert.Contains(t, dot, `"v_orders" -> "orders"`)
	assert.NotContains(t, dot, `"customers"`)
}

func TestDependentsDOT(t *testing.T) {
	index, graph := buildFixture(t)
	dot := NewDiagramBuilder(index, graph).DependentsDOT("orders")

	assert.Contains(t, dot, `"v_orders" -> "orders"`)
	assert.Contains(t, dot, `"v_orders" [shape=ellipse`)
}

func TestDOTWalksTolerateCycles(t *testing.T) {
	rows := []metadata.Row{
		{TableName: "a", ColumnName: "x", ObjectType: metadata.ObjectView, ViewDefinition: "SELECT x FROM b"},
		{TableName: "b", ColumnName: "x", ObjectType: metadata.ObjectView, ViewDefinition: "SELECT x FROM a"},
		{ObjectType: metadata.ObjectViewDependency, DependentViewName: "a", SourceTableName: "b"},
		{ObjectType: metadata.ObjectViewDependency, DependentViewName: "b", SourceTableName: "a"},
	}
	index := metadata.NewIndex(rows)
	graph := depgraph.FromEdges(index.Edges())
	b := NewDiagramBuilder(index, graph)

	dot := b.SourcesDOT("a")
	assert.Contains(t, dot, `"a" -> "b"`)
	assert.Contains(t, dot, `"b" -> "a"`)

	dot = b.DependentsDOT("a")
	assert.Contains(t, dot, `"b" -> "a"`)
}

func TestDotQuoteEscapes(t *testing.T) {
	assert.Equal(t, `"a\"b"`, dotQuote(`a"b`))
	assert.Equal(t, `"line1\nline2"`, dotQuote("line1\nline2"))
}

func TestDetailPageRendersLineage(t *testing.T) {
	chain := lineage.Chain{
		lineage.Step{Kind: lineage.StepPassThrough, Object: "v_orders", Text: "column 'id' is a pass-through in 'v_orders'"},
		lineage.Step{Kind: lineage.StepBaseObject, Object: "orders", Text: "reached base object 'orders' (no SQL definition)"},
	}
	node := DetailPage("v_orders", false, []string{"id", "total"}, nil,
		[]ColumnLineage{{Column: "id", Chain: lineage.Condense(chain, "id")}},
		"SELECT id FROM orders")

	var sb strings.Builder
	require.NoError(t, WriteNode(&sb, node))
	out := sb.String()

	assert.Contains(t, out, "View: v_orders")
	assert.Contains(t, out, "v_orders_dependencies.svg")
	assert.Contains(t, out, "v_orders_reverse_dependencies.svg")
	assert.Contains(t, out, "identical to the value in base object &#39;orders&#39;")
	assert.Contains(t, out, "SELECT id FROM orders")
}

func TestDetailPageMarksPrimaryKeys(t *testing.T) {
	node := DetailPage("orders", true, []string{"id", "amount"}, []string{"id"}, nil, "")

	var sb strings.Builder
	require.NoError(t, WriteNode(&sb, node))
	out := sb.String()

	assert.Contains(t, out, "Table: orders")
	assert.Contains(t, out, `<span class="pk">PK</span>`)
	assert.NotContains(t, out, "View Definition")
}

func TestIndexPage(t *testing.T) {
	node := IndexPage("public", []string{"orders"}, []string{"v_orders"})

	var sb strings.Builder
	require.NoError(t, WriteNode(&sb, node))
	out := sb.String()

	assert.Contains(t, out, "Entity Relationship Dashboard: public")
	assert.Contains(t, out, "public_er_diagram.svg")
	assert.Contains(t, out, `href="details/v_orders.html"`)
}

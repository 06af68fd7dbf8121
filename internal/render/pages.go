package render

import (
	"fmt"
	"io"
	"sort"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/sabrimoh/erdash/pkg/lineage"
)

// ColumnLineage pairs a view column with its condensed lineage chain.
type ColumnLineage struct {
	Column string
	Chain  lineage.Chain
}

// WriteNode renders a gomponents tree to the writer.
func WriteNode(w io.Writer, node Node) error {
	return node.Render(w)
}

// IndexPage is the dashboard landing page embedding the full schema diagram.
func IndexPage(schema string, tables, views []string) Node {
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(fmt.Sprintf("Schema %s | ER Dashboard", schema))),
			StyleEl(Text(pageCSS)),
		),
		Body(
			Main(
				Class("wrap"),
				H1(Text(fmt.Sprintf("Entity Relationship Dashboard: %s", schema))),
				P(Text(fmt.Sprintf("%d tables, %d views. Click a node in the diagram for column details and lineage.", len(tables), len(views)))),
				Div(
					Class("diagram"),
					Object(
						Type("image/svg+xml"),
						Attr("data", "public_er_diagram.svg"),
						Width("100%"),
						Text("ER diagram"),
					),
				),
				objectListSection("Tables", tables),
				objectListSection("Views", views),
			),
		),
	)
}

// DetailPage is a per-object page with columns, lineage chains, the
// dependency diagrams and the view's SQL text.
func DetailPage(name string, isTable bool, columns []string, primaryKeys []string, lineages []ColumnLineage, viewSQL string) Node {
	kind := "View"
	if isTable {
		kind = "Table"
	}

	pk := make(map[string]struct{}, len(primaryKeys))
	for _, col := range primaryKeys {
		pk[col] = struct{}{}
	}

	columnItems := make([]Node, 0, len(columns))
	for _, col := range columns {
		if _, ok := pk[col]; ok {
			columnItems = append(columnItems, Li(Text(col+" "), Span(Class("pk"), Text("PK"))))
			continue
		}
		columnItems = append(columnItems, Li(Text(col)))
	}

	sections := []Node{
		H1(Text(fmt.Sprintf("%s: %s", kind, name))),
		P(A(Href("../main.html"), Text("Back to overview"))),
		H2(Text("Columns")),
		Ul(columnItems...),
	}

	if len(lineages) > 0 {
		sections = append(sections, H2(Text("Column Lineage")), lineageSection(lineages))
	}

	sections = append(sections,
		H2(Text("Dependencies")),
		P(Text(fmt.Sprintf("What %s reads from:", name))),
		Div(Class("diagram"), Object(
			Type("image/svg+xml"),
			Attr("data", name+"_dependencies.svg"),
			Width("100%"),
			Text("dependency diagram"),
		)),
		P(Text(fmt.Sprintf("What reads from %s:", name))),
		Div(Class("diagram"), Object(
			Type("image/svg+xml"),
			Attr("data", name+"_reverse_dependencies.svg"),
			Width("100%"),
			Text("reverse dependency diagram"),
		)),
	)

	if viewSQL != "" {
		sections = append(sections,
			H2(Text("View Definition")),
			Pre(Code(Text(viewSQL))),
		)
	}

	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(fmt.Sprintf("%s %s | ER Dashboard", kind, name))),
			StyleEl(Text(pageCSS)),
		),
		Body(Main(Class("wrap"), Group(sections))),
	)
}

func lineageSection(lineages []ColumnLineage) Node {
	sorted := make([]ColumnLineage, len(lineages))
	copy(sorted, lineages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Column < sorted[j].Column })

	items := make([]Node, 0, len(sorted))
	for _, cl := range sorted {
		steps := make([]Node, 0, len(cl.Chain))
		for _, line := range cl.Chain.Lines() {
			steps = append(steps, Li(Text(line)))
		}
		items = append(items, Details(
			Summary(Strong(Text(cl.Column))),
			Ol(steps...),
		))
	}
	return Div(Class("lineage"), Group(items))
}

func objectListSection(title string, names []string) Node {
	items := make([]Node, 0, len(names))
	for _, name := range names {
		items = append(items, Li(A(Href("details/"+name+".html"), Text(name))))
	}
	return Section(
		H2(Text(title)),
		Ul(items...),
	)
}

const pageCSS = `
body { font-family: Helvetica, Arial, sans-serif; margin: 0; background: #fafafa; color: #222; }
.wrap { max-width: 1200px; margin: 0 auto; padding: 1.5rem; }
h1 { border-bottom: 2px solid #ddd; padding-bottom: 0.5rem; }
.diagram { background: #fff; border: 1px solid #ddd; padding: 0.5rem; margin: 1rem 0; overflow: auto; }
.pk { background: #9f9; border-radius: 3px; padding: 0 0.3rem; font-size: 0.8em; }
.lineage details { margin: 0.3rem 0; }
pre { background: #f4f4f4; border: 1px solid #ddd; padding: 0.75rem; overflow: auto; }
`

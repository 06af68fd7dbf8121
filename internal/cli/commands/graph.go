package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sabrimoh/erdash/internal/cli/config"
	"github.com/sabrimoh/erdash/internal/render"
	"github.com/sabrimoh/erdash/pkg/depgraph"
)

// GraphOptions holds options for the graph command.
type GraphOptions struct {
	OutputFormat string
	Reverse      bool
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &GraphOptions{}

	cmd := &cobra.Command{
		Use:   "graph [object]",
		Short: "Show the view dependency graph",
		Long: `Print the dependency graph between tables and views. With an object
argument only that object's upstream sources (or downstream dependents with
--reverse) are shown.`,
		Example: `  # Whole schema as text
  erdash graph

  # What v_orders_calc reads from, as Graphviz DOT
  erdash graph v_orders_calc --output dot

  # What reads from orders
  erdash graph orders --reverse`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			object := ""
			if len(args) == 1 {
				object = args[0]
			}
			return runGraph(cmd, object, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (text|dot|json)")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "Show dependents instead of sources")

	return cmd
}

func runGraph(cmd *cobra.Command, object string, opts *GraphOptions) error {
	cfg := config.FromContext(cmd.Context())

	rows, err := loadRows(cmd, cfg)
	if err != nil {
		return err
	}
	index, graph, _ := buildCore(rows)

	if object != "" && !graph.HasNode(object) && !index.IsTable(object) {
		return fmt.Errorf("unknown object %q", object)
	}

	switch opts.OutputFormat {
	case "json":
		return renderGraphJSON(cmd, graph, object, opts.Reverse)

	case "dot":
		diagrams := render.NewDiagramBuilder(index, graph)
		switch {
		case object == "":
			_, _ = fmt.Fprint(cmd.OutOrStdout(), diagrams.ERDiagramDOT())
		case opts.Reverse:
			_, _ = fmt.Fprint(cmd.OutOrStdout(), diagrams.DependentsDOT(object))
		default:
			_, _ = fmt.Fprint(cmd.OutOrStdout(), diagrams.SourcesDOT(object))
		}
		return nil

	default:
		renderGraphText(cmd, graph, object, opts.Reverse)
		return nil
	}
}

func renderGraphText(cmd *cobra.Command, graph *depgraph.Graph, object string, reverse bool) {
	out := cmd.OutOrStdout()

	if object == "" {
		if roots := graph.Roots(); len(roots) > 0 {
			_, _ = fmt.Fprintf(out, "base objects: %s\n", strings.Join(roots, ", "))
		}
		if leaves := graph.Leaves(); len(leaves) > 0 {
			_, _ = fmt.Fprintf(out, "terminal objects: %s\n", strings.Join(leaves, ", "))
		}
		if cyclic, path := graph.HasCycle(); cyclic {
			_, _ = fmt.Fprintf(out, "warning: dependency cycle detected, metadata may be stale: %s\n",
				strings.Join(path, " -> "))
		}
		for _, node := range graph.Nodes() {
			parents := graph.ParentsOf(node)
			if len(parents) == 0 {
				_, _ = fmt.Fprintf(out, "%s\n", node)
				continue
			}
			for _, parent := range parents {
				_, _ = fmt.Fprintf(out, "%s -> %s\n", node, parent)
			}
		}
		return
	}

	if reverse {
		_, _ = fmt.Fprintf(out, "dependents of %s:\n", object)
		for _, name := range graph.Downstream(object) {
			_, _ = fmt.Fprintf(out, "  %s\n", name)
		}
		return
	}
	_, _ = fmt.Fprintf(out, "sources of %s:\n", object)
	for _, name := range graph.Upstream(object) {
		_, _ = fmt.Fprintf(out, "  %s\n", name)
	}
}

func renderGraphJSON(cmd *cobra.Command, graph *depgraph.Graph, object string, reverse bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if object == "" {
		edges := make(map[string][]string)
		for _, node := range graph.Nodes() {
			if parents := graph.ParentsOf(node); len(parents) > 0 {
				edges[node] = parents
			}
		}
		return enc.Encode(edges)
	}

	if reverse {
		return enc.Encode(map[string][]string{object: graph.Downstream(object)})
	}
	return enc.Encode(map[string][]string{object: graph.Upstream(object)})
}

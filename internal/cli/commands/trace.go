package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sabrimoh/erdash/internal/cli/config"
	"github.com/sabrimoh/erdash/pkg/lineage"
)

// TraceOptions holds options for the trace command.
type TraceOptions struct {
	OutputFormat string
	All          bool
	Raw          bool
}

// NewTraceCommand creates the trace command.
func NewTraceCommand() *cobra.Command {
	opts := &TraceOptions{}

	cmd := &cobra.Command{
		Use:   "trace <view> [column]",
		Short: "Trace column lineage through views",
		Long: `Trace where a view column's value originates, following view definitions
down to base tables. Without a column argument every column of the view is
traced.`,
		Example: `  # Trace one column
  erdash trace v_orders_calc total_amount

  # Trace every column of a view
  erdash trace v_orders_calc

  # Explore every contributing branch, not just the first
  erdash trace v_orders_calc total_amount --all

  # Machine-readable output
  erdash trace v_orders_calc --output json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := args[0]
			column := ""
			if len(args) == 2 {
				column = args[1]
			}
			return runTrace(cmd, view, column, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Report every contributing branch instead of the first")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Skip condensing pure pass-through chains")

	return cmd
}

type tracedColumn struct {
	Column string          `json:"column"`
	Chains []lineage.Chain `json:"chains"`
}

func runTrace(cmd *cobra.Command, view, column string, opts *TraceOptions) error {
	cfg := config.FromContext(cmd.Context())

	rows, err := loadRows(cmd, cfg)
	if err != nil {
		return err
	}
	index, _, tracer := buildCore(rows)

	columns := index.Columns(view)
	if column != "" {
		columns = []string{column}
	}
	if len(columns) == 0 {
		return fmt.Errorf("no columns known for %q; is it in schema %s?", view, cfg.Database.SchemaName())
	}

	results := make([]tracedColumn, 0, len(columns))
	for _, col := range columns {
		var chains []lineage.Chain
		if opts.All {
			chains = tracer.TraceAll(col, view)
		} else {
			chains = []lineage.Chain{tracer.Trace(col, view)}
		}
		if !opts.Raw {
			for i, chain := range chains {
				chains[i] = lineage.Condense(chain, col)
			}
		}
		results = append(results, tracedColumn{Column: col, Chains: chains})
	}

	if opts.OutputFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	renderTraceTable(cmd, view, results)
	return nil
}

func renderTraceTable(cmd *cobra.Command, view string, results []tracedColumn) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Branch", "Step", "Detail"})

	for _, res := range results {
		for branch, chain := range res.Chains {
			for i, step := range chain {
				t.AppendRow(table.Row{res.Column, branch + 1, i + 1, step.Text})
			}
		}
		t.AppendSeparator()
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Lineage for %s\n", view)
	t.Render()
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sabrimoh/erdash/internal/cli/config"
	"github.com/sabrimoh/erdash/internal/site"
	"github.com/sabrimoh/erdash/pkg/metadata"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the dashboard site",
		Long: `Build the full static dashboard: main page, ER diagram, and one detail
page per table and view, with column lineage traced through views.

Diagrams are written as Graphviz DOT sources and rendered to the SVG files
the pages embed when the dot binary is on PATH; otherwise render them with
  dot -Tsvg -O <file>.dot`,
		Example: `  # Generate from a snapshot (or the database if none exists)
  erdash generate

  # Generate straight from a specific database
  erdash generate --snapshot= --db-host pg.internal --db-name sales`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			rows, err := loadRows(cmd, cfg)
			if err != nil {
				return err
			}
			return runGenerate(cmd, cfg, rows)
		},
	}
}

func runGenerate(cmd *cobra.Command, cfg *config.Config, rows []metadata.Row) error {
	index := metadata.NewIndex(rows)
	builder := site.NewBuilder(index, site.Options{
		Schema:  cfg.Database.SchemaName(),
		OutDir:  cfg.OutDir,
		Workers: cfg.Workers,
		SVG:     site.DotSVGRenderer(),
		Logger:  config.LoggerFromContext(cmd.Context()),
	})

	if err := builder.Build(cmd.Context()); err != nil {
		return fmt.Errorf("build site: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Site written to %s (%d tables, %d views)\n",
		builder.OutDir(), len(index.Tables()), len(index.Views()))
	if !builder.RendersSVG() {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "graphviz dot not found; render diagrams with: dot -Tsvg -O "+builder.OutDir()+"/**/*.dot")
	}
	return nil
}

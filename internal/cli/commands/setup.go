// Package commands implements the erdash subcommands.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sabrimoh/erdash/internal/cli/config"
	"github.com/sabrimoh/erdash/internal/db"
	"github.com/sabrimoh/erdash/pkg/depgraph"
	"github.com/sabrimoh/erdash/pkg/lineage"
	"github.com/sabrimoh/erdash/pkg/metadata"
)

// loadRows returns metadata rows for the configured schema. A readable
// snapshot file wins; otherwise the database is queried directly.
func loadRows(cmd *cobra.Command, cfg *config.Config) ([]metadata.Row, error) {
	ctx := cmd.Context()
	logger := config.LoggerFromContext(ctx)

	if cfg.SnapshotPath != "" {
		if _, err := os.Stat(cfg.SnapshotPath); err == nil {
			snap, err := db.ReadSnapshot(cfg.SnapshotPath)
			if err != nil {
				return nil, err
			}
			logger.Debug("loaded metadata from snapshot",
				"path", cfg.SnapshotPath, "rows", len(snap.Rows), "captured_at", snap.CapturedAt)
			return snap.Rows, nil
		}
	}

	return fetchRows(ctx, cfg)
}

// fetchRows queries the database for metadata rows, ignoring any snapshot.
func fetchRows(ctx context.Context, cfg *config.Config) ([]metadata.Row, error) {
	logger := config.LoggerFromContext(ctx)

	client, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = client.Close() }()

	rows, err := client.FetchRows(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetched metadata from database", "rows", len(rows), "schema", cfg.Database.SchemaName())
	return rows, nil
}

// buildCore assembles the index, graph, and tracer from metadata rows.
func buildCore(rows []metadata.Row) (*metadata.Index, *depgraph.Graph, *lineage.Tracer) {
	index := metadata.NewIndex(rows)
	graph := depgraph.FromEdges(index.Edges())
	return index, graph, lineage.NewTracer(index, graph)
}

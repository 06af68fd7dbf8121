package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sabrimoh/erdash/internal/cli/config"
	"github.com/sabrimoh/erdash/internal/db"
)

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Capture schema metadata into a snapshot file",
		Long: `Query the database's information_schema and write the result to a JSON
snapshot. Other commands prefer the snapshot over a live connection, so a
snapshot lets the dashboard be generated without database access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			logger := config.LoggerFromContext(cmd.Context())

			rows, err := fetchRows(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := db.WriteSnapshot(cfg.SnapshotPath, cfg.Database.SchemaName(), rows); err != nil {
				return err
			}

			logger.Info("snapshot written", "path", cfg.SnapshotPath, "rows", len(rows))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d metadata rows to %s\n", len(rows), cfg.SnapshotPath)
			return nil
		},
	}
}

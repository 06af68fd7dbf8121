package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sabrimoh/erdash/internal/cli/config"
	"github.com/sabrimoh/erdash/internal/dashboard"
	"github.com/sabrimoh/erdash/internal/site"
	"github.com/sabrimoh/erdash/pkg/metadata"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long: `Serve the generated site. If the site has not been generated yet it is
built first. With --watch the metadata snapshot is watched and the site is
rebuilt whenever it changes.`,
		Example: `  erdash serve
  erdash serve --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cmd.Flags().Changed("watch") {
				cfg.Watch = watch
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild the site when the snapshot changes")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger := config.LoggerFromContext(cmd.Context())

	rebuild := func(ctx context.Context) error {
		snap, err := loadRows(cmd, cfg)
		if err != nil {
			return err
		}
		builder := site.NewBuilder(metadata.NewIndex(snap), site.Options{
			Schema:  cfg.Database.SchemaName(),
			OutDir:  cfg.OutDir,
			Workers: cfg.Workers,
			SVG:     site.DotSVGRenderer(),
			Logger:  logger,
		})
		return builder.Build(ctx)
	}

	// build up front when the site is missing
	if _, err := os.Stat(cfg.OutDir); err != nil {
		logger.Info("site not found, generating", "out", cfg.OutDir)
		if err := rebuild(cmd.Context()); err != nil {
			return fmt.Errorf("initial build: %w", err)
		}
	}

	watchPath := ""
	if cfg.Watch {
		watchPath = cfg.SnapshotPath
	}

	srv := dashboard.New(dashboard.Config{
		SiteDir:   cfg.OutDir,
		Port:      cfg.Port,
		WatchPath: watchPath,
		Rebuild:   rebuild,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}

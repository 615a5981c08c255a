package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lexatlas/wordmap/internal/server"
	"github.com/lexatlas/wordmap/pkg/buildinfo"
	"github.com/lexatlas/wordmap/pkg/cache"
	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/chart/treemap"
	"github.com/lexatlas/wordmap/pkg/config"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/viz"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string // listen address; overrides config when set
	itemsPath  string // JSON items file for the in-memory store
	configPath string // optional TOML config file
}

// newServeCmd creates the serve command running the HTTP server.
func newServeCmd() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live visualization over HTTP",
		Long: `Serve runs an HTTP server hosting the live treemap. The chart re-renders
as the data store, display language, or client viewport changes. Data comes
from MongoDB when configured, otherwise from a JSON items file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVarP(&opts.itemsPath, "items", "i", "", "JSON items file for the in-memory store")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file path")

	return cmd
}

func runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr == "" {
		opts.addr = cfg.Server.Addr
	}

	st, cleanup, err := buildStore(ctx, cfg, opts.itemsPath, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	artifactCache, err := buildCache(cfg)
	if err != nil {
		return err
	}
	defer artifactCache.Close()

	lang := i18n.NewSetting(i18n.NewBundle(), cfg.Language)
	chartOpts := chartOptions(cfg)
	surface := server.NewSurface(chartOpts.Width, chartOpts.Height)

	engine := &treemap.Engine{RootLabel: lang.Translator().T(i18n.KeyAllCountries)}
	svc := chart.NewService(engine, logger)
	v := viz.New(svc, st, lang, surface, nil, chartOpts, logger)

	srv := server.New(server.Options{
		Addr:    opts.addr,
		Viz:     v,
		Lang:    lang,
		Surface: surface,
		Cache:   artifactCache,
		// Scope keys so several wordmap deployments can share one Redis.
		Keyer:     cache.NewScopedKeyer(cache.NewDefaultKeyer(), "wordmap:"),
		ChartOpts: chartOpts,
		Logger:    logger,
	})

	logger.Info("starting server", "addr", opts.addr, "engine", engine.Name(), "build", buildinfo.Version)
	return srv.Run(ctx)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexatlas/wordmap/pkg/cache"
	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/chart/dot"
	"github.com/lexatlas/wordmap/pkg/chart/term"
	"github.com/lexatlas/wordmap/pkg/chart/treemap"
	"github.com/lexatlas/wordmap/pkg/config"
	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/hierarchy"
	"github.com/lexatlas/wordmap/pkg/i18n"
)

// Output formats for the render command.
const (
	formatSVG      = "svg"       // treemap SVG
	formatDOT      = "dot"       // Graphviz DOT source
	formatGraphSVG = "graph-svg" // node-link SVG rendered through Graphviz
	formatTxt      = "txt"       // terminal bar chart snapshot
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string // output file path; "-" or empty writes to stdout
	format     string // one of the format constants
	width      int    // frame width in pixels (columns for txt)
	height     int    // frame height in pixels (rows for txt)
	language   string // display language code
	configPath string // optional TOML config file
	noCache    bool   // bypass the artifact cache
}

// newRenderCmd creates the render command for one-shot artifact generation.
func newRenderCmd() *cobra.Command {
	opts := renderOpts{
		format: formatSVG,
	}

	cmd := &cobra.Command{
		Use:   "render [items.json]",
		Short: "Render the word distribution to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			return runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot, graph-svg, txt")
	cmd.Flags().IntVar(&opts.width, "width", 0, "frame width (default from config)")
	cmd.Flags().IntVar(&opts.height, "height", 0, "frame height (default from config)")
	cmd.Flags().StringVarP(&opts.language, "lang", "l", "", "display language (default from config)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file path")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the artifact cache")

	return cmd
}

// validFormats is the set of supported output formats.
var validFormats = map[string]bool{formatSVG: true, formatDOT: true, formatGraphSVG: true, formatTxt: true}

func validateFormat(f string) error {
	if !validFormats[f] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s (must be 'svg', 'dot', 'graph-svg', or 'txt')", f)
	}
	return nil
}

func runRender(ctx context.Context, itemsPath string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.language == "" {
		opts.language = cfg.Language
	}
	if opts.width == 0 {
		opts.width = cfg.Chart.Width
	}
	if opts.height == 0 {
		opts.height = cfg.Chart.Height
	}
	if err := errors.ValidateLanguage(opts.language); err != nil {
		return err
	}
	if err := errors.ValidateDimensions(opts.width, opts.height); err != nil {
		return err
	}

	items, err := loadItems(itemsPath)
	if err != nil {
		return err
	}
	logger.Debug("items loaded", "count", len(items))

	tr := i18n.NewBundle().Translator(opts.language)
	tree, totals := hierarchy.NewBuilder(tr).SafeBuild(ctx, logger, items)
	logger.Debug("hierarchy built", "nodes", tree.CountNodes(), "words", totals.Words, "items", totals.Items)

	artifactCache := cache.Cache(cache.NewNullCache())
	if !opts.noCache {
		if artifactCache, err = buildCache(cfg); err != nil {
			return err
		}
	}
	defer artifactCache.Close()

	key := cache.NewDefaultKeyer().ArtifactKey(tree.Hash(), cache.ArtifactKeyOpts{
		Format:      opts.format,
		Width:       opts.width,
		Height:      opts.height,
		Language:    opts.language,
		Palette:     strings.Join(cfg.Chart.Palette, ","),
		Zoom:        cfg.Chart.ZoomEnabled(),
		Breadcrumbs: cfg.Chart.BreadcrumbsEnabled(),
	})
	if data, ok, err := artifactCache.Get(ctx, key); err == nil && ok {
		logger.Debug("artifact cache hit", "key", key)
		return writeOutput(opts.output, data)
	}

	p := newProgress(logger)
	artifact, err := produceArtifact(ctx, tree, tr, cfg, opts)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Rendered %d items as %s", totals.Items, opts.format))

	if err := artifactCache.Set(ctx, key, artifact, cache.TTLArtifact); err != nil {
		logger.Warn("artifact cache write failed", "err", err)
	}
	return writeOutput(opts.output, artifact)
}

// produceArtifact renders the tree in the requested format.
func produceArtifact(ctx context.Context, tree *hierarchy.Node, tr i18n.Translator, cfg *config.Config, opts *renderOpts) ([]byte, error) {
	rootLabel := tr.T(i18n.KeyAllCountries)

	switch opts.format {
	case formatDOT:
		return []byte(dot.ToDOT(tree, rootLabel)), nil

	case formatGraphSVG:
		return dot.RenderSVG(ctx, dot.ToDOT(tree, rootLabel))

	case formatSVG, formatTxt:
		var engine chart.Engine = &treemap.Engine{RootLabel: rootLabel}
		if opts.format == formatTxt {
			engine = &term.Engine{}
		}

		chartOpts := chartOptions(cfg)
		chartOpts.Width, chartOpts.Height = opts.width, opts.height

		svc := chart.NewService(engine, loggerFromContext(ctx))
		handle, err := svc.Create(&chart.FixedSurface{W: opts.width, H: opts.height}, chartOpts)
		if err != nil {
			return nil, err
		}
		defer svc.Destroy(handle)

		if err := svc.Render(ctx, handle, tree); err != nil {
			return nil, err
		}

		if opts.format == formatTxt {
			return []byte(term.Frame(handle.Instance())), nil
		}
		return treemap.Artifact(handle.Instance()), nil

	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s", opts.format)
	}
}

// writeOutput writes data to path, or stdout when path is empty or "-".
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

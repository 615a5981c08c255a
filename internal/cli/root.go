package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/lexatlas/wordmap/pkg/buildinfo"
)

// Execute runs the wordmap CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands (render, serve,
// watch), configures logging based on the --verbose flag, and executes the
// command tree. The logger is attached to the context and accessible to all
// commands via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "wordmap",
		Short:        "Wordmap visualizes word distributions as treemaps",
		Long:         `Wordmap renders the distribution of words across countries and collections as an interactive treemap, live-updating as the underlying data, language, or viewport changes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}

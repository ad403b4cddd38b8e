package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quillhost/quill/internal/build"
	"github.com/quillhost/quill/internal/config"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the site to static files",
	Long: `Render every page, feed, and asset into the output directory so the
site can be served from any static host. Posts that fail to parse are
skipped and reported; the rest of the site still builds.

Examples:
  quill build
  quill build --output public --clean=false`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("output", "o", "dist", "Output directory")
	buildCmd.Flags().Bool("clean", true, "Remove the output directory before building")
	buildCmd.Flags().String("posts-dir", "content/posts", "Posts directory")

	_ = viper.BindPFlag("build.output_dir", buildCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("build.clean", buildCmd.Flags().Lookup("clean"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyPostsDirFlag(cmd, cfg)

	logger := newLogger(cfg)

	views, err := openViews(cfg)
	if err != nil {
		return fmt.Errorf("failed to open analytics store: %w", err)
	}
	if views != nil {
		defer func() { _ = views.Close() }()
	}

	svc := newContentService(cfg, newTiers(cfg), viewSourceOrNil(views), logger)

	builder, err := build.New(cfg, svc, counterOrNil(views), logger)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	result, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Built %d pages and %d assets into %s in %s\n",
		result.Pages, result.Assets, result.OutputDir, result.Duration.Round(time.Millisecond))

	if len(result.Skipped) > 0 {
		fmt.Printf("Skipped %d unparseable post(s):\n", len(result.Skipped))
		for _, le := range result.Skipped {
			fmt.Printf("  %s: %v\n", le.File, le.Err)
		}
	}

	return nil
}

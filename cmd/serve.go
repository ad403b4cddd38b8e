package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/health"
	"github.com/quillhost/quill/internal/server"
	"github.com/quillhost/quill/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the blog over HTTP",
	Long: `Serve the blog with cached rendering, feeds, search, and health
checks. In development the server also watches the posts directory and
live-reloads connected browsers when content changes.

Examples:
  quill serve
  quill serve --port 8080 --environment production
  QUILL_CONTENT_POSTS_DIR=./posts quill serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("environment", "development", "Environment (development, production)")
	serveCmd.Flags().String("posts-dir", "content/posts", "Posts directory")
	serveCmd.Flags().Bool("watch", false, "Watch the posts directory for changes")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.environment", serveCmd.Flags().Lookup("environment"))
	_ = viper.BindPFlag("content.watch", serveCmd.Flags().Lookup("watch"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyPostsDirFlag(cmd, cfg)

	logger := newLogger(cfg)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	views, err := openViews(cfg)
	if err != nil {
		return fmt.Errorf("failed to open analytics store: %w", err)
	}
	if views != nil {
		defer func() { _ = views.Close() }()
	}

	tiers := newTiers(cfg)
	svc := newContentService(cfg, tiers, viewSourceOrNil(views), logger)

	var fileWatch *watcher.FileWatcher
	if cfg.Content.WatchEnabled {
		fileWatch, err = watcher.NewFileWatcher(cfg.Content.DebounceDelay, logger)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
	}

	sources := []health.StatsSource{tiers.Collection, tiers.Metadata, tiers.BySlug}

	srv, err := server.New(cfg, svc, counterOrNil(views), nil, fileWatch, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	checker := health.NewService(cfg.Content.PostsDir, sources, srv.RequestCounter())
	srv.SetHealthChecker(checker)

	// Shut down cleanly on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info(ctx, "signal received, shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	cancel()

	return <-errCh
}

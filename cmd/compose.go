package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/quillhost/quill/internal/analytics"
	"github.com/quillhost/quill/internal/cache"
	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/logging"
	"github.com/quillhost/quill/internal/markdown"
)

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
}

// newTiers builds the three cache tiers from the configured TTLs. A zero
// TTL means entries never expire and only invalidation clears them.
func newTiers(cfg *config.Config) *content.Tiers {
	return &content.Tiers{
		Collection: cache.New[[]content.Post]("posts", cfg.Cache.PostsTTL),
		Metadata:   cache.New[[]content.PostMeta]("metadata", cfg.Cache.MetadataTTL),
		BySlug:     cache.New[content.Post]("post", cfg.Cache.PostTTL),
	}
}

// newContentService wires the content service with its renderer, caches,
// and optional view source.
func newContentService(cfg *config.Config, tiers *content.Tiers, views content.ViewSource, logger logging.Logger) *content.Service {
	renderer := markdown.NewRenderer(markdown.Options{
		HighlightStyle: cfg.Content.HighlightStyle,
		Unsafe:         cfg.Content.AllowRawHTML,
	})
	svc := content.NewService(cfg.Content.PostsDir, tiers, renderer, views, logger)
	svc.SetExcludePatterns(cfg.Content.ExcludePatterns)

	return svc
}

// applyPostsDirFlag overrides the configured posts directory with the
// command's --posts-dir flag. The flag is shared by several commands, so
// it cannot be bound to a single viper key.
func applyPostsDirFlag(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("posts-dir") {
		if dir, err := cmd.Flags().GetString("posts-dir"); err == nil && dir != "" {
			cfg.Content.PostsDir = dir
		}
	}
}

// openViews opens the view-count store when analytics is enabled. Returns
// nil when disabled.
func openViews(cfg *config.Config) (*analytics.SQLiteStore, error) {
	if !cfg.Analytics.Enabled {
		return nil, nil
	}

	return analytics.OpenSQLite(cfg.Analytics.DatabasePath)
}

// viewSourceOrNil avoids handing a typed-nil pointer to code that checks
// the interface against nil.
func viewSourceOrNil(store *analytics.SQLiteStore) content.ViewSource {
	if store == nil {
		return nil
	}

	return store
}

func counterOrNil(store *analytics.SQLiteStore) analytics.ViewCounter {
	if store == nil {
		return nil
	}

	return store
}

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 10 * time.Second

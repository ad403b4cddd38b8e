// Package build renders the whole site to plain files so it can be served
// from any static host.
package build

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/quillhost/quill/internal/analytics"
	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/errors"
	"github.com/quillhost/quill/internal/feeds"
	"github.com/quillhost/quill/internal/logging"
	"github.com/quillhost/quill/internal/markdown"
	"github.com/quillhost/quill/internal/server"
)

// Builder writes the rendered site into the configured output directory.
type Builder struct {
	cfg      *config.Config
	posts    *content.Service
	views    analytics.ViewCounter
	renderer *server.StaticRenderer
	logger   logging.Logger
}

// Result summarizes a build run.
type Result struct {
	OutputDir string
	Pages     int
	Assets    int
	Bytes     int64
	Duration  time.Duration
	// Skipped holds the per-file load failures tolerated during the run.
	Skipped []errors.LoadError
}

// New creates a builder. views may be nil; view counts then render as zero.
func New(cfg *config.Config, posts *content.Service, views analytics.ViewCounter, logger logging.Logger) (*Builder, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	renderer, err := server.NewStaticRenderer(cfg.Site)
	if err != nil {
		return nil, err
	}

	return &Builder{
		cfg:      cfg,
		posts:    posts,
		views:    views,
		renderer: renderer,
		logger:   logger.WithComponent("build"),
	}, nil
}

// searchEntry is one row of the client-side search index.
type searchEntry struct {
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Date    string   `json:"date"`
	Excerpt string   `json:"excerpt,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Text    string   `json:"text"`
}

// Build renders every page, feed, and asset. A single unparseable post is
// skipped and reported; an unreadable posts directory aborts the build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	outDir := b.cfg.Build.OutputDir

	if b.cfg.Build.Clean {
		if err := os.RemoveAll(outDir); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileUnreadable, "cannot clean output directory", err).WithFile(outDir)
		}
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileUnreadable, "cannot create output directory", err).WithFile(outDir)
	}

	posts, err := b.posts.LoadPosts(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := b.posts.LoadPostsMetadata(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{OutputDir: outDir, Skipped: b.posts.LoadErrors()}

	n, err := b.writePage(outDir, "index.html", func(w io.Writer) error {
		return b.renderer.Index(w, meta)
	})
	if err != nil {
		return nil, err
	}
	result.Pages++
	result.Bytes += n

	viewCounts := b.loadViewCounts(ctx)
	for i := range posts {
		post := &posts[i]
		path := filepath.Join("posts", post.Slug, "index.html")
		n, err := b.writePage(outDir, path, func(w io.Writer) error {
			return b.renderer.Post(w, post, viewCounts[post.Slug])
		})
		if err != nil {
			return nil, err
		}
		result.Pages++
		result.Bytes += n
	}

	tags, err := b.posts.GetAllTags(ctx)
	if err != nil {
		return nil, err
	}

	n, err = b.writePage(outDir, filepath.Join("tags", "index.html"), func(w io.Writer) error {
		return b.renderer.Tags(w, tags)
	})
	if err != nil {
		return nil, err
	}
	result.Pages++
	result.Bytes += n

	for _, tag := range tags {
		tag := tag
		path := filepath.Join("tags", tag.Name, "index.html")
		n, err := b.writePage(outDir, path, func(w io.Writer) error {
			return b.renderer.Tag(w, tag.Name, b.postsForTag(posts, tag.Name))
		})
		if err != nil {
			return nil, err
		}
		result.Pages++
		result.Bytes += n
	}

	n, err = b.writePage(outDir, filepath.Join("search", "index.html"), func(w io.Writer) error {
		return b.renderer.Search(w)
	})
	if err != nil {
		return nil, err
	}
	result.Pages++
	result.Bytes += n

	n, err = b.writePage(outDir, "404.html", func(w io.Writer) error {
		return b.renderer.NotFound(w)
	})
	if err != nil {
		return nil, err
	}
	result.Pages++
	result.Bytes += n

	n, err = b.writeSearchIndex(outDir, posts)
	if err != nil {
		return nil, err
	}
	result.Assets++
	result.Bytes += n

	assets, feedBytes, err := b.writeFeeds(outDir, meta)
	if err != nil {
		return nil, err
	}
	result.Assets += assets
	result.Bytes += feedBytes

	copied, assetBytes, err := b.copyStaticAssets(outDir)
	if err != nil {
		return nil, err
	}
	result.Assets += copied
	result.Bytes += assetBytes

	result.Duration = time.Since(start)
	b.logger.Info(ctx, "build complete",
		"pages", result.Pages,
		"assets", result.Assets,
		"bytes", result.Bytes,
		"skipped", len(result.Skipped),
		"duration", result.Duration.String())

	return result, nil
}

func (b *Builder) loadViewCounts(ctx context.Context) map[string]int64 {
	if b.views == nil {
		return nil
	}

	counts, err := b.views.All(ctx)
	if err != nil {
		b.logger.Warn(ctx, err, "view counts unavailable, rendering zeros")
		return nil
	}

	return counts
}

func (b *Builder) postsForTag(posts []content.Post, tag string) []content.PostMeta {
	var matched []content.PostMeta
	for i := range posts {
		if posts[i].HasTag(tag) {
			matched = append(matched, posts[i].Meta())
		}
	}

	return matched
}

func (b *Builder) writePage(outDir, rel string, render func(io.Writer) error) (int64, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return 0, errors.NewInternalError(errors.ErrCodeInternalError, "page render failed", err)
	}

	path := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, errors.NewIOError(errors.ErrCodeFileUnreadable, "cannot create page directory", err).WithFile(path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, errors.NewIOError(errors.ErrCodeFileUnreadable, "cannot write page", err).WithFile(path)
	}

	return int64(buf.Len()), nil
}

func (b *Builder) writeSearchIndex(outDir string, posts []content.Post) (int64, error) {
	entries := make([]searchEntry, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		entries = append(entries, searchEntry{
			Slug:    p.Slug,
			Title:   p.Title,
			Date:    p.Date.Format(time.DateOnly),
			Excerpt: p.Excerpt,
			Tags:    p.Tags,
			Text:    markdown.ExtractText(p.Content),
		})
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return 0, errors.NewInternalError(errors.ErrCodeInternalError, "search index encode failed", err)
	}

	path := filepath.Join(outDir, "search-index.json")
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return 0, errors.NewIOError(errors.ErrCodeFileUnreadable, "cannot write search index", err).WithFile(path)
	}

	return int64(len(payload)), nil
}

func (b *Builder) writeFeeds(outDir string, meta []content.PostMeta) (int, int64, error) {
	rss, err := feeds.RSS(b.cfg.Site, meta)
	if err != nil {
		return 0, 0, err
	}
	atom, err := feeds.Atom(b.cfg.Site, meta)
	if err != nil {
		return 0, 0, err
	}
	sitemap, err := feeds.Sitemap(b.cfg.Site, meta)
	if err != nil {
		return 0, 0, err
	}

	files := map[string][]byte{
		"feed.xml":    []byte(rss),
		"atom.xml":    []byte(atom),
		"sitemap.xml": sitemap,
		"robots.txt":  feeds.Robots(b.cfg.Site),
	}

	written := 0
	var bytesOut int64
	for name, body := range files {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, body, 0644); err != nil {
			return written, bytesOut, errors.NewIOError(errors.ErrCodeFileUnreadable, "cannot write feed", err).WithFile(path)
		}
		written++
		bytesOut += int64(len(body))
	}

	return written, bytesOut, nil
}

func (b *Builder) copyStaticAssets(outDir string) (int, int64, error) {
	assets, err := server.Assets()
	if err != nil {
		return 0, 0, errors.NewInternalError(errors.ErrCodeInternalError, "embedded assets unavailable", err)
	}

	copied := 0
	var bytesOut int64
	err = fs.WalkDir(assets, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		body, err := fs.ReadFile(assets, path)
		if err != nil {
			return err
		}

		dst := filepath.Join(outDir, "static", path)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, body, 0644); err != nil {
			return err
		}
		copied++
		bytesOut += int64(len(body))

		return nil
	})
	if err != nil {
		return copied, bytesOut, errors.NewIOError(errors.ErrCodeFileUnreadable, "static asset copy failed", err)
	}

	return copied, bytesOut, nil
}

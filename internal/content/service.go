package content

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/quillhost/quill/internal/cache"
	"github.com/quillhost/quill/internal/errors"
	"github.com/quillhost/quill/internal/frontmatter"
	"github.com/quillhost/quill/internal/logging"
	"github.com/quillhost/quill/internal/markdown"
)

// Cache tier keys. Collections are cached whole and invalidated wholesale,
// never per-entry.
const (
	collectionKey = "posts:all"
	metadataKey   = "posts:meta"
)

// ViewSource supplies view counts keyed by slug. A missing slug means zero
// views.
type ViewSource interface {
	All(ctx context.Context) (map[string]int64, error)
}

// Tiers bundles the three cache tiers the service reads through. They are
// constructed by the composition root and must be invalidated together:
// clearing one but not the others lets readers observe a mix of old and new
// data.
type Tiers struct {
	Collection *cache.Cache[[]Post]
	Metadata   *cache.Cache[[]PostMeta]
	BySlug     *cache.Cache[Post]
}

// ClearAll clears every tier back-to-back, with no load in between.
func (t *Tiers) ClearAll() {
	t.Collection.Clear()
	t.Metadata.Clear()
	t.BySlug.Clear()
}

// Service loads, renders, caches, and queries the post collection.
type Service struct {
	postsDir        string
	excludePatterns []string
	renderer        *markdown.Renderer
	views           ViewSource
	tiers           *Tiers
	logger          logging.Logger
	collector       *errors.ErrorCollector

	scanCount int64
	warming   int32
}

// NewService wires a content service. views may be nil when analytics is
// disabled.
func NewService(postsDir string, tiers *Tiers, renderer *markdown.Renderer, views ViewSource, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	return &Service{
		postsDir:  postsDir,
		renderer:  renderer,
		views:     views,
		tiers:     tiers,
		logger:    logger.WithComponent("content"),
		collector: errors.NewErrorCollector(),
	}
}

// SetExcludePatterns sets filename glob patterns skipped during scans.
func (s *Service) SetExcludePatterns(patterns []string) {
	s.excludePatterns = patterns
}

// Tiers exposes the cache tiers for health introspection.
func (s *Service) Tiers() *Tiers {
	return s.tiers
}

// PostsDir returns the directory the service scans.
func (s *Service) PostsDir() string {
	return s.postsDir
}

// LoadPosts returns the full rendered collection, date descending. Cache
// miss triggers a directory scan in which each file is parsed independently:
// a failure scoped to one file is recorded and the file skipped, never
// aborting the batch. A directory-level read failure is fatal.
func (s *Service) LoadPosts(ctx context.Context) ([]Post, error) {
	if posts, ok := s.tiers.Collection.Get(collectionKey); ok {
		return posts, nil
	}

	posts, err := s.scan(ctx, true)
	if err != nil {
		return nil, err
	}

	s.tiers.Collection.Set(collectionKey, posts)
	return posts, nil
}

// LoadErrors returns the per-file failures recorded by the most recent scan.
func (s *Service) LoadErrors() []errors.LoadError {
	return s.collector.LoadErrors()
}

// LoadPostsMetadata returns the render-free projection with view counts
// merged in. Slugs absent from the analytics store read as zero.
func (s *Service) LoadPostsMetadata(ctx context.Context) ([]PostMeta, error) {
	if meta, ok := s.tiers.Metadata.Get(metadataKey); ok {
		return meta, nil
	}

	posts, err := s.scan(ctx, false)
	if err != nil {
		return nil, err
	}

	meta := make([]PostMeta, 0, len(posts))
	for i := range posts {
		meta = append(meta, posts[i].Meta())
	}

	if s.views != nil {
		counts, verr := s.views.All(ctx)
		if verr != nil {
			// View counts are auxiliary; serve the listing without them
			s.logger.Warn(ctx, verr, "View count merge failed")
		} else {
			for i := range meta {
				meta[i].ViewCount = counts[meta[i].Slug]
			}
		}
	}

	s.tiers.Metadata.Set(metadataKey, meta)
	return meta, nil
}

// GetPostBySlug looks up a single post, serving from the per-post tier when
// possible.
func (s *Service) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	if post, ok := s.tiers.BySlug.Get(slug); ok {
		return &post, nil
	}

	posts, err := s.LoadPosts(ctx)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		if posts[i].Slug == slug {
			s.tiers.BySlug.Set(slug, posts[i])
			return &posts[i], nil
		}
	}

	return nil, errors.ErrPostNotFound(slug)
}

// GetAllTags derives the tag→post aggregation from the full collection.
// Counts are posts bearing the tag; back-references preserve load order.
// Result is sorted by count descending, then name.
func (s *Service) GetAllTags(ctx context.Context) ([]TagInfo, error) {
	posts, err := s.LoadPosts(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*TagInfo)
	var order []string
	for i := range posts {
		for _, tag := range posts[i].Tags {
			info, ok := index[tag]
			if !ok {
				info = &TagInfo{Name: tag}
				index[tag] = info
				order = append(order, tag)
			}
			info.Count++
			info.Posts = append(info.Posts, posts[i].Meta())
		}
	}

	tags := make([]TagInfo, 0, len(order))
	for _, name := range order {
		tags = append(tags, *index[name])
	}

	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})

	return tags, nil
}

// Search performs a case-insensitive substring match over title, excerpt,
// and rendered-text content. Results keep the collection's date-descending
// order; there is deliberately no relevance ranking.
func (s *Service) Search(ctx context.Context, query string) ([]Post, error) {
	posts, err := s.LoadPosts(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []Post{}, nil
	}

	var matched []Post
	for i := range posts {
		p := &posts[i]
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Excerpt), needle) ||
			strings.Contains(strings.ToLower(markdown.ExtractText(p.Content)), needle) {
			matched = append(matched, *p)
		}
	}

	if matched == nil {
		matched = []Post{}
	}
	return matched, nil
}

// InvalidateAll clears every cache tier synchronously. No load runs between
// the tier clears, so a subsequent read can never observe a mix of old and
// new data.
func (s *Service) InvalidateAll() {
	s.tiers.ClearAll()
	s.logger.Debug(context.Background(), "All cache tiers invalidated")
}

// Warm re-populates the collection and metadata tiers. A single-slot
// in-flight guard drops overlapping warm requests instead of queueing them;
// the next change event triggers another attempt, so a dropped warm is an
// accepted staleness window, not a correctness bug. Returns false when a
// warm was already running.
func (s *Service) Warm(ctx context.Context) bool {
	if !atomic.CompareAndSwapInt32(&s.warming, 0, 1) {
		s.logger.Debug(ctx, "Warm already in flight, dropping request")
		return false
	}
	defer atomic.StoreInt32(&s.warming, 0)

	if _, err := s.LoadPosts(ctx); err != nil {
		s.logger.Error(ctx, err, "Cache warm failed loading posts")
		return true
	}
	if _, err := s.LoadPostsMetadata(ctx); err != nil {
		s.logger.Error(ctx, err, "Cache warm failed loading metadata")
	}

	return true
}

// ScanCount reports how many real directory scans have run. Tests use it to
// observe that invalidation forces a rescan.
func (s *Service) ScanCount() int64 {
	return atomic.LoadInt64(&s.scanCount)
}

// scan reads the posts directory and materializes a fresh collection.
// Files are processed in sorted filename order, so the duplicate-slug
// tie-break (first file wins, later file rejected) is deterministic.
func (s *Service) scan(ctx context.Context, render bool) ([]Post, error) {
	entries, err := os.ReadDir(s.postsDir)
	if err != nil {
		return nil, errors.ErrPostsDirUnreadable(s.postsDir, err)
	}

	atomic.AddInt64(&s.scanCount, 1)
	s.collector.Clear()

	bySlug := make(map[string]string) // slug -> source filename
	var posts []Post

	for _, entry := range entries {
		if entry.IsDir() || !isMarkdown(entry.Name()) || s.excluded(entry.Name()) {
			continue
		}

		post, perr := s.loadFile(entry.Name(), render)
		if perr != nil {
			s.collector.Add(errors.LoadError{File: entry.Name(), Err: perr})
			s.logger.Warn(ctx, perr, "Skipping unloadable post file", "file", entry.Name())
			continue
		}

		if prior, exists := bySlug[post.Slug]; exists {
			dup := errors.ErrDuplicateSlug(post.Slug, entry.Name(), prior)
			s.collector.Add(errors.LoadError{File: entry.Name(), Slug: post.Slug, Err: dup})
			s.logger.Warn(ctx, dup, "Skipping post with conflicting slug", "file", entry.Name())
			continue
		}

		bySlug[post.Slug] = entry.Name()
		posts = append(posts, *post)
	}

	// Date descending; filename ascending breaks ties deterministically
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].SourceFile < posts[j].SourceFile
	})

	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

func (s *Service) loadFile(name string, render bool) (*Post, error) {
	raw, err := os.ReadFile(filepath.Join(s.postsDir, name))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileUnreadable, "post file unreadable", err).WithFile(name)
	}

	fm, body, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, err
	}

	post := &Post{
		Slug:          SlugFromFilename(name),
		Title:         fm.Title,
		Date:          fm.Date,
		Excerpt:       fm.Excerpt,
		Tags:          fm.Tags,
		Modified:      fm.Modified,
		FormattedDate: formatDate(fm.Date),
		SourceFile:    name,
	}

	if render {
		html, rerr := s.renderer.Render([]byte(body))
		if rerr != nil {
			return nil, rerr
		}
		post.Content = html
	}

	return post, nil
}

func (s *Service) excluded(name string) bool {
	for _, pattern := range s.excludePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func isMarkdown(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".md" || ext == ".markdown"
}

package syndication

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/errors"
	"github.com/quillhost/quill/internal/logging"
)

// Syncer mirrors the posts directory into a remote record collection and
// back. A failed record never aborts the run; failures are collected and
// reported alongside the counts.
type Syncer struct {
	client     *Client
	did        string
	collection string
	postsDir   string
	logger     logging.Logger
}

// SyncResult summarizes a publish or pull run.
type SyncResult struct {
	Published int
	Deleted   int
	Pulled    int
	Skipped   int
	Errors    []errors.LoadError
}

// Failed reports whether any record failed during the run.
func (r *SyncResult) Failed() bool {
	return len(r.Errors) > 0
}

// NewSyncer creates a syncer for the given repository DID and collection.
func NewSyncer(client *Client, did, collection, postsDir string, logger logging.Logger) *Syncer {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	return &Syncer{
		client:     client,
		did:        did,
		collection: collection,
		postsDir:   postsDir,
		logger:     logger.WithComponent("syncer"),
	}
}

// Publish pushes every local post to the remote collection, keyed by slug,
// and deletes remote records with no local counterpart.
func (s *Syncer) Publish(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}
	collector := errors.NewErrorCollector()

	entries, err := os.ReadDir(s.postsDir)
	if err != nil {
		return nil, errors.ErrPostsDirUnreadable(s.postsDir, err)
	}

	local := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !isMarkdownFile(entry.Name()) {
			continue
		}

		path := filepath.Join(s.postsDir, entry.Name())
		slug := content.SlugFromFilename(entry.Name())
		local[slug] = true

		raw, err := os.ReadFile(path)
		if err != nil {
			collector.Add(errors.LoadError{File: path, Slug: slug,
				Err: errors.NewIOError(errors.ErrCodeFileUnreadable, "read failed", err)})
			continue
		}

		rec, err := RecordFromMarkdown(slug, raw)
		if err != nil {
			collector.Add(errors.LoadError{File: path, Slug: slug, Err: err})
			continue
		}

		if err := s.client.PutRecord(ctx, s.did, s.collection, slug, rec); err != nil {
			collector.Add(errors.LoadError{File: path, Slug: slug, Err: err})
			continue
		}

		result.Published++
		s.logger.Info(ctx, "published post", "slug", slug)
	}

	remote, err := s.client.ListRecords(ctx, s.did, s.collection)
	if err != nil {
		// Publishing succeeded; only the orphan sweep is lost.
		s.logger.Warn(ctx, err, "could not list remote records, skipping orphan cleanup")
		result.Errors = collector.LoadErrors()
		return result, nil
	}

	for _, lr := range remote {
		if lr.Value == nil {
			continue
		}
		slug := SlugForRecord(lr.Value)
		if local[slug] {
			continue
		}

		if err := s.client.DeleteRecord(ctx, s.did, s.collection, slug); err != nil {
			collector.Add(errors.LoadError{Slug: slug, Err: err})
			continue
		}

		result.Deleted++
		s.logger.Info(ctx, "deleted orphaned record", "slug", slug)
	}

	result.Errors = collector.LoadErrors()

	return result, nil
}

// Pull fetches every remote record and writes it back as a post file under
// outDir. Existing files are only overwritten when overwrite is set.
func (s *Syncer) Pull(ctx context.Context, outDir string, overwrite bool) (*SyncResult, error) {
	result := &SyncResult{}
	collector := errors.NewErrorCollector()

	remote, err := s.client.ListRecords(ctx, s.did, s.collection)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileUnreadable, "cannot create output directory", err).WithFile(outDir)
	}

	sort.Slice(remote, func(i, j int) bool { return remote[i].URI < remote[j].URI })

	for _, lr := range remote {
		if lr.Value == nil {
			continue
		}
		slug := SlugForRecord(lr.Value)
		path := filepath.Join(outDir, slug+".md")

		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				result.Skipped++
				continue
			}
		}

		raw, err := MarkdownFromRecord(lr.Value)
		if err != nil {
			collector.Add(errors.LoadError{Slug: slug, Err: err})
			continue
		}

		if err := os.WriteFile(path, raw, 0644); err != nil {
			collector.Add(errors.LoadError{File: path, Slug: slug,
				Err: errors.NewIOError(errors.ErrCodeFileUnreadable, "write failed", err)})
			continue
		}

		result.Pulled++
		s.logger.Info(ctx, "pulled post", "slug", slug, "path", path)
	}

	result.Errors = collector.LoadErrors()

	return result, nil
}

func isMarkdownFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	return ext == ".md" || ext == ".markdown"
}

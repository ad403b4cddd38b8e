package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhost/quill/internal/cache"
	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/markdown"
)

const goodPost = `---
title: Static Build
date: 2025-02-02
tags:
  - go
excerpt: Building sites ahead of time.
---
Body about **static** things.
`

const olderPost = `---
title: Second Post
date: 2024-06-01
tags:
  - testing
---
Another body.
`

func newTestBuilder(t *testing.T, withBadPost bool) (*Builder, string) {
	t.Helper()

	postsDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "dist")

	require.NoError(t, os.WriteFile(filepath.Join(postsDir, "static-build.md"), []byte(goodPost), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(postsDir, "second-post.md"), []byte(olderPost), 0644))
	if withBadPost {
		require.NoError(t, os.WriteFile(filepath.Join(postsDir, "broken.md"), []byte("not a post"), 0644))
	}

	cfg := &config.Config{
		Site: config.SiteConfig{
			Title:   "Build Test",
			BaseURL: "https://example.com",
			Author:  "Tester",
		},
		Content: config.ContentConfig{PostsDir: postsDir},
		Build:   config.BuildConfig{OutputDir: outDir, Clean: true},
	}

	tiers := &content.Tiers{
		Collection: cache.New[[]content.Post]("posts", time.Minute),
		Metadata:   cache.New[[]content.PostMeta]("metadata", time.Minute),
		BySlug:     cache.New[content.Post]("post", time.Minute),
	}
	svc := content.NewService(postsDir, tiers, markdown.NewRenderer(markdown.Options{}), nil, nil)

	builder, err := New(cfg, svc, nil, nil)
	require.NoError(t, err)

	return builder, outDir
}

func TestBuildWritesAllPages(t *testing.T) {
	builder, outDir := newTestBuilder(t, false)

	result, err := builder.Build(context.Background())
	require.NoError(t, err)

	// index, two posts, tag index, two tag pages, search, 404
	assert.Equal(t, 8, result.Pages)
	assert.Positive(t, result.Bytes)
	assert.Empty(t, result.Skipped)

	for _, rel := range []string{
		"index.html",
		"posts/static-build/index.html",
		"posts/second-post/index.html",
		"tags/index.html",
		"tags/go/index.html",
		"tags/testing/index.html",
		"search/index.html",
		"404.html",
		"feed.xml",
		"atom.xml",
		"sitemap.xml",
		"robots.txt",
		"search-index.json",
		"static/style.css",
	} {
		_, err := os.Stat(filepath.Join(outDir, rel))
		assert.NoError(t, err, rel)
	}
}

func TestBuildPostPageContent(t *testing.T) {
	builder, outDir := newTestBuilder(t, false)

	_, err := builder.Build(context.Background())
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(outDir, "posts", "static-build", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "<strong>static</strong>")
	assert.Contains(t, string(body), "Static Build")
	assert.NotContains(t, string(body), "new WebSocket")
}

func TestBuildSearchIndex(t *testing.T) {
	builder, outDir := newTestBuilder(t, false)

	_, err := builder.Build(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(outDir, "search-index.json"))
	require.NoError(t, err)

	var entries []searchEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, "static-build", entries[0].Slug)
	assert.Contains(t, entries[0].Text, "static things")
	assert.NotContains(t, entries[0].Text, "<strong>")

	// The search page consumes the index client-side, and the shipped
	// stylesheet covers chroma's class-mode markup.
	page, err := os.ReadFile(filepath.Join(outDir, "search", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "search-index.json")

	css, err := os.ReadFile(filepath.Join(outDir, "static", "style.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), ".chroma")
}

func TestBuildSkipsBrokenPost(t *testing.T) {
	builder, outDir := newTestBuilder(t, true)

	result, err := builder.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].File, "broken.md")

	_, err = os.Stat(filepath.Join(outDir, "posts", "broken"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildCleanRemovesStaleOutput(t *testing.T) {
	builder, outDir := newTestBuilder(t, false)

	require.NoError(t, os.MkdirAll(outDir, 0755))
	stale := filepath.Join(outDir, "stale.html")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	_, err := builder.Build(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestBuildMissingPostsDir(t *testing.T) {
	builder, _ := newTestBuilder(t, false)
	builder.posts = content.NewService("/nonexistent/posts", &content.Tiers{
		Collection: cache.New[[]content.Post]("posts", time.Minute),
		Metadata:   cache.New[[]content.PostMeta]("metadata", time.Minute),
		BySlug:     cache.New[content.Post]("post", time.Minute),
	}, markdown.NewRenderer(markdown.Options{}), nil, nil)

	_, err := builder.Build(context.Background())
	require.Error(t, err)
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhost/quill/internal/analytics"
	"github.com/quillhost/quill/internal/cache"
	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/health"
	"github.com/quillhost/quill/internal/markdown"
)

const testPost = `---
title: Hello World
date: 2025-04-01
tags:
  - go
excerpt: A first post.
---
# Hello

This is the **body**.
`

const secondPost = `---
title: Older Entry
date: 2024-12-25
tags:
  - testing
---
Older content about gophers.
`

type fakeViews struct {
	counts map[string]int64
	fail   bool
}

func (f *fakeViews) Increment(_ context.Context, slug string) (int64, error) {
	if f.fail {
		return 0, assert.AnError
	}
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[slug]++
	return f.counts[slug], nil
}

func (f *fakeViews) Get(_ context.Context, slug string) (int64, error) {
	return f.counts[slug], nil
}

func (f *fakeViews) All(_ context.Context) (map[string]int64, error) {
	if f.fail {
		return nil, assert.AnError
	}
	return f.counts, nil
}

func newTestServer(t *testing.T, views *fakeViews) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello-world.md"), []byte(testPost), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "older-entry.md"), []byte(secondPost), 0644))

	cfg := &config.Config{
		Site: config.SiteConfig{
			Title:       "Test Blog",
			Description: "A blog under test",
			BaseURL:     "https://example.com",
			Author:      "Tester",
			Language:    "en",
		},
		Server: config.ServerConfig{
			Port:        3000,
			Host:        "localhost",
			Environment: "development",
			LiveReload:  true,
		},
		Content: config.ContentConfig{PostsDir: dir},
	}

	tiers := &content.Tiers{
		Collection: cache.New[[]content.Post]("posts", time.Minute),
		Metadata:   cache.New[[]content.PostMeta]("metadata", time.Minute),
		BySlug:     cache.New[content.Post]("post", time.Minute),
	}

	var viewSource content.ViewSource
	if views != nil {
		viewSource = views
	}
	svc := content.NewService(dir, tiers, markdown.NewRenderer(markdown.Options{}), viewSource, nil)

	sources := []health.StatsSource{tiers.Collection, tiers.Metadata, tiers.BySlug}
	checker := health.NewService(dir, sources, nil)

	var counter analytics.ViewCounter
	if views != nil {
		counter = views
	}

	srv, err := New(cfg, svc, counter, checker, nil, nil)
	require.NoError(t, err)

	return srv, dir
}

func doRequest(srv *Server, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	srv.routes(mux)
	handler := srv.withMiddleware(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	return rec
}

func TestIndexListsPostsNewestFirst(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Hello World")
	assert.Contains(t, body, "Older Entry")
	assert.Less(t, strings.Index(body, "Hello World"), strings.Index(body, "Older Entry"))
}

func TestPostPageRendersBody(t *testing.T) {
	views := &fakeViews{}
	srv, _ := newTestServer(t, views)

	rec := doRequest(srv, http.MethodGet, "/posts/hello-world")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<strong>body</strong>")
	assert.Contains(t, body, "Hello World")
	assert.Equal(t, int64(1), views.counts["hello-world"])
}

func TestPostPageUnknownSlug(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/posts/no-such-post")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")
}

func TestPostPageSurvivesViewCounterFailure(t *testing.T) {
	srv, _ := newTestServer(t, &fakeViews{fail: true})

	rec := doRequest(srv, http.MethodGet, "/posts/hello-world")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTagsPageGroupsByTopic(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/tags")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "go")
	assert.Contains(t, body, "testing")
}

func TestTagPageFiltersPosts(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/tags/go")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello World")
	assert.NotContains(t, rec.Body.String(), "Older Entry")
}

func TestTagPageUnknownTag(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/tags/nonexistent")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchFindsBodyText(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/search?q=gophers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Older Entry")
	assert.NotContains(t, rec.Body.String(), "Hello World</a>")
}

func TestSearchEmptyQueryShowsForm(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/search")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
}

func TestFeedEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rss := doRequest(srv, http.MethodGet, "/feed.xml")
	require.Equal(t, http.StatusOK, rss.Code)
	assert.Contains(t, rss.Header().Get("Content-Type"), "rss")
	assert.Contains(t, rss.Body.String(), "Hello World")

	atom := doRequest(srv, http.MethodGet, "/atom.xml")
	require.Equal(t, http.StatusOK, atom.Code)
	assert.Contains(t, atom.Header().Get("Content-Type"), "atom")

	sitemap := doRequest(srv, http.MethodGet, "/sitemap.xml")
	require.Equal(t, http.StatusOK, sitemap.Code)
	assert.Contains(t, sitemap.Body.String(), "https://example.com/posts/hello-world")

	robots := doRequest(srv, http.MethodGet, "/robots.txt")
	require.Equal(t, http.StatusOK, robots.Code)
	assert.Contains(t, robots.Body.String(), "Sitemap: https://example.com/sitemap.xml")
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.NotEmpty(t, report.Caches)
}

func TestAtprotoDIDDisabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/.well-known/atproto-did")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAtprotoDIDEnabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.cfg.Syndication = config.SyndicationConfig{Enabled: true, DID: "did:plc:abc123"}

	rec := doRequest(srv, http.MethodGet, "/.well-known/atproto-did")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "did:plc:abc123", strings.TrimSpace(rec.Body.String()))
}

func TestUnknownRouteReturns404Page(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/definitely/not/here")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")
}

func TestRequestCounterRecordsFailures(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	doRequest(srv, http.MethodGet, "/")
	doRequest(srv, http.MethodGet, "/posts/missing")

	stats := srv.RequestCounter().Snapshot()
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(0), stats.Errors)
}

func TestLiveReloadScriptOnlyInDevelopment(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/")
	assert.Contains(t, rec.Body.String(), "new WebSocket")

	srv.cfg.Server.LiveReload = false
	rec = doRequest(srv, http.MethodGet, "/")
	assert.NotContains(t, rec.Body.String(), "new WebSocket")
}

func TestWebSocketRejectsMissingOrigin(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/ws")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx))
}

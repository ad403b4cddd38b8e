package feeds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
)

var testSite = config.SiteConfig{
	Title:       "A Quiet Corner",
	Description: "Notes on software",
	BaseURL:     "https://blog.example.com/",
	Author:      "Jordan Blake",
}

func testPosts() []content.PostMeta {
	return []content.PostMeta{
		{
			Slug:     "newer-post",
			Title:    "Newer Post",
			Excerpt:  "The newer one.",
			Date:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			Modified: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			Slug:  "older-post",
			Title: "Older Post",
			Date:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestPostURL(t *testing.T) {
	assert.Equal(t, "https://blog.example.com/posts/my-slug", PostURL(testSite, "my-slug"))

	noSlash := testSite
	noSlash.BaseURL = "https://blog.example.com"
	assert.Equal(t, "https://blog.example.com/posts/my-slug", PostURL(noSlash, "my-slug"))
}

func TestBuildFeed(t *testing.T) {
	feed := BuildFeed(testSite, testPosts())

	assert.Equal(t, "A Quiet Corner", feed.Title)
	assert.Equal(t, "Notes on software", feed.Description)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Newer Post", feed.Items[0].Title)
	assert.Equal(t, "https://blog.example.com/posts/newer-post", feed.Items[0].Link.Href)
	assert.Equal(t, feed.Items[0].Updated, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC))
	// Feed-level updated mirrors the newest post
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), feed.Updated)
}

func TestRSSOutput(t *testing.T) {
	out, err := RSS(testSite, testPosts())
	require.NoError(t, err)

	assert.Contains(t, out, "<rss")
	assert.Contains(t, out, "Newer Post")
	assert.Contains(t, out, "https://blog.example.com/posts/older-post")
}

func TestAtomOutput(t *testing.T) {
	out, err := Atom(testSite, testPosts())
	require.NoError(t, err)

	assert.Contains(t, out, "<feed")
	assert.Contains(t, out, "Older Post")
}

func TestSitemap(t *testing.T) {
	out, err := Sitemap(testSite, testPosts())
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `<?xml`)
	assert.Contains(t, s, "http://www.sitemaps.org/schemas/sitemap/0.9")
	assert.Contains(t, s, "<loc>https://blog.example.com/</loc>")
	assert.Contains(t, s, "<loc>https://blog.example.com/tags</loc>")
	assert.Contains(t, s, "<loc>https://blog.example.com/posts/newer-post</loc>")
	// Modified date wins over publish date for lastmod
	assert.Contains(t, s, "<lastmod>2025-05-10</lastmod>")
	assert.Contains(t, s, "<lastmod>2025-01-01</lastmod>")
}

func TestSitemapEmptyCollection(t *testing.T) {
	out, err := Sitemap(testSite, nil)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<loc>https://blog.example.com/</loc>")
	assert.NotContains(t, s, "/posts/")
}

func TestRobots(t *testing.T) {
	out := string(Robots(testSite))

	assert.Contains(t, out, "User-agent: *")
	assert.Contains(t, out, "Sitemap: https://blog.example.com/sitemap.xml")
}

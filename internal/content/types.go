// Package content is the core of Quill: it loads markdown posts from disk,
// parses and renders them, derives tag and topic aggregations, and serves
// reads through invalidation-coupled cache tiers.
package content

import (
	"strings"
	"time"
)

// Post is a fully rendered blog post. Slug is the primary key, derived
// deterministically from the source filename. Each load produces a fresh
// immutable collection; posts are never mutated in place.
type Post struct {
	Slug          string
	Title         string
	Date          time.Time
	Excerpt       string
	Tags          []string
	Modified      time.Time
	Content       string // rendered HTML
	FormattedDate string
	SourceFile    string
}

// Meta returns the render-free projection of the post.
func (p *Post) Meta() PostMeta {
	return PostMeta{
		Slug:          p.Slug,
		Title:         p.Title,
		Date:          p.Date,
		Excerpt:       p.Excerpt,
		Tags:          p.Tags,
		Modified:      p.Modified,
		FormattedDate: p.FormattedDate,
		SourceFile:    p.SourceFile,
	}
}

// HasTag reports whether the post carries the given tag, case-insensitively.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// PostMeta is Post without the rendered content, for listing and index views
// that should not pay full-render cost. ViewCount is merged from the
// analytics collaborator; a missing entry is 0.
type PostMeta struct {
	Slug          string
	Title         string
	Date          time.Time
	Excerpt       string
	Tags          []string
	Modified      time.Time
	FormattedDate string
	SourceFile    string
	ViewCount     int64
}

// TagInfo is the derived tag→posts aggregation. Posts are back-references
// into the current load cycle's collection, in load order.
type TagInfo struct {
	Name  string
	Count int
	Posts []PostMeta
}

// formatDate renders the human-readable date used on post pages.
func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

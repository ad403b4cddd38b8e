// Package feeds produces the syndication surfaces of the site: RSS and Atom
// feeds, the XML sitemap, and robots.txt.
package feeds

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
)

// BuildFeed assembles the site feed from post metadata, which must already
// be in date-descending order.
func BuildFeed(site config.SiteConfig, posts []content.PostMeta) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       site.Title,
		Link:        &feeds.Link{Href: site.BaseURL},
		Description: site.Description,
		Author:      &feeds.Author{Name: site.Author},
	}

	if len(posts) > 0 {
		feed.Updated = posts[0].Date
	}

	for _, post := range posts {
		item := &feeds.Item{
			Id:          PostURL(site, post.Slug),
			Title:       post.Title,
			Link:        &feeds.Link{Href: PostURL(site, post.Slug)},
			Description: post.Excerpt,
			Created:     post.Date,
		}
		if !post.Modified.IsZero() {
			item.Updated = post.Modified
		}
		feed.Items = append(feed.Items, item)
	}

	return feed
}

// RSS renders the feed as RSS 2.0.
func RSS(site config.SiteConfig, posts []content.PostMeta) (string, error) {
	return BuildFeed(site, posts).ToRss()
}

// Atom renders the feed as Atom.
func Atom(site config.SiteConfig, posts []content.PostMeta) (string, error) {
	return BuildFeed(site, posts).ToAtom()
}

// PostURL returns a post's canonical URL.
func PostURL(site config.SiteConfig, slug string) string {
	return strings.TrimSuffix(site.BaseURL, "/") + "/posts/" + slug
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

// Sitemap renders the XML sitemap: the home page, the tag index, and every
// post. A post's lastmod prefers the modified date over the publish date.
func Sitemap(site config.SiteConfig, posts []content.PostMeta) ([]byte, error) {
	base := strings.TrimSuffix(site.BaseURL, "/")

	set := urlset{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: base + "/", ChangeFreq: "weekly"},
			{Loc: base + "/tags", ChangeFreq: "weekly"},
		},
	}

	for _, post := range posts {
		entry := sitemapURL{
			Loc:        PostURL(site, post.Slug),
			ChangeFreq: "monthly",
			LastMod:    post.Date.Format(time.DateOnly),
		}
		if !post.Modified.IsZero() {
			entry.LastMod = post.Modified.Format(time.DateOnly)
		}
		set.URLs = append(set.URLs, entry)
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), out...), nil
}

// Robots renders robots.txt pointing crawlers at the sitemap.
func Robots(site config.SiteConfig) []byte {
	base := strings.TrimSuffix(site.BaseURL, "/")
	return []byte(fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", base))
}

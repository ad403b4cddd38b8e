package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/errors"
	"github.com/quillhost/quill/internal/feeds"
	"github.com/quillhost/quill/internal/health"
)

func (s *Server) common() pageCommon {
	return pageCommon{
		Site:       s.cfg.Site,
		Year:       time.Now().Year(),
		LiveReload: s.cfg.Server.LiveReload,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.LoadPostsMetadata(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, http.StatusOK, "index", indexData{pageCommon: s.common(), Posts: posts})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	post, err := s.posts.GetPostBySlug(r.Context(), slug)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	var viewCount int64
	if s.views != nil {
		// View tracking is best-effort; a broken counter never blocks
		// the page.
		viewCount, err = s.views.Increment(r.Context(), slug)
		if err != nil {
			s.logger.Warn(r.Context(), err, "view count update failed", "slug", slug)
			viewCount = 0
		}
	}

	s.render(w, http.StatusOK, "post", postData{
		pageCommon: s.common(),
		Post:       post,
		Body:       template.HTML(post.Content),
		ViewCount:  viewCount,
	})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.posts.GetAllTags(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	grouped := content.GroupTagsByTopic(tags)
	var topics []topicGroup
	for _, name := range content.TopicOrder(grouped) {
		topics = append(topics, topicGroup{Name: name, Tags: grouped[name]})
	}

	s.render(w, http.StatusOK, "tags", tagsData{pageCommon: s.common(), Topics: topics})
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")

	posts, err := s.posts.LoadPosts(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	var matched []content.PostMeta
	for i := range posts {
		if posts[i].HasTag(tag) {
			matched = append(matched, posts[i].Meta())
		}
	}

	if len(matched) == 0 {
		s.renderNotFound(w, "No posts tagged \""+tag+"\".")
		return
	}

	s.render(w, http.StatusOK, "tag", tagData{pageCommon: s.common(), Tag: tag, Posts: matched})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	data := searchData{pageCommon: s.common(), Query: query}
	if query != "" {
		results, err := s.posts.Search(r.Context(), query)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		for i := range results {
			data.Posts = append(data.Posts, results[i].Meta())
		}
	}

	s.render(w, http.StatusOK, "search", data)
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	s.serveFeed(w, r, "application/rss+xml", feeds.RSS)
}

func (s *Server) handleAtom(w http.ResponseWriter, r *http.Request) {
	s.serveFeed(w, r, "application/atom+xml", feeds.Atom)
}

func (s *Server) serveFeed(w http.ResponseWriter, r *http.Request, contentType string, build feedBuilder) {
	posts, err := s.posts.LoadPostsMetadata(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	body, err := build(s.cfg.Site, posts)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

type feedBuilder func(site config.SiteConfig, posts []content.PostMeta) (string, error)

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.LoadPostsMetadata(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	body, err := feeds.Sitemap(s.cfg.Site, posts)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

func (s *Server) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(feeds.Robots(s.cfg.Site))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		http.Error(w, "health checks not configured", http.StatusServiceUnavailable)
		return
	}

	report := s.checker.Check(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error(r.Context(), err, "health report encode failed")
	}
}

// handleAtprotoDID serves the DID document pointer used to verify domain
// ownership for syndication.
func (s *Server) handleAtprotoDID(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Syndication.Enabled || s.cfg.Syndication.DID == "" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.cfg.Syndication.DID))
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.renderNotFound(w, "That page does not exist.")
}

func (s *Server) renderNotFound(w http.ResponseWriter, message string) {
	s.render(w, http.StatusNotFound, "notfound", notFoundData{pageCommon: s.common(), Message: message})
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.IsNotFound(err) {
		s.renderNotFound(w, "That post does not exist.")
		return
	}

	s.logger.Error(r.Context(), err, "request failed", "path", r.URL.Path)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// pageCommon carries the fields every page template can reference.
type pageCommon struct {
	Site       config.SiteConfig
	Year       int
	LiveReload bool
}

type indexData struct {
	pageCommon
	Posts []content.PostMeta
}

type postData struct {
	pageCommon
	Post      *content.Post
	Body      template.HTML
	ViewCount int64
}

type topicGroup struct {
	Name string
	Tags []content.TagInfo
}

type tagsData struct {
	pageCommon
	Topics []topicGroup
}

type tagData struct {
	pageCommon
	Tag   string
	Posts []content.PostMeta
}

type searchData struct {
	pageCommon
	Query string
	Posts []content.PostMeta
}

type notFoundData struct {
	pageCommon
	Message string
}

// loadTemplates parses each page against the shared layout. Pages are
// parsed separately so their "content" blocks do not collide.
func loadTemplates() (map[string]*template.Template, error) {
	pages := []string{"index", "post", "tags", "tag", "search", "notfound"}
	out := make(map[string]*template.Template, len(pages))

	for _, name := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		out[name] = t
	}

	return out, nil
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data interface{}) {
	t, ok := s.templates[page]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error(context.Background(), err, "template render failed", "page", page)
	}
}

package server

import (
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
)

// StaticRenderer renders the same pages the HTTP server serves, but to a
// writer, for the static build. Live reload is never injected.
type StaticRenderer struct {
	templates map[string]*template.Template
	site      config.SiteConfig
}

// NewStaticRenderer parses the embedded page templates for offline use.
func NewStaticRenderer(site config.SiteConfig) (*StaticRenderer, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &StaticRenderer{templates: templates, site: site}, nil
}

func (r *StaticRenderer) common() pageCommon {
	return pageCommon{Site: r.site, Year: time.Now().Year()}
}

func (r *StaticRenderer) execute(w io.Writer, page string, data interface{}) error {
	return r.templates[page].ExecuteTemplate(w, "layout", data)
}

// Index renders the front page.
func (r *StaticRenderer) Index(w io.Writer, posts []content.PostMeta) error {
	return r.execute(w, "index", indexData{pageCommon: r.common(), Posts: posts})
}

// Post renders a single post page.
func (r *StaticRenderer) Post(w io.Writer, post *content.Post, viewCount int64) error {
	return r.execute(w, "post", postData{
		pageCommon: r.common(),
		Post:       post,
		Body:       template.HTML(post.Content),
		ViewCount:  viewCount,
	})
}

// Tags renders the tag index grouped by topic.
func (r *StaticRenderer) Tags(w io.Writer, tags []content.TagInfo) error {
	grouped := content.GroupTagsByTopic(tags)
	var topics []topicGroup
	for _, name := range content.TopicOrder(grouped) {
		topics = append(topics, topicGroup{Name: name, Tags: grouped[name]})
	}

	return r.execute(w, "tags", tagsData{pageCommon: r.common(), Topics: topics})
}

// Tag renders a single tag's post list.
func (r *StaticRenderer) Tag(w io.Writer, tag string, posts []content.PostMeta) error {
	return r.execute(w, "tag", tagData{pageCommon: r.common(), Tag: tag, Posts: posts})
}

// Search renders the search page shell. The static build pairs it with a
// JSON index queried client-side.
func (r *StaticRenderer) Search(w io.Writer) error {
	return r.execute(w, "search", searchData{pageCommon: r.common()})
}

// NotFound renders the 404 page.
func (r *StaticRenderer) NotFound(w io.Writer) error {
	return r.execute(w, "notfound", notFoundData{
		pageCommon: r.common(),
		Message:    "That page does not exist.",
	})
}

// Assets exposes the embedded static files for copying into the build
// output.
func Assets() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

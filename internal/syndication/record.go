// Package syndication publishes posts to a federated document service
// speaking an XRPC-style record API, and parses records back into post
// files. The core produces well-formed records and classifies transport
// failures as retryable; retries themselves are the caller's concern.
package syndication

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/errors"
	"github.com/quillhost/quill/internal/frontmatter"
)

// RecordType identifies the document lexicon used for blog entries.
const RecordType = "com.whtwnd.blog.entry"

// Record is the wire form of a syndicated post. Content carries the
// markdown source, not rendered HTML, so the mapping is reversible.
type Record struct {
	Type      string     `json:"$type"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Path      string     `json:"path"`
	Content   string     `json:"content"`
	Excerpt   string     `json:"excerpt,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
}

// RecordFromMarkdown builds a record from a post source file. The slug
// doubles as the record key and the site path segment.
func RecordFromMarkdown(slug string, raw []byte) (*Record, error) {
	fm, body, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Type:      RecordType,
		Title:     fm.Title,
		CreatedAt: fm.Date,
		Path:      "/posts/" + slug,
		Content:   body,
		Excerpt:   fm.Excerpt,
		Tags:      fm.Tags,
	}
	if fm.HasModified() {
		modified := fm.Modified
		rec.UpdatedAt = &modified
	}

	return rec, nil
}

// MarkdownFromRecord reproduces a frontmatter+body post file from a record.
// Only the fields the mapping supports round-trip; rendered HTML never does.
func MarkdownFromRecord(rec *Record) ([]byte, error) {
	if rec.Title == "" {
		return nil, errors.NewValidationError(errors.ErrCodeRecordInvalid, "record has no title")
	}
	if rec.CreatedAt.IsZero() {
		return nil, errors.NewValidationError(errors.ErrCodeRecordInvalid, "record has no creation time")
	}

	fields := yaml.Node{Kind: yaml.MappingNode}
	addScalar(&fields, "title", rec.Title)
	addScalar(&fields, "date", rec.CreatedAt.Format(time.DateOnly))
	if len(rec.Tags) > 0 {
		addSequence(&fields, "tags", rec.Tags)
	}
	if rec.Excerpt != "" {
		addScalar(&fields, "excerpt", rec.Excerpt)
	}
	if rec.UpdatedAt != nil {
		addScalar(&fields, "modified", rec.UpdatedAt.Format(time.DateOnly))
	}

	block, err := yaml.Marshal(&fields)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "frontmatter encode failed", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(block)
	sb.WriteString("---\n")
	sb.WriteString(rec.Content)

	return []byte(sb.String()), nil
}

// SlugForRecord derives the record key for a post.
func SlugForRecord(rec *Record) string {
	if rec.Path != "" {
		if idx := strings.LastIndex(rec.Path, "/"); idx >= 0 {
			return rec.Path[idx+1:]
		}
	}
	return content.Slugify(rec.Title)
}

func addScalar(m *yaml.Node, key, value string) {
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value},
	)
}

func addSequence(m *yaml.Node, key string, values []string) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		seq,
	)
}

// recordKeyValid rejects keys that would break the record URI scheme.
func recordKeyValid(rkey string) error {
	if rkey == "" || len(rkey) > 512 {
		return errors.NewValidationError(errors.ErrCodeRecordInvalid, fmt.Sprintf("invalid record key %q", rkey))
	}
	return nil
}

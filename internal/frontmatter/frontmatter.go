// Package frontmatter extracts and validates the YAML metadata block that
// leads a markdown post file.
//
// A frontmatter block is delimited by a "---" marker line at the very start
// of the file and a matching closing marker. The interior is parsed as YAML
// and validated against the post schema: title and date are required, tags,
// excerpt, and modified are optional. Validation reports every violated
// field at once rather than stopping at the first.
package frontmatter

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillhost/quill/internal/errors"
)

const delimiter = "---"

// Frontmatter is the validated metadata of a post. Zero values on optional
// fields mean the field was absent.
type Frontmatter struct {
	Title    string
	Date     time.Time
	Tags     []string
	Excerpt  string
	Modified time.Time
}

// HasModified reports whether the optional modified field was present.
func (fm *Frontmatter) HasModified() bool {
	return !fm.Modified.IsZero()
}

// Parse splits raw file text into validated frontmatter and the markdown
// body. It is a pure transform: no I/O, no partial state on failure.
func Parse(raw []byte) (*Frontmatter, string, error) {
	block, body, err := split(string(raw))
	if err != nil {
		return nil, "", err
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, "", errors.NewParseError(
			errors.ErrCodeFrontmatterSyntax,
			"frontmatter is not valid YAML",
			err,
		)
	}

	fm, verr := validate(doc)
	if verr != nil {
		return nil, "", verr
	}

	return fm, body, nil
}

// split locates the delimiter block. The opening marker must be the first
// line of the file.
func split(text string) (block, body string, err error) {
	// Tolerate a UTF-8 BOM ahead of the opening marker
	text = strings.TrimPrefix(text, "\uFEFF")

	if !strings.HasPrefix(text, delimiter+"\n") && !strings.HasPrefix(text, delimiter+"\r\n") {
		return "", "", errors.NewValidationError(
			errors.ErrCodeFrontmatterShape,
			"file does not begin with a frontmatter block",
		)
	}

	rest := text[len(delimiter):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	idx := findClosing(rest)
	if idx < 0 {
		return "", "", errors.NewValidationError(
			errors.ErrCodeFrontmatterShape,
			"frontmatter block is not closed",
		)
	}

	block = rest[:idx]
	body = rest[idx:]
	// Drop the closing marker line from the body
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}

	return block, body, nil
}

// findClosing returns the byte offset of the closing marker line in rest,
// or -1 when absent.
func findClosing(rest string) int {
	offset := 0
	for offset <= len(rest) {
		lineEnd := strings.IndexByte(rest[offset:], '\n')
		var line string
		if lineEnd < 0 {
			line = rest[offset:]
			lineEnd = len(rest) - offset
		} else {
			line = rest[offset : offset+lineEnd]
		}

		if strings.TrimRight(line, "\r") == delimiter {
			return offset
		}

		offset += lineEnd + 1
	}

	return -1
}

// validate performs schema validation over the loose YAML document and builds
// the typed result, enumerating every violated constraint.
func validate(doc map[string]interface{}) (*Frontmatter, error) {
	vec := &errors.ValidationErrorCollection{}
	fm := &Frontmatter{}

	title, ok := doc["title"]
	if !ok {
		vec.AddField("title", nil, "required field is missing")
	} else if s, isString := title.(string); !isString || strings.TrimSpace(s) == "" {
		vec.AddField("title", title, "must be a non-empty string")
	} else {
		fm.Title = strings.TrimSpace(s)
	}

	date, ok := doc["date"]
	if !ok {
		vec.AddField("date", nil, "required field is missing")
	} else if parsed, derr := parseDate(date); derr != nil {
		vec.AddField("date", date, "must be a parseable date")
	} else {
		fm.Date = parsed
	}

	if tags, ok := doc["tags"]; ok {
		parsed, terr := parseTags(tags)
		if terr != nil {
			vec.AddField("tags", tags, "must be a sequence of strings")
		} else {
			fm.Tags = parsed
		}
	}

	if excerpt, ok := doc["excerpt"]; ok {
		if s, isString := excerpt.(string); isString {
			fm.Excerpt = s
		} else {
			vec.AddField("excerpt", excerpt, "must be a string")
		}
	}

	if modified, ok := doc["modified"]; ok {
		if parsed, derr := parseDate(modified); derr != nil {
			vec.AddField("modified", modified, "must be a parseable date")
		} else {
			fm.Modified = parsed
		}
	}

	if vec.HasErrors() {
		return nil, vec.ToQuillError()
	}

	return fm, nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseDate accepts the shapes yaml.v3 produces for date-like scalars:
// time.Time for unquoted timestamps, string otherwise.
func parseDate(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		var lastErr error
		for _, layout := range dateLayouts {
			t, err := time.Parse(layout, strings.TrimSpace(v))
			if err == nil {
				return t, nil
			}
			lastErr = err
		}
		return time.Time{}, lastErr
	default:
		return time.Time{}, errors.NewValidationError(
			errors.ErrCodeFrontmatterShape,
			"unsupported date value",
		)
	}
}

func parseTags(value interface{}) ([]string, error) {
	seq, ok := value.([]interface{})
	if !ok {
		return nil, errors.NewValidationError(
			errors.ErrCodeFrontmatterShape,
			"tags is not a sequence",
		)
	}

	tags := make([]string, 0, len(seq))
	for _, item := range seq {
		s, isString := item.(string)
		if !isString {
			return nil, errors.NewValidationError(
				errors.ErrCodeFrontmatterShape,
				"tag is not a string",
			)
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}

	return tags, nil
}

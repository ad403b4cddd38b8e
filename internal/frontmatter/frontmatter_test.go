package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhost/quill/internal/errors"
)

const validPost = `---
title: "My First Post"
date: 2025-03-15
tags:
  - go
  - caching
excerpt: "A short summary."
modified: 2025-04-01
---
# Heading

Body text here.
`

func TestParseValidPost(t *testing.T) {
	fm, body, err := Parse([]byte(validPost))
	require.NoError(t, err)

	assert.Equal(t, "My First Post", fm.Title)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), fm.Date)
	assert.Equal(t, []string{"go", "caching"}, fm.Tags)
	assert.Equal(t, "A short summary.", fm.Excerpt)
	assert.True(t, fm.HasModified())
	assert.Contains(t, body, "# Heading")
	assert.NotContains(t, body, "---")
}

func TestParseMinimalPost(t *testing.T) {
	raw := "---\ntitle: Minimal\ndate: 2025-01-01\n---\nbody\n"

	fm, body, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Minimal", fm.Title)
	assert.Empty(t, fm.Tags)
	assert.Empty(t, fm.Excerpt)
	assert.False(t, fm.HasModified())
	assert.Equal(t, "body\n", body)
}

func TestParseQuotedDateString(t *testing.T) {
	raw := "---\ntitle: Quoted\ndate: \"2025-02-28\"\n---\n"

	fm, _, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), fm.Date)
}

func TestParseCRLFDelimiters(t *testing.T) {
	raw := "---\r\ntitle: Windows\r\ndate: 2025-01-01\r\n---\r\nbody\r\n"

	fm, body, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Windows", fm.Title)
	assert.Equal(t, "body\r\n", body)
}

func TestParseMissingBlock(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no block at all", "# Just markdown\n"},
		{"marker not at start", "\n---\ntitle: Late\ndate: 2025-01-01\n---\n"},
		{"unclosed block", "---\ntitle: Open\ndate: 2025-01-01\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	raw := "---\ntitle: [unterminated\ndate: 2025-01-01\n---\n"

	_, _, err := Parse([]byte(raw))
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))
}

func TestParseEnumeratesAllViolations(t *testing.T) {
	raw := "---\ntags: notalist\nexcerpt: 42\n---\nbody\n"

	_, _, err := Parse([]byte(raw))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	// Every violated field is reported at once: missing title, missing date,
	// malformed tags, malformed excerpt.
	msg := err.Error()
	assert.Contains(t, msg, "title")
	assert.Contains(t, msg, "date")
	assert.Contains(t, msg, "tags")
	assert.Contains(t, msg, "excerpt")
}

func TestParseFieldValidation(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"empty title", "---\ntitle: \"  \"\ndate: 2025-01-01\n---\n", "title"},
		{"numeric title", "---\ntitle: 42\ndate: 2025-01-01\n---\n", "title"},
		{"bad date", "---\ntitle: T\ndate: someday\n---\n", "date"},
		{"bad modified", "---\ntitle: T\ndate: 2025-01-01\nmodified: notadate\n---\n", "modified"},
		{"non-string tag", "---\ntitle: T\ndate: 2025-01-01\ntags:\n  - 7\n---\n", "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseBlankTagsAreDropped(t *testing.T) {
	raw := "---\ntitle: T\ndate: 2025-01-01\ntags:\n  - go\n  - \"  \"\n---\n"

	fm, _, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, fm.Tags)
}

func TestParseBOMTolerated(t *testing.T) {
	raw := "\uFEFF---\ntitle: BOM\ndate: 2025-01-01\n---\nbody\n"

	fm, _, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "BOM", fm.Title)
}

func TestParseIsPure(t *testing.T) {
	raw := []byte(validPost)
	first, _, err := Parse(raw)
	require.NoError(t, err)

	second, _, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

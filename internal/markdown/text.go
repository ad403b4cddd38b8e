package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText strips an HTML fragment down to its visible text. Search
// matches against this rather than raw markup so tag names and attributes
// never satisfy a query.
func ExtractText(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var sb strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return collapseWhitespace(sb.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isInvisible(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isInvisible(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func isInvisible(tag string) bool {
	switch tag {
	case "script", "style", "noscript":
		return true
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

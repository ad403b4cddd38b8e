package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent decomposes characters and strips combining marks, so "Café" and
// "Cafe" produce the same slug.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a URL-safe identifier: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, leading and trailing
// hyphens stripped.
func Slugify(s string) string {
	if flat, _, err := transform.String(deaccent, s); err == nil {
		s = flat
	}

	s = strings.ToLower(s)

	var sb strings.Builder
	sb.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}

	return sb.String()
}

// SlugFromFilename derives a slug from a post's base filename, dropping the
// markdown extension first.
func SlugFromFilename(name string) string {
	name = strings.TrimSuffix(name, ".markdown")
	name = strings.TrimSuffix(name, ".md")
	return Slugify(name)
}

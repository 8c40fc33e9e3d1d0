package reconcile

import (
	"regexp"
	"strings"
)

const maxSlugLength = 255

var (
	disallowedCharsRE = regexp.MustCompile(`[^a-z0-9 -]`)
	whitespaceRunRE   = regexp.MustCompile(`\s+`)
	dashRunRE         = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe slug: lowercase, strip everything outside
// [a-z0-9 -], collapse whitespace to a single dash, collapse repeated
// dashes, trim leading/trailing dashes, truncate to 255 bytes.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = disallowedCharsRE.ReplaceAllString(s, "")
	s = whitespaceRunRE.ReplaceAllString(s, "-")
	s = dashRunRE.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
		s = strings.TrimRight(s, "-")
	}
	return s
}

package sanitize

import "github.com/microcosm-cc/bluemonday"

// AllowlistPolicy returns the bluemonday policy applied by
// SanitizeAllowlisted. The regex pipeline above is a best-effort token
// filter, not a parser, so a DOM-aware allowlist pass catches anything
// it missed (stray attributes, unclosed tags) before body_html reaches
// the store.
//
// The policy allows exactly the tags/attributes the markdown pipeline
// emits: <strong>, <em>, <del>, <code>, <pre>, <br>, <a href rel
// target>, and <img src width height>.
func AllowlistPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong", "em", "del", "code", "pre", "br")
	p.AllowAttrs("href", "rel", "target").OnElements("a")
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("src", "width", "height").OnElements("img")
	p.AllowURLSchemes("http", "https")
	return p
}

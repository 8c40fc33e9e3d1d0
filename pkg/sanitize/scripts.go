package sanitize

import "regexp"

var (
	// (?is) makes . match newlines and the match case-insensitive; the
	// non-greedy body keeps multiple <script> blocks from collapsing
	// into one greedy match.
	scriptTagRE = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	jsProtoRE   = regexp.MustCompile(`(?i)javascript:`)
	eventAttrRE = regexp.MustCompile(`(?i) on\w+=`)
)

// neutralizeScripts strips <script>...</script> blocks and defangs
// javascript: URLs and inline event-handler attributes.
// hadScript reports whether any <script> block was found.
func neutralizeScripts(text string) (string, bool) {
	hadScript := scriptTagRE.MatchString(text)
	text = scriptTagRE.ReplaceAllString(text, "")
	text = jsProtoRE.ReplaceAllString(text, "javascript-removed:")
	text = eventAttrRE.ReplaceAllString(text, " data-removed-event=")
	return text, hadScript
}

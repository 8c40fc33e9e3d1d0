package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	codeBlockRE     = regexp.MustCompile(`(?s)` + "```" + `(.*?)` + "```")
	boldRE          = regexp.MustCompile(`(?s)\*\*(.+?)\*\*`)
	italicRE        = regexp.MustCompile(`(?s)\*(.+?)\*`)
	strikeRE        = regexp.MustCompile(`(?s)~~(.+?)~~`)
	inlineCodeRE    = regexp.MustCompile(`(?s)` + "`" + `(.+?)` + "`")
	existingPreRE   = regexp.MustCompile(`(?s)<pre><code>.*?</code></pre>`)
	existingAnchorRE = regexp.MustCompile(`<a\s[^>]*>.*?</a>`)
	bareURLRE       = regexp.MustCompile(`https?://[^\s<]+`)
)

// toHTML converts the lightweight markdown dialect to HTML, in the
// fixed order: code block, bold, italic, strike,
// inline code, newline, bare URL.
//
// Two kinds of already-generated HTML must survive a second pass
// unchanged for sanitizer idempotence: a prior
// <pre><code> block (its inner text may still contain literal "**" or
// backticks that would otherwise be reinterpreted) and a prior <a>
// anchor (whose visible text is itself a URL that bareURLRE would
// otherwise re-wrap). Both are masked out before any pass runs and
// restored verbatim at the end; newly created code blocks are masked
// the same way so the bold/italic/strike/inline-code passes that
// follow never see their contents either.
func toHTML(text string) string {
	text, restoreExisting := maskSpans(text, "EXIST", existingPreRE, existingAnchorRE)

	text, restoreNewCode := maskSpansTransform(text, "CODE", codeBlockRE, func(m string) string {
		inner := codeBlockRE.FindStringSubmatch(m)[1]
		return fmt.Sprintf("<pre><code>%s</code></pre>", inner)
	})

	text = boldRE.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRE.ReplaceAllString(text, "<em>$1</em>")
	text = strikeRE.ReplaceAllString(text, "<del>$1</del>")
	text = inlineCodeRE.ReplaceAllString(text, "<code>$1</code>")

	text = strings.ReplaceAll(text, "\n", "<br>")

	text = bareURLRE.ReplaceAllStringFunc(text, func(url string) string {
		return fmt.Sprintf(`<a href="%s" rel="noopener noreferrer" target="_blank">%s</a>`, url, url)
	})

	text = restoreNewCode(text)
	text = restoreExisting(text)

	return text
}

// maskSpans identity-masks every match of any of res, restoring the
// original text verbatim.
func maskSpans(text, tag string, res ...*regexp.Regexp) (string, func(string) string) {
	return maskSpansTransform(text, tag, combinedRE(res...), func(m string) string { return m })
}

// maskSpansTransform replaces every match of re with a unique
// placeholder, pre-rendering each match through render. The returned
// restore function substitutes the rendered replacements back in, so
// later passes never see the masked spans' raw form.
func maskSpansTransform(text, tag string, re *regexp.Regexp, render func(match string) string) (string, func(string) string) {
	matches := re.FindAllString(text, -1)
	if len(matches) == 0 {
		return text, func(s string) string { return s }
	}

	rendered := make([]string, len(matches))
	placeholders := make([]string, len(matches))
	for i, m := range matches {
		placeholders[i] = fmt.Sprintf("\x00%s%d\x00", tag, i)
		rendered[i] = render(m)
	}

	idx := 0
	masked := re.ReplaceAllStringFunc(text, func(m string) string {
		p := placeholders[idx]
		idx++
		return p
	})

	return masked, func(s string) string {
		for i, p := range placeholders {
			s = strings.ReplaceAll(s, p, rendered[i])
		}
		return s
	}
}

// combinedRE unions several patterns into one alternation so a single
// FindAllString/ReplaceAllStringFunc pass masks matches of any of them
// without one pattern's match boundaries confusing the other's.
func combinedRE(res ...*regexp.Regexp) *regexp.Regexp {
	parts := make([]string, len(res))
	for i, re := range res {
		parts[i] = re.String()
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}

// Package sanitize implements the content-normalization pipeline: a fixed
// ordered pipeline that strips platform tokens, redacts PII, and
// converts a lightweight markdown dialect to HTML.
//
// Inputs are not pre-escaped (the source platform rejects raw HTML);
// outputs are trusted only within a wrapping CSP. The
// sanitizer is a best-effort filter, not a full HTML sanitizer on its
// own — AllowlistPolicy below documents the optional bluemonday pass
// this implementation has chosen to apply.
package sanitize

// Result is the sanitizer's output.
type Result struct {
	HTML             string
	RedactedPII      bool
	HadScript        bool
	RemovedMentions  []string
	RemovedEmoji     []string
}

// Sanitize runs the fixed six-pass pipeline over raw source text. Each
// pass operates on the output of the previous one.
func Sanitize(input string) Result {
	var res Result

	text, mentions := replaceMentions(input)
	res.RemovedMentions = mentions

	text, emoji := replaceEmoji(text)
	res.RemovedEmoji = emoji

	text = replaceTimestamps(text)

	text, hadScript := neutralizeScripts(text)
	res.HadScript = hadScript

	text, redacted := redactPII(text)
	res.RedactedPII = redacted

	res.HTML = toHTML(text)

	return res
}

// Func adapts a bare sanitize function (Sanitize or SanitizeAllowlisted)
// to an interface value, so callers like the Reconciler can depend on
// a narrow Sanitizer interface instead of the package directly.
type Func func(string) Result

// Sanitize implements the Sanitizer interface other packages define.
func (f Func) Sanitize(input string) Result { return f(input) }

// SanitizeAllowlisted runs Sanitize and then passes the result through
// the bluemonday allowlist policy documented in allowlist.go. Callers
// that want the belt-and-suspenders HTML sanitizer before storage call
// this instead of Sanitize.
func SanitizeAllowlisted(input string) Result {
	res := Sanitize(input)
	res.HTML = AllowlistPolicy().Sanitize(res.HTML)
	return res
}

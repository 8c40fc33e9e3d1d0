package sanitize

import "regexp"

var (
	emailRE      = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	ssnRE        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	creditCardRE = regexp.MustCompile(`\b\d{4}[ \-]?\d{4}[ \-]?\d{4}[ \-]?\d{4}\b`)
	phoneRE      = regexp.MustCompile(`\b(?:\+?1[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}\b`)
)

// redactPII replaces email, SSN, credit-card-like, and phone-shaped
// substrings with "[X Redacted]" placeholders.
//
// Most specific patterns run first: the phone pattern is the least
// specific of the four and, applied first, would consume digit runs
// that are really part of an SSN or card number. Running it last
// avoids that without changing what ends up redacted.
func redactPII(text string) (string, bool) {
	redacted := false

	if emailRE.MatchString(text) {
		redacted = true
		text = emailRE.ReplaceAllString(text, "[Email Redacted]")
	}
	if ssnRE.MatchString(text) {
		redacted = true
		text = ssnRE.ReplaceAllString(text, "[SSN Redacted]")
	}
	if creditCardRE.MatchString(text) {
		redacted = true
		text = creditCardRE.ReplaceAllString(text, "[Card Number Redacted]")
	}
	if phoneRE.MatchString(text) {
		redacted = true
		text = phoneRE.ReplaceAllString(text, "[Phone Redacted]")
	}

	return text, redacted
}

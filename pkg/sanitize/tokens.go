package sanitize

import "regexp"

// Platform mention/emoji/timestamp tokens. Snowflake
// IDs are 17-19 digits on the source platform.
var (
	userMentionRE    = regexp.MustCompile(`<@!?\d{17,19}>`)
	channelMentionRE = regexp.MustCompile(`<#\d{17,19}>`)
	roleMentionRE    = regexp.MustCompile(`<@&\d{17,19}>`)
	customEmojiRE    = regexp.MustCompile(`<a?:\w+:\d{17,19}>`)
	timestampRE      = regexp.MustCompile(`<t:\d{1,13}(?::[tTdDfFR])?>`)
)

// replaceMentions replaces mention tokens with their placeholders in
// the fixed order: user, channel, role. It returns the transformed
// text plus every matched token for the caller's removed_mentions
// list, grouped by kind in that same order (all user mentions, then
// channel, then role), each group in order of appearance.
func replaceMentions(text string) (string, []string) {
	var removed []string

	text = replaceAndCollect(userMentionRE, text, "[User Mention]", &removed)
	text = replaceAndCollect(channelMentionRE, text, "[Channel Mention]", &removed)
	text = replaceAndCollect(roleMentionRE, text, "[Role Mention]", &removed)

	return text, removed
}

func replaceEmoji(text string) (string, []string) {
	var removed []string
	text = replaceAndCollect(customEmojiRE, text, "[Emoji]", &removed)
	return text, removed
}

func replaceTimestamps(text string) string {
	return timestampRE.ReplaceAllString(text, "[Timestamp]")
}

// replaceAndCollect replaces every match of re in text with placeholder
// and appends each matched substring to *removed before replacing.
func replaceAndCollect(re *regexp.Regexp, text, placeholder string, removed *[]string) string {
	matches := re.FindAllString(text, -1)
	*removed = append(*removed, matches...)
	return re.ReplaceAllString(text, placeholder)
}

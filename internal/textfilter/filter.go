// Package textfilter normalizes message text and screens out noise
// (tracking boilerplate, link-dominant content) before classification.
package textfilter

import (
	"regexp"
	"strings"
)

// ignoreKeywords are tracking/marketing tokens that mark a message as
// noise regardless of the rest of its content.
var ignoreKeywords = []string{
	"virus free",
	"avast",
	"utm_medium",
	"utm_source",
	"utm_campaign",
	"utm_content",
}

// linkRatioThreshold is the fraction of a message that may consist of
// URLs before the message is considered link-dominant noise.
const linkRatioThreshold = 0.7

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	nonWordPattern = regexp.MustCompile(`[^a-zA-Z0-9_\s]+`)
)

// NormalizeKey maps raw text to its canonical form: all whitespace runs
// (including CR/LF) collapsed to single spaces and surrounding whitespace
// trimmed. Two texts that normalize identically are the same message for
// dedup and deletion purposes.
func NormalizeKey(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Clean prepares text for the classifier: lowercased, with runs of
// characters outside [a-z0-9_] and whitespace replaced by single spaces.
func Clean(raw string) string {
	cleaned := nonWordPattern.ReplaceAllString(raw, " ")
	return strings.ToLower(NormalizeKey(cleaned))
}

// ShouldIgnore reports whether text is noise that must never reach the
// classifier: it contains a denylisted tracking token, or URLs make up
// more than linkRatioThreshold of its length. Expects the trimmed message
// text with URLs intact. Empty text is never ignored by the ratio branch.
func ShouldIgnore(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range ignoreKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	links := urlPattern.FindAllString(text, -1)
	if len(links) == 0 {
		return false
	}

	linkLen := len(links) - 1 // separators, matching a space-joined link text
	for _, link := range links {
		linkLen += len(link)
	}

	// Guard the divisor so empty text cannot trip the ratio branch.
	total := len(text)
	if total < 1 {
		total = 1
	}

	return float64(linkLen)/float64(total) > linkRatioThreshold
}

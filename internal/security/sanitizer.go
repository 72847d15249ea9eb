package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeString trims and bounds operator-supplied free text before it is
// persisted (team names from sheets, match special rules, log notes).
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if len(input) > 1000 {
		input = input[:1000]
	}

	return input
}

// SanitizeHTML strips all HTML tags.
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeName cleans a short identifier field (team, tank, manufacturer).
func SanitizeName(input string) string {
	input = SanitizeString(SanitizeHTML(input))
	if len(input) > 50 {
		input = input[:50]
	}
	return input
}

package clean

import (
	"regexp"
	"strings"
)

var (
	newlines  = regexp.MustCompile(`\n+`)
	unprinted = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{S}\p{M}\p{Z}\n]`)
)

// Line flattens text to a single trimmed line of printable runes.
func Line(text string) string {
	text = newlines.ReplaceAllString(text, " ")
	return Text(text)
}

// Text drops control and other unprintable runes but keeps newlines, so
// terminal views cannot be corrupted by escape sequences in API payloads.
func Text(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = unprinted.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

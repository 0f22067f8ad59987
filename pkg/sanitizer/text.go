package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks text shortened by Truncate.
const Ellipsis = "…"

var (
	blockTagRegex   = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags, drops script and style bodies, and unescapes
// entities. Tags are replaced by a space so adjacent words stay apart.
func StripHTML(s string) string {
	s = blockTagRegex.ReplaceAllString(s, " ")
	s = htmlTagRegex.ReplaceAllString(s, " ")
	return html.UnescapeString(s)
}

// RemoveControlChars drops control characters except tab and line breaks.
func RemoveControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// SingleLine collapses every whitespace run, line breaks included, into a
// single space and trims the result.
func SingleLine(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Truncate shortens s to at most limit runes. A shortened string ends with
// Ellipsis, which counts toward the limit.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:limit-1]), unicode.IsSpace) + Ellipsis
}

// TruncateFunc returns Truncate bound to limit, for use with Compose.
func TruncateFunc(limit int) func(string) string {
	return func(s string) string { return Truncate(s, limit) }
}

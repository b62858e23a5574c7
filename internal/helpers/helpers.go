// Package helpers provides small display helpers shared by the CLI, the
// TUI and the report formatters.
package helpers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncateText trims text and shortens it to maxLen runes, ending in "..."
// when cut. A maxLen below 4 leaves the text whole.
func TruncateText(text string, maxLen int) string {
	return truncate(strings.TrimSpace(text), maxLen)
}

// TruncateURL shortens a URL to maxLen runes for display. Unlike
// TruncateText it keeps surrounding whitespace.
func TruncateURL(url string, maxLen int) string {
	return truncate(url, maxLen)
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

// Plural formats n with word, adding "s" when n is not 1.
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

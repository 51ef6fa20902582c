package diff

import (
	"strings"
)

// SplitLines splits text on newline boundaries.
// Empty lines are preserved, including the empty line that follows a final newline,
// so the empty text is a single empty line.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

// isBlank reports whether a line holds nothing but whitespace.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

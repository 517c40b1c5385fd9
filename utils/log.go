package utils

import (
	"strings"
	"unicode"
)

// SanitizeLogMessage strips control characters from user-supplied text
// before it reaches the logs.
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
		} else if unicode.IsPrint(r) || unicode.IsGraphic(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

package fileutils

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// reservedChars can't appear in file names on at least one common platform.
const reservedChars = `/\?%*:|"<>`

var spaceRun = regexp.MustCompile(` {2,}`)

// SanitizeName makes name safe to use as a file or folder name. Reserved
// characters are replaced by their fullwidth forms, which keeps Japanese
// titles readable, and runs of spaces are collapsed.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(reservedChars, r):
			b.WriteString(width.Widen.String(string(r)))
		case r < 0x20:
			// control characters are dropped
		default:
			b.WriteRune(r)
		}
	}
	return spaceRun.ReplaceAllString(b.String(), " ")
}

// NamePart returns " - " followed by the sanitized s, or "" when s has
// nothing left after trimming.
func NamePart(s string) string {
	s = strings.TrimSpace(SanitizeName(s))
	if s == "" {
		return ""
	}
	return " - " + s
}

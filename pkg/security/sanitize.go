// Package security sanitizes untrusted request input before it reaches
// scoring, storage, or logs.
package security

import (
	"strings"
)

// SanitizeString trims surrounding whitespace and strips control characters
// (newlines and tabs are preserved).
func SanitizeString(s string) string {
	return strings.TrimSpace(removeControlCharacters(s))
}

// SanitizePhone keeps only digits and plus signs from a phone number string.
func SanitizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, s)
}

// SanitizeFilename produces a filesystem-safe file name: path separators and
// traversal sequences are removed, disallowed characters become underscores,
// and the result is capped at 255 characters.
func SanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "\\", "")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "")
	}
	s = strings.ReplaceAll(s, " ", "_")

	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)

	return truncate(s, 255)
}

func truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength])
}

func removeControlCharacters(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// Package sanitizer normalizes free-text input before validation so that
// equivalent values compare equal and stored documents stay tidy.
package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims the string and collapses internal whitespace runs
// into single spaces.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeName normalizes a camp or participant display name.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeReason normalizes a patient-supplied visit reason, dropping
// control characters that occasionally survive copy/paste.
func NormalizeReason(reason string) string {
	var cleaned strings.Builder
	for _, r := range reason {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		cleaned.WriteRune(r)
	}
	return TrimAndNormalize(cleaned.String())
}

// NormalizeID trims an opaque participant/owner identifier.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength bounds URL paths in logs.
	MaxPathLength = 500
	// MaxErrorMessageLength bounds error messages in logs.
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength bounds general strings in logs.
	MaxGeneralStringLength = 2000
	// MaxOracleResponseLength bounds raw estimator responses logged at
	// debug level. Responses are capped upstream at a few dozen tokens,
	// but the bound protects the logs if the upstream contract changes.
	MaxOracleResponseLength = 4000
)

// SanitizePath strips control characters from a URL path, repairs invalid
// UTF-8, and truncates to MaxPathLength. User-supplied paths go through
// here before logging to prevent log injection.
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}
	path = filterRunes(path)
	if len(path) > MaxPathLength {
		path = path[:MaxPathLength] + "..."
	}
	return path
}

// SanitizeString strips control characters, repairs invalid UTF-8, and
// truncates to maxLength (MaxGeneralStringLength when non-positive).
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = filterRunes(s)
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// SanitizeError renders an error for logging, bounded and stripped of
// control characters. Returns "" for nil.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeOracleResponse bounds free-text estimator output for debug logs.
func SanitizeOracleResponse(text string) string {
	return SanitizeString(text, MaxOracleResponseLength)
}

// filterRunes repairs invalid UTF-8 and removes control characters,
// keeping printable runes plus space, tab, newline, and carriage return.
func filterRunes(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

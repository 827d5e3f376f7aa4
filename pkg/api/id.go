package api

import (
	"regexp"
	"strings"
)

// InvalidNameChars matches characters not permitted in preset and workflow
// names. Valid characters are: letters, digits, underscore, dot, hyphen,
// plus, space
var InvalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeName lowercases a name, removes invalid characters, replaces
// spaces with hyphens, and trims leading and trailing hyphens
func SanitizeName[T ~string](name T) T {
	lower := strings.ToLower(string(name))
	sanitized := InvalidNameChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}

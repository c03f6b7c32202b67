package sanitizer

import (
	"strings"
	"unicode"
)

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

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeLicensePlate(plate string) string {
	return Pipeline{TrimAndNormalize, strings.ToUpper}.Apply(plate)
}

// NormalizeIDNumber strips spaces and dashes that people type into national ID
// numbers.
func NormalizeIDNumber(id string) string {
	id = strings.TrimSpace(id)
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.ToUpper(id))
}

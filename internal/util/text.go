package util

import "strings"

// SanitizePostgresText drops NUL bytes and invalid UTF-8, both rejected by
// postgres text columns.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SanitizePostgresTexts applies SanitizePostgresText to every value.
func SanitizePostgresTexts(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = SanitizePostgresText(v)
	}
	return out
}

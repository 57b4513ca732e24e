package helper

import "strings"

// Shorten trims whitespace and clamps the string to the provided rune length.
func Shorten(text string, limit int) string {
	text = strings.TrimSpace(text)
	return Truncate(text, limit)
}

// Truncate clamps long strings while preserving rune safety.
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

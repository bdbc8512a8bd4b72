package server

import "strings"

// sanitizeText turns raw model output into display-safe text: emphasis
// markers are dropped and newlines become HTML line breaks. Idempotent, and
// never touches alphanumeric content, punctuation, or ordering.
func sanitizeText(raw string) string {
	text := strings.ReplaceAll(raw, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	return strings.ReplaceAll(text, "\n", "<br>")
}

// firstSanitizedLine returns the text before the first <br>, used to pull a
// disease name out of a sanitized diagnosis.
func firstSanitizedLine(text string) string {
	if idx := strings.Index(text, "<br>"); idx >= 0 {
		return text[:idx]
	}
	return text
}

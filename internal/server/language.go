package server

import (
	"context"
	"strings"
)

const (
	languageAuto    = "none"
	languageDefault = "en"
)

// supportedLanguages maps language codes to display names. "none" is the
// auto-detect sentinel.
var supportedLanguages = map[string]string{
	"none": "Auto",
	"en":   "English",
	"kn":   "Kannada",
	"hi":   "Hindi",
	"sp":   "Spanish",
	"te":   "Telugu",
}

// resolveLanguage picks exactly one response language. An explicit user
// selection wins when supported; the auto sentinel defers to the detected
// code when supported. Anything outside the supported set falls back to
// English, never invented or corrected.
func resolveLanguage(selected, detected string) string {
	selected = strings.TrimSpace(selected)
	detected = strings.TrimSpace(detected)

	if selected == languageAuto {
		if _, ok := supportedLanguages[detected]; ok {
			return detected
		}
		return languageDefault
	}
	if _, ok := supportedLanguages[selected]; ok {
		return selected
	}
	return languageDefault
}

func languageName(code string) string {
	if name, ok := supportedLanguages[code]; ok {
		return name
	}
	return supportedLanguages[languageDefault]
}

// detectLanguage asks the oracle for the language code of the text; a single
// round-trip. Failures fall back to English.
func (a *App) detectLanguage(ctx context.Context, text string) string {
	answer, err := a.ai.Generate(ctx, GenerateRequest{
		Prompt: "Detect the language of this text: '" + text + "'. Return only the language code (e.g., 'en', 'kn', 'hi', 'sp', 'te').",
	})
	if err != nil {
		return languageDefault
	}
	return strings.TrimSpace(answer)
}

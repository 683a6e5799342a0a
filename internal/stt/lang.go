package stt

import (
	"strings"
	"unicode/utf8"
)

// maxPromptBytes bounds the vocabulary prompt handed to the engine.
const maxPromptBytes = 800

// WhisperLanguage maps an IETF-style language tag to the engine's two-letter
// code. Unknown tags return empty, which the engine treats as auto-detect.
func WhisperLanguage(tag string) string {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "en-us", "en-gb", "en":
		return "en"
	case "es":
		return "es"
	case "fr":
		return "fr"
	case "de":
		return "de"
	case "it":
		return "it"
	case "pt":
		return "pt"
	case "ja":
		return "ja"
	case "ko":
		return "ko"
	case "zh":
		return "zh"
	default:
		return ""
	}
}

// BuildPrompt joins keyterms into a vocabulary-boost prompt, truncated to a
// bounded length so oversized term lists cannot blow up the engine input.
func BuildPrompt(keyterms []string) string {
	terms := make([]string, 0, len(keyterms))
	for _, term := range keyterms {
		term = strings.TrimSpace(term)
		if term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return ""
	}

	prompt := "Terms: " + strings.Join(terms, ", ") + "."
	if len(prompt) > maxPromptBytes {
		// Back up to a rune boundary so multi-byte terms are not cut mid-rune.
		cut := maxPromptBytes
		for cut > 0 && !utf8.RuneStart(prompt[cut]) {
			cut--
		}
		prompt = prompt[:cut] + "..."
	}
	return prompt
}

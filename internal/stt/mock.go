package stt

import (
	"context"
	"fmt"
)

// MockRecognizer returns a deterministic placeholder transcript; used in
// tests and for wiring checks without a model.
type MockRecognizer struct{}

func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{}
}

func (m *MockRecognizer) Transcribe(_ context.Context, samples []float32, hint Hint) (string, error) {
	lang := hint.Language
	if lang == "" {
		lang = "auto"
	}
	return fmt.Sprintf("[%s transcript samples=%d]", lang, len(samples)), nil
}

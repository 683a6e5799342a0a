// Package stt abstracts the speech recognition engine consumed by the
// chunked transcription pipeline.
package stt

import "context"

// Hint carries per-chunk recognition guidance.
type Hint struct {
	// Language is a whisper language code ("en", "de", ...). Empty means
	// auto-detect.
	Language string
	// Prompt is an optional vocabulary-boost prompt built from keyterms.
	Prompt string
}

// Recognizer converts one chunk of 16 kHz mono samples into text. One
// instance is created per recording session and invoked repeatedly from a
// single worker goroutine.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32, hint Hint) (string, error)
}

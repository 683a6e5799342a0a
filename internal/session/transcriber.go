package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPipelineUnavailable indicates runtime transcriber wiring is missing.
	ErrPipelineUnavailable = errors.New("audio capture and transcription pipeline not implemented")
	// ErrEmptyTranscript indicates stop completed but no usable speech was recognized.
	ErrEmptyTranscript = errors.New("no speech recognized; check microphone input or mute state")
	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("a recording session is already active")
	// ErrNotRecording is returned by Stop or Cancel with no active session.
	ErrNotRecording = errors.New("no recording session is active")
	// ErrSessionFaulted is returned by Start while the service holds a failed
	// session that has not been cleared with Cancel or Reset.
	ErrSessionFaulted = errors.New("previous session failed; cancel to reset before starting again")
)

// Settings carries per-session transcription options chosen at start time.
type Settings struct {
	AutoDetectLanguage bool
	Languages          []string
	Keyterms           []string
}

// StopResult is the transcriber output consumed by the session service.
type StopResult struct {
	Transcript      string
	AudioDevice     string
	SamplesCaptured int64
	ChunksTotal     int
	ChunksFailed    int
	DrainDuration   time.Duration
}

// Progress reports live chunk pipeline counts for status queries.
type Progress struct {
	ChunksPending   int
	ChunksCompleted int
	ChunksFailed    int
}

// Transcriber abstracts the capture and recognition pipeline behind the
// session service.
type Transcriber interface {
	Start(ctx context.Context, settings Settings) error
	StopAndTranscribe(ctx context.Context) (StopResult, error)
	Cancel(ctx context.Context) error
}

// PlaceholderTranscriber is a no-op placeholder used in tests/fallback wiring.
type PlaceholderTranscriber struct{}

func (PlaceholderTranscriber) Start(context.Context, Settings) error {
	return nil
}

func (PlaceholderTranscriber) StopAndTranscribe(context.Context) (StopResult, error) {
	return StopResult{}, ErrPipelineUnavailable
}

func (PlaceholderTranscriber) Cancel(context.Context) error {
	return nil
}

// Package session coordinates dictation lifecycle state, actions, and commit flow.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dictolabs/dicto/internal/fsm"
)

// Notifier is the session-facing subset of desktop notification behavior.
type Notifier interface {
	Recording(context.Context)
	Transcribing(context.Context)
	Complete(context.Context, string)
	Cancelled(context.Context)
	Error(context.Context, string)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) Recording(context.Context)        {}
func (noopNotifier) Transcribing(context.Context)     {}
func (noopNotifier) Complete(context.Context, string) {}
func (noopNotifier) Cancelled(context.Context)        {}
func (noopNotifier) Error(context.Context, string)    {}

// Service orchestrates one recording session at a time: start capture, stop
// and collect the transcript, or cancel and discard. State transitions go
// through the FSM so misuse surfaces as typed errors rather than races.
type Service struct {
	logger     *slog.Logger
	transcribe Transcriber
	commit     Committer
	notify     Notifier

	mu        sync.RWMutex
	state     fsm.State
	settings  Settings
	startedAt time.Time
}

// NewService constructs a session service with safe default fallbacks.
func NewService(
	logger *slog.Logger,
	transcriber Transcriber,
	committer Committer,
	notifier Notifier,
) *Service {
	if transcriber == nil {
		transcriber = PlaceholderTranscriber{}
	}
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &Service{
		logger:     logger,
		transcribe: transcriber,
		commit:     committer,
		notify:     notifier,
		state:      fsm.StateIdle,
	}
}

// State returns the current FSM state snapshot.
func (s *Service) State() fsm.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsActive reports whether a session is recording or finalizing.
func (s *Service) IsActive() bool {
	state := s.State()
	return state == fsm.StateRecording || state == fsm.StateFinalizing
}

// Settings returns the options the active session was started with.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// progressReporter is implemented by transcribers that expose live chunk
// counts.
type progressReporter interface {
	Progress() Progress
}

// Progress returns live pipeline counts when the transcriber supports them.
func (s *Service) Progress() (Progress, bool) {
	if reporter, ok := s.transcribe.(progressReporter); ok {
		return reporter.Progress(), true
	}
	return Progress{}, false
}

// StartedAt returns when the active session began recording.
func (s *Service) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// transition applies one FSM event to the service state.
func (s *Service) transition(event fsm.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fsm.Transition(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Start begins a recording session. Only one session may be active, and a
// faulted service must be cleared first.
func (s *Service) Start(ctx context.Context, settings Settings) error {
	switch s.State() {
	case fsm.StateIdle:
	case fsm.StateError:
		return ErrSessionFaulted
	default:
		return ErrAlreadyRecording
	}
	if err := s.transition(fsm.EventStart); err != nil {
		return ErrAlreadyRecording
	}

	s.mu.Lock()
	s.settings = settings
	s.startedAt = time.Now()
	s.mu.Unlock()

	if err := s.transcribe.Start(ctx, settings); err != nil {
		s.notify.Error(ctx, "Unable to start recording")
		s.toErrorAndReset()
		return err
	}

	s.notify.Recording(ctx)
	s.logger.Info("session started",
		"auto_detect", settings.AutoDetectLanguage,
		"languages", strings.Join(settings.Languages, ","),
	)
	return nil
}

// Stop ends the active session, drains the pipeline, and returns the merged
// transcript. The transcript is also handed to the committer; a commit
// failure is logged but does not discard the transcript.
func (s *Service) Stop(ctx context.Context) (string, error) {
	if s.State() != fsm.StateRecording {
		return "", ErrNotRecording
	}
	if err := s.transition(fsm.EventStop); err != nil {
		return "", ErrNotRecording
	}

	s.notify.Transcribing(ctx)

	result, err := s.transcribe.StopAndTranscribe(ctx)
	if err != nil {
		s.notify.Error(ctx, "Transcription failed")
		// The pipeline may still hold in-flight work (a drain timeout, for
		// example). Stay in error so no second session overlaps it until the
		// caller resets.
		_ = s.transition(fsm.EventFail)
		return "", err
	}

	s.logger.Info("session stopped",
		"device", result.AudioDevice,
		"samples", result.SamplesCaptured,
		"chunks", result.ChunksTotal,
		"chunks_failed", result.ChunksFailed,
		"drain", result.DrainDuration,
	)

	if strings.TrimSpace(result.Transcript) == "" {
		s.notify.Error(ctx, "No speech detected")
		s.toErrorAndReset()
		return "", ErrEmptyTranscript
	}

	if err := s.commit.Commit(ctx, result.Transcript); err != nil {
		s.logger.Warn("transcript commit failed", "error", err)
		s.notify.Error(ctx, "Output dispatch failed")
	} else {
		s.notify.Complete(ctx, result.Transcript)
	}

	if err := s.transition(fsm.EventFinalized); err != nil {
		s.toErrorAndReset()
		return result.Transcript, err
	}
	return result.Transcript, nil
}

// Cancel aborts the active session and discards captured audio. On a faulted
// service it clears the error state instead.
func (s *Service) Cancel(ctx context.Context) error {
	state := s.State()
	if state == fsm.StateError {
		return s.Reset()
	}
	if state != fsm.StateRecording {
		return ErrNotRecording
	}

	_ = s.transcribe.Cancel(ctx)
	if err := s.transition(fsm.EventCancel); err != nil {
		s.toErrorAndReset()
		return err
	}

	s.notify.Cancelled(ctx)
	s.logger.Info("session cancelled")
	return nil
}

// Reset clears the error state left by a failed session.
func (s *Service) Reset() error {
	return s.transition(fsm.EventReset)
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (s *Service) toErrorAndReset() {
	_ = s.transition(fsm.EventFail)
	_ = s.transition(fsm.EventReset)
}

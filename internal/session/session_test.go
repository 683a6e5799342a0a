package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dictolabs/dicto/internal/fsm"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	result   StopResult

	started   bool
	stopped   bool
	cancelled bool
	settings  Settings
}

func (f *fakeTranscriber) Start(_ context.Context, settings Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.settings = settings
	return nil
}

func (f *fakeTranscriber) StopAndTranscribe(context.Context) (StopResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return f.result, f.stopErr
}

func (f *fakeTranscriber) Cancel(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceStartStop(t *testing.T) {
	tr := &fakeTranscriber{result: StopResult{Transcript: "hello world", ChunksTotal: 2}}
	var committed string
	svc := NewService(testLogger(), tr, CommitFunc(func(_ context.Context, text string) error {
		committed = text
		return nil
	}), nil)

	ctx := context.Background()
	require.False(t, svc.IsActive())

	settings := Settings{Languages: []string{"en-US"}, Keyterms: []string{"dicto"}}
	require.NoError(t, svc.Start(ctx, settings))
	require.True(t, svc.IsActive())
	require.Equal(t, fsm.StateRecording, svc.State())
	require.Equal(t, settings, tr.settings)
	require.False(t, svc.StartedAt().IsZero())

	text, err := svc.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, "hello world", committed)
	require.Equal(t, fsm.StateIdle, svc.State())
	require.False(t, svc.IsActive())
}

func TestServiceDoubleStart(t *testing.T) {
	svc := NewService(testLogger(), &fakeTranscriber{}, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, Settings{}))
	require.ErrorIs(t, svc.Start(ctx, Settings{}), ErrAlreadyRecording)
	require.Equal(t, fsm.StateRecording, svc.State())
}

func TestServiceStopWithoutStart(t *testing.T) {
	svc := NewService(testLogger(), &fakeTranscriber{}, nil, nil)

	_, err := svc.Stop(context.Background())
	require.ErrorIs(t, err, ErrNotRecording)
	require.ErrorIs(t, svc.Cancel(context.Background()), ErrNotRecording)
}

func TestServiceStartFailureResetsToIdle(t *testing.T) {
	tr := &fakeTranscriber{startErr: errors.New("no usable input device")}
	svc := NewService(testLogger(), tr, nil, nil)

	err := svc.Start(context.Background(), Settings{})
	require.Error(t, err)
	require.Equal(t, fsm.StateIdle, svc.State())

	// The failure does not wedge the service.
	tr.startErr = nil
	require.NoError(t, svc.Start(context.Background(), Settings{}))
}

func TestServiceStopFailureEntersErrorState(t *testing.T) {
	tr := &fakeTranscriber{stopErr: errors.New("transcription drain timed out")}
	svc := NewService(testLogger(), tr, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, Settings{}))
	_, err := svc.Stop(ctx)
	require.Error(t, err)
	require.Equal(t, fsm.StateError, svc.State())

	// The failed pipeline may still hold in-flight chunks, so no second
	// session may start until the fault is cleared.
	require.ErrorIs(t, svc.Start(ctx, Settings{}), ErrSessionFaulted)
	require.Equal(t, fsm.StateError, svc.State())

	// Cancel clears the fault; a fresh session can then start.
	require.NoError(t, svc.Cancel(ctx))
	require.Equal(t, fsm.StateIdle, svc.State())

	tr.stopErr = nil
	require.NoError(t, svc.Start(ctx, Settings{}))
}

func TestServiceResetClearsError(t *testing.T) {
	tr := &fakeTranscriber{stopErr: errors.New("engine crashed")}
	svc := NewService(testLogger(), tr, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, Settings{}))
	_, err := svc.Stop(ctx)
	require.Error(t, err)

	require.NoError(t, svc.Reset())
	require.Equal(t, fsm.StateIdle, svc.State())
}

func TestServiceEmptyTranscript(t *testing.T) {
	tr := &fakeTranscriber{result: StopResult{Transcript: "   "}}
	committed := false
	svc := NewService(testLogger(), tr, CommitFunc(func(context.Context, string) error {
		committed = true
		return nil
	}), nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, Settings{}))
	_, err := svc.Stop(ctx)
	require.ErrorIs(t, err, ErrEmptyTranscript)
	require.False(t, committed)
	require.Equal(t, fsm.StateIdle, svc.State())
}

func TestServiceCommitFailureKeepsTranscript(t *testing.T) {
	tr := &fakeTranscriber{result: StopResult{Transcript: "hello"}}
	svc := NewService(testLogger(), tr, CommitFunc(func(context.Context, string) error {
		return errors.New("clipboard helper missing")
	}), nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, Settings{}))
	text, err := svc.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello", text)
	require.Equal(t, fsm.StateIdle, svc.State())
}

func TestServiceCancelDiscards(t *testing.T) {
	tr := &fakeTranscriber{}
	svc := NewService(testLogger(), tr, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, Settings{}))
	require.NoError(t, svc.Cancel(ctx))
	require.True(t, tr.cancelled)
	require.False(t, tr.stopped)
	require.Equal(t, fsm.StateIdle, svc.State())

	// A fresh session can start after cancel.
	require.NoError(t, svc.Start(ctx, Settings{}))
}

func TestServiceDefaultsToPlaceholder(t *testing.T) {
	svc := NewService(testLogger(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, Settings{}))
	_, err := svc.Stop(ctx)
	require.ErrorIs(t, err, ErrPipelineUnavailable)
}

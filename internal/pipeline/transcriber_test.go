package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dictolabs/dicto/internal/audio"
	"github.com/dictolabs/dicto/internal/config"
	"github.com/dictolabs/dicto/internal/session"
	"github.com/dictolabs/dicto/internal/stt"
)

type fakeCapture struct {
	buf     *audio.Buffer
	level   audio.LevelFunc
	stopped bool
	closed  bool
}

func (f *fakeCapture) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeCapture) Close() { f.closed = true }

func (f *fakeCapture) SamplesCaptured() int64 { return int64(f.buf.Len()) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Audio.Rate = 16000
	cfg.Audio.Channels = 1
	return cfg
}

// newTestTranscriber wires a transcriber with a fake capture whose buffer the
// test can fill directly.
func newTestTranscriber(t *testing.T, rec stt.Recognizer) (*Transcriber, *fakeCapture) {
	t.Helper()

	tr := NewTranscriber(testConfig(), rec, testLogger())
	capture := &fakeCapture{}
	tr.selectDevice = func(context.Context, string, string) (audio.Selection, error) {
		return audio.Selection{Device: audio.Device{ID: "test-source", Description: "Test Microphone"}}, nil
	}
	tr.startCapture = func(_ context.Context, _ audio.Device, _ audio.Spec, buf *audio.Buffer, level audio.LevelFunc) (capturer, error) {
		capture.buf = buf
		capture.level = level
		return capture, nil
	}
	return tr, capture
}

func TestTranscriberEndToEnd(t *testing.T) {
	tr, capture := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	settings := session.Settings{Languages: []string{"en-US"}}
	require.NoError(t, tr.Start(ctx, settings))

	// Twelve seconds of audio at the engine rate: two full chunks plus a
	// final partial chunk at stop.
	capture.buf.Append(make([]float32, 12*stt.SampleRate))

	result, err := tr.StopAndTranscribe(ctx)
	require.NoError(t, err)
	require.True(t, capture.stopped)
	require.True(t, capture.closed)
	require.Equal(t, 3, result.ChunksTotal)
	require.Zero(t, result.ChunksFailed)
	require.NotEmpty(t, result.Transcript)
	require.Contains(t, result.AudioDevice, "Test Microphone")
	require.Equal(t, int64(12*stt.SampleRate), result.SamplesCaptured)
}

func TestTranscriberShortRecording(t *testing.T) {
	tr, capture := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx, session.Settings{}))

	// Under one chunk of audio still produces a transcript from the final
	// partial chunk.
	capture.buf.Append(make([]float32, stt.SampleRate))

	result, err := tr.StopAndTranscribe(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.ChunksTotal)
	require.NotEmpty(t, result.Transcript)
}

func TestTranscriberEmptyRecording(t *testing.T) {
	tr, _ := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx, session.Settings{}))

	result, err := tr.StopAndTranscribe(ctx)
	require.NoError(t, err)
	require.Zero(t, result.ChunksTotal)
	require.Empty(t, result.Transcript)
}

func TestTranscriberDoubleStart(t *testing.T) {
	tr, _ := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx, session.Settings{}))
	require.Error(t, tr.Start(ctx, session.Settings{}))

	_, err := tr.StopAndTranscribe(ctx)
	require.NoError(t, err)
}

func TestTranscriberStopBeforeStart(t *testing.T) {
	tr, _ := newTestTranscriber(t, stt.NewMockRecognizer())

	_, err := tr.StopAndTranscribe(context.Background())
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
}

func TestTranscriberCancelDiscards(t *testing.T) {
	tr, capture := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx, session.Settings{}))
	capture.buf.Append(make([]float32, 6*stt.SampleRate))

	require.NoError(t, tr.Cancel(ctx))
	require.True(t, capture.stopped)
	require.True(t, capture.closed)

	_, err := tr.StopAndTranscribe(ctx)
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
}

func TestTranscriberDeliversLevelFunc(t *testing.T) {
	tr, capture := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	var got float64
	tr.SetLevelFunc(func(level float64) { got = level })

	require.NoError(t, tr.Start(ctx, session.Settings{}))
	require.NotNil(t, capture.level)

	capture.level(63)
	require.Equal(t, float64(63), got)

	_, err := tr.StopAndTranscribe(ctx)
	require.NoError(t, err)
}

func TestTranscriberRestartUsesFreshPipeline(t *testing.T) {
	tr, capture := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx, session.Settings{}))
	capture.buf.Append(make([]float32, 2*stt.SampleRate))
	require.NoError(t, tr.Cancel(ctx))

	// A second session must not see state from the first.
	require.NoError(t, tr.Start(ctx, session.Settings{}))
	capture.buf.Append(make([]float32, stt.SampleRate))

	result, err := tr.StopAndTranscribe(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.ChunksTotal)
	require.NotEmpty(t, result.Transcript)
}

func TestTranscriberLiveExtraction(t *testing.T) {
	tr, capture := newTestTranscriber(t, stt.NewMockRecognizer())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx, session.Settings{}))

	// Feed audio incrementally, as the capture callback would.
	for i := 0; i < 6; i++ {
		capture.buf.Append(make([]float32, stt.SampleRate))
		time.Sleep(30 * time.Millisecond)
	}

	result, err := tr.StopAndTranscribe(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.ChunksTotal, 2)
	require.NotEmpty(t, result.Transcript)
}

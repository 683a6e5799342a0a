package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dictolabs/dicto/internal/audio"
	"github.com/dictolabs/dicto/internal/chunk"
	"github.com/dictolabs/dicto/internal/config"
	"github.com/dictolabs/dicto/internal/metrics"
	"github.com/dictolabs/dicto/internal/session"
	"github.com/dictolabs/dicto/internal/stt"
	"github.com/dictolabs/dicto/internal/transcript"
)

// ErrDrainTimeout indicates in-flight chunks did not finish within the drain
// ceiling after stop.
var ErrDrainTimeout = errors.New("transcription drain timed out")

// capturer is the slice of audio.Capture the pipeline needs; tests substitute
// a fake so no PulseAudio server is required.
type capturer interface {
	Stop() error
	Close()
	SamplesCaptured() int64
}

// startCaptureFunc opens a capture stream appending into buf.
type startCaptureFunc func(ctx context.Context, device audio.Device, spec audio.Spec, buf *audio.Buffer, level audio.LevelFunc) (capturer, error)

// Transcriber owns one end-to-end capture -> chunk -> merge pipeline
// instance. Audio lands in a shared buffer; the extractor carves overlapping
// chunks from it while the worker transcribes them in order. Stop drains the
// queue and merges the per-chunk transcripts.
type Transcriber struct {
	cfg    config.Config
	logger *slog.Logger
	rec    stt.Recognizer
	level  audio.LevelFunc

	startCapture startCaptureFunc
	selectDevice func(ctx context.Context, input, fallback string) (audio.Selection, error)

	mu        sync.Mutex
	started   bool
	selection audio.Selection
	capture   capturer
	buf       *audio.Buffer
	queue     *chunk.Queue
	extractor *chunk.Extractor
	worker    *chunk.Worker
	runCancel context.CancelFunc
	// wg is per session: a timed-out drain can leave goroutines from a
	// previous session running, and they must not share a restarted group.
	wg *sync.WaitGroup
}

// NewTranscriber constructs a pipeline transcriber from runtime config.
func NewTranscriber(cfg config.Config, rec stt.Recognizer, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		cfg:    cfg,
		logger: logger,
		rec:    rec,
		startCapture: func(ctx context.Context, device audio.Device, spec audio.Spec, buf *audio.Buffer, level audio.LevelFunc) (capturer, error) {
			return audio.StartCapture(ctx, device, spec, buf, level)
		},
		selectDevice: audio.SelectDevice,
	}
}

// SetLevelFunc installs an amplitude callback invoked from the capture path.
func (t *Transcriber) SetLevelFunc(level audio.LevelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.level = level
}

// Progress reports live chunk queue counts for status queries.
func (t *Transcriber) Progress() session.Progress {
	t.mu.Lock()
	queue := t.queue
	t.mu.Unlock()

	if queue == nil {
		return session.Progress{}
	}
	pending, processing, completed, failed := queue.Counts()
	return session.Progress{
		ChunksPending:   pending + processing,
		ChunksCompleted: completed,
		ChunksFailed:    failed,
	}
}

// Start resolves device selection and launches capture, extraction, and the
// transcription worker.
func (t *Transcriber) Start(ctx context.Context, settings session.Settings) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("transcriber already started")
	}

	selection, err := t.selectDevice(ctx, t.cfg.Audio.Input, t.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	t.selection = selection
	if selection.Warning != "" {
		t.logWarn(selection.Warning)
	}

	spec := audio.Spec{Rate: t.cfg.Audio.Rate, Channels: t.cfg.Audio.Channels}
	buf := audio.NewBuffer()

	capture, err := t.startCapture(ctx, selection.Device, spec, buf, t.level)
	if err != nil {
		return err
	}

	hint := stt.Hint{Prompt: stt.BuildPrompt(settings.Keyterms)}
	if !settings.AutoDetectLanguage && len(settings.Languages) > 0 {
		hint.Language = stt.WhisperLanguage(settings.Languages[0])
	}

	queue := chunk.NewQueue()
	extractor := chunk.NewExtractor(buf, queue, spec.Rate, spec.Channels, t.logger)
	worker := chunk.NewWorker(queue, t.rec, hint, t.logger)

	runCtx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	t.buf = buf
	t.capture = capture
	t.queue = queue
	t.extractor = extractor
	t.worker = worker
	t.runCancel = cancel
	t.wg = wg

	wg.Add(2)
	go func() {
		defer wg.Done()
		extractor.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(runCtx)
	}()

	t.started = true
	t.logger.Info("pipeline started",
		"device", audio.DescribeDevice(selection.Device),
		"rate", spec.Rate,
		"channels", spec.Channels,
		"language", hint.Language,
	)
	return nil
}

// StopAndTranscribe stops capture, emits the final partial chunk, drains the
// worker, and merges per-chunk transcripts into the session result.
func (t *Transcriber) StopAndTranscribe(ctx context.Context) (session.StopResult, error) {
	t.mu.Lock()
	started := t.started
	capture := t.capture
	buf := t.buf
	queue := t.queue
	extractor := t.extractor
	worker := t.worker
	cancel := t.runCancel
	selection := t.selection
	wg := t.wg
	t.started = false
	t.mu.Unlock()

	if !started || capture == nil {
		return session.StopResult{}, session.ErrPipelineUnavailable
	}

	// Freeze the buffer, then pull out any remaining audio as a short final
	// chunk before the worker is told to retire.
	_ = capture.Stop()
	extractor.Finalize()
	worker.Drain()

	drainStart := time.Now()
	drained := waitDrain(ctx, wg)
	drainDur := time.Since(drainStart)
	metrics.DrainSeconds.Observe(drainDur.Seconds())

	cancel()
	capture.Close()
	t.writeDebugAudio(buf)

	result := session.StopResult{
		AudioDevice:     audio.DescribeDevice(selection.Device),
		SamplesCaptured: capture.SamplesCaptured(),
		DrainDuration:   drainDur,
	}
	_, _, completed, failed := queue.Counts()
	result.ChunksTotal = queue.Len()
	result.ChunksFailed = failed

	if !drained {
		return result, ErrDrainTimeout
	}

	result.Transcript = transcript.Merge(queue.CompletedTexts())
	t.logger.Info("pipeline drained",
		"chunks", result.ChunksTotal,
		"completed", completed,
		"failed", failed,
		"drain", drainDur,
	)
	return result, nil
}

// waitDrain waits for the extractor and worker goroutines to retire, bounded
// by the drain ceiling and the caller's context.
func waitDrain(ctx context.Context, wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(chunk.DrainTimeout):
		return false
	case <-ctx.Done():
		return false
	}
}

// Cancel stops capture and the pipeline immediately, discarding audio.
func (t *Transcriber) Cancel(_ context.Context) error {
	t.mu.Lock()
	capture := t.capture
	cancel := t.runCancel
	wg := t.wg
	t.started = false
	t.mu.Unlock()

	if capture != nil {
		_ = capture.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if wg != nil {
		wg.Wait()
	}
	if capture != nil {
		capture.Close()
	}
	return nil
}

// logWarn emits warning-level logs when logger is configured.
func (t *Transcriber) logWarn(message string) {
	if t.logger == nil {
		return
	}
	t.logger.Warn(message)
}

// writeDebugAudio dumps the captured buffer to WAV when debug.audio_dump is set.
func (t *Transcriber) writeDebugAudio(buf *audio.Buffer) {
	if !t.cfg.Debug.AudioDump || buf == nil || buf.Len() == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		t.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	samples := buf.Tail(0)
	if err := stt.WriteWAV(file, samples, t.cfg.Audio.Rate, t.cfg.Audio.Channels); err != nil {
		t.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

// createDebugFile creates timestamped debug artifacts under state/dicto/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "dicto", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

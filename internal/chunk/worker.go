package chunk

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dictolabs/dicto/internal/metrics"
	"github.com/dictolabs/dicto/internal/stt"
)

// Worker drains the queue sequentially, one chunk at a time in extraction
// order, so the recognizer never runs concurrent invocations. Transient
// failures are retried with a short backoff; a chunk that exhausts its
// retries is marked failed and the pipeline moves on.
type Worker struct {
	queue *Queue
	rec   stt.Recognizer
	hint  stt.Hint
	log   *slog.Logger

	draining atomic.Bool
}

func NewWorker(queue *Queue, rec stt.Recognizer, hint stt.Hint, log *slog.Logger) *Worker {
	return &Worker{queue: queue, rec: rec, hint: hint, log: log}
}

// Drain tells the worker to exit once the queue has no pending chunks.
func (w *Worker) Drain() {
	w.draining.Store(true)
}

// Run processes chunks until the context ends, or until Drain has been
// called and the queue is empty.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(workerInterval)
	defer ticker.Stop()

	for {
		id, samples, ok := w.queue.Claim()
		if !ok {
			if w.draining.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		w.process(ctx, id, samples)
	}
}

func (w *Worker) process(ctx context.Context, id int, samples []float32) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			metrics.TranscribeRetries.Inc()
			select {
			case <-ctx.Done():
				w.queue.Fail(id, ctx.Err())
				return
			case <-time.After(retryBackoff):
			}
		}

		text, err := w.rec.Transcribe(ctx, samples, w.hint)
		if err == nil {
			w.queue.Complete(id, text)
			metrics.ChunksCompleted.Inc()
			w.log.Debug("chunk transcribed", "chunk_id", id, "attempts", attempt+1, "chars", len(text))
			return
		}

		lastErr = err
		w.log.Warn("chunk transcription attempt failed", "chunk_id", id, "attempt", attempt+1, "error", err)
	}

	w.queue.Fail(id, lastErr)
	metrics.ChunksFailed.Inc()
	w.log.Error("chunk transcription failed", "chunk_id", id, "error", lastErr)
}

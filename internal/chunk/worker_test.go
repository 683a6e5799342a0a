package chunk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dictolabs/dicto/internal/stt"
)

// scriptedRecognizer fails a configured number of times per chunk before
// succeeding, or always fails for chunk IDs in alwaysFail.
type scriptedRecognizer struct {
	mu         sync.Mutex
	failures   int
	seen       map[string]int
	alwaysFail bool
	calls      int
}

func (r *scriptedRecognizer) Transcribe(_ context.Context, samples []float32, _ stt.Hint) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.alwaysFail {
		return "", errors.New("engine unavailable")
	}

	key := fmt.Sprintf("%d", len(samples))
	if r.seen == nil {
		r.seen = make(map[string]int)
	}
	r.seen[key]++
	if r.seen[key] <= r.failures {
		return "", errors.New("transient failure")
	}
	return fmt.Sprintf("chunk of %d", len(samples)), nil
}

func runWorker(t *testing.T, w *Worker) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("worker did not drain in time")
	}
}

func TestWorkerDrainsQueueInOrder(t *testing.T) {
	q := NewQueue()
	q.Append(make([]float32, 10), 0, 10)
	q.Append(make([]float32, 20), 10, 30)
	q.Append(make([]float32, 30), 30, 60)

	w := NewWorker(q, &scriptedRecognizer{}, stt.Hint{}, testLogger())
	w.Drain()
	runWorker(t, w)

	require.True(t, q.AllTerminal())
	require.Equal(t, []string{"chunk of 10", "chunk of 20", "chunk of 30"}, q.CompletedTexts())
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	q := NewQueue()
	q.Append(make([]float32, 10), 0, 10)

	rec := &scriptedRecognizer{failures: maxRetries}
	w := NewWorker(q, rec, stt.Hint{}, testLogger())
	w.Drain()
	runWorker(t, w)

	require.Equal(t, []string{"chunk of 10"}, q.CompletedTexts())
	require.Equal(t, maxRetries+1, rec.calls)
}

func TestWorkerFailedChunkDoesNotBlockOthers(t *testing.T) {
	q := NewQueue()
	q.Append(make([]float32, 10), 0, 10)
	q.Append(make([]float32, 20), 10, 30)

	rec := &scriptedRecognizer{alwaysFail: true}
	w := NewWorker(q, rec, stt.Hint{}, testLogger())
	w.Drain()
	runWorker(t, w)

	require.True(t, q.AllTerminal())
	require.Empty(t, q.CompletedTexts())
	_, _, _, failed := q.Counts()
	require.Equal(t, 2, failed)
	// Each chunk burned its full retry budget.
	require.Equal(t, 2*(maxRetries+1), rec.calls)
}

func TestWorkerWaitsForLateChunks(t *testing.T) {
	q := NewQueue()
	w := NewWorker(q, &scriptedRecognizer{}, stt.Hint{}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Appended after the worker started, like live extraction.
	time.Sleep(2 * workerInterval)
	q.Append(make([]float32, 10), 0, 10)
	w.Drain()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("worker did not finish")
	}
	require.Equal(t, []string{"chunk of 10"}, q.CompletedTexts())
}

package audio

import (
	"fmt"
	"sync"
)

// Buffer is the append-only store of normalized capture samples shared between
// the capture callback (writer) and the chunk extractor (reader). The lock is
// held only for the duration of an append or a slice copy, never across
// resampling or recognition.
type Buffer struct {
	mu      sync.Mutex
	samples []float32
}

// NewBuffer returns an empty buffer sized for a few seconds of audio.
func NewBuffer() *Buffer {
	return &Buffer{samples: make([]float32, 0, 48000*4)}
}

// Append adds samples in capture order.
func (b *Buffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	b.mu.Unlock()
}

// Len reports the number of samples appended so far.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Slice copies samples[start:end]. It fails rather than blocking when the
// requested range has not been captured yet; callers poll and retry.
func (b *Buffer) Slice(start, end int) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid sample range [%d, %d)", start, end)
	}
	if end > len(b.samples) {
		return nil, fmt.Errorf("sample range [%d, %d) exceeds buffered %d", start, end, len(b.samples))
	}

	out := make([]float32, end-start)
	copy(out, b.samples[start:end])
	return out, nil
}

// Tail copies every sample at or past from. Used for the final partial chunk
// and for debug audio dumps.
func (b *Buffer) Tail(from int) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if from < 0 {
		from = 0
	}
	if from >= len(b.samples) {
		return nil
	}
	out := make([]float32, len(b.samples)-from)
	copy(out, b.samples[from:])
	return out
}

// Reset discards all samples. Called once at the start of a session.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.samples = b.samples[:0]
	b.mu.Unlock()
}

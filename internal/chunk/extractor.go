package chunk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dictolabs/dicto/internal/audio"
	"github.com/dictolabs/dicto/internal/metrics"
)

// Extractor carves overlapping chunks out of the shared capture buffer. It
// reads source-rate interleaved samples, downmixes to mono, resamples to the
// engine rate, and appends the result to the queue. A cursor tracks how far
// into the buffer it has read; each read backs up by the overlap so adjacent
// chunks share half a second of audio.
type Extractor struct {
	buf        *audio.Buffer
	queue      *Queue
	sourceRate int
	channels   int
	log        *slog.Logger

	mu     sync.Mutex
	cursor int

	stopOnce sync.Once
	done     chan struct{}
}

func NewExtractor(buf *audio.Buffer, queue *Queue, sourceRate, channels int, log *slog.Logger) *Extractor {
	if channels <= 0 {
		channels = 1
	}
	return &Extractor{
		buf:        buf,
		queue:      queue,
		sourceRate: sourceRate,
		channels:   channels,
		log:        log,
		done:       make(chan struct{}),
	}
}

// chunkSource is one chunk's worth of interleaved source samples.
func (e *Extractor) chunkSource() int {
	return chunkSamples * e.sourceRate / TargetRate * e.channels
}

// overlapSource is the overlap in interleaved source samples.
func (e *Extractor) overlapSource() int {
	return overlapSamples * e.sourceRate / TargetRate * e.channels
}

// Run polls the buffer until Finalize is called or the context ends.
func (e *Extractor) Run(ctx context.Context) {
	ticker := time.NewTicker(extractInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			for e.extractOne(false) {
			}
			e.mu.Unlock()
		}
	}
}

// Finalize drains any remaining full chunks, emits the partial tail if one
// exists, and stops Run. Capture must already be stopped so the buffer no
// longer grows.
func (e *Extractor) Finalize() {
	e.mu.Lock()
	for e.extractOne(false) {
	}
	e.extractOne(true)
	e.mu.Unlock()

	e.stopOnce.Do(func() { close(e.done) })
}

// extractOne pulls the next chunk if enough audio is buffered. With final set
// it accepts a short tail instead of waiting for a full chunk. Callers hold
// e.mu.
func (e *Extractor) extractOne(final bool) bool {
	if final && e.cursor >= e.buf.Len() {
		// Everything up to the end of the buffer is already covered; backing
		// up by the overlap would only re-emit audio.
		return false
	}

	start := e.cursor - e.overlapSource()
	if start < 0 {
		start = 0
	}

	end := start + e.chunkSource()
	if available := e.buf.Len(); end > available {
		if !final {
			return false
		}
		end = available
		if end <= start {
			return false
		}
	}

	raw, err := e.buf.Slice(start, end)
	if err != nil {
		e.log.Error("chunk extraction failed", "error", err, "start", start, "end", end)
		return false
	}

	mono := audio.DownmixMono(raw, e.channels)
	samples := audio.Resample(mono, e.sourceRate, TargetRate)

	id := e.queue.Append(samples, start, end)
	e.cursor = end
	metrics.ChunksExtracted.Inc()
	e.log.Debug("chunk extracted", "chunk_id", id, "start", start, "end", end, "samples", len(samples), "final", final)
	return true
}

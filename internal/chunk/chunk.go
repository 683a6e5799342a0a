package chunk

import "time"

// Pipeline timing. Chunks are five seconds of audio at the engine rate, with
// half a second of overlap carried into the next chunk so the merger can
// stitch the seam.
const (
	TargetRate = 16000

	chunkDuration   = 5 * time.Second
	overlapDuration = 500 * time.Millisecond

	extractInterval = 100 * time.Millisecond
	workerInterval  = 50 * time.Millisecond

	maxRetries   = 2
	retryBackoff = 100 * time.Millisecond

	// DrainTimeout bounds how long Stop waits for in-flight chunks.
	DrainTimeout = 5 * time.Minute
)

// chunkSamples and overlapSamples are sizes at the engine rate.
const (
	chunkSamples   = TargetRate * 5
	overlapSamples = TargetRate / 2
)

// State tracks a chunk through the transcription pipeline.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether the chunk has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Chunk is one extracted audio segment. Samples are mono at TargetRate and
// are released once the chunk reaches a terminal state. Offsets are positions
// in the source capture buffer, interleaved source-rate samples.
type Chunk struct {
	ID          int
	Samples     []float32
	StartOffset int
	EndOffset   int
	State       State
	Text        string
	Err         error
	Attempts    int
}

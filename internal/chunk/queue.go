package chunk

import "sync"

// Queue holds chunks in extraction order and hands them to the worker one at
// a time. All methods are safe for concurrent use; the extractor appends
// while the worker claims and retires.
type Queue struct {
	mu     sync.Mutex
	chunks []*Chunk
}

func NewQueue() *Queue {
	return &Queue{}
}

// Append adds a pending chunk and assigns its ID.
func (q *Queue) Append(samples []float32, startOffset, endOffset int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := len(q.chunks)
	q.chunks = append(q.chunks, &Chunk{
		ID:          id,
		Samples:     samples,
		StartOffset: startOffset,
		EndOffset:   endOffset,
		State:       StatePending,
	})
	return id
}

// Claim marks the oldest pending chunk as processing and returns its ID and
// samples. ok is false when nothing is pending.
func (q *Queue) Claim() (id int, samples []float32, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, c := range q.chunks {
		if c.State == StatePending {
			c.State = StateProcessing
			c.Attempts++
			return c.ID, c.Samples, true
		}
	}
	return 0, nil, false
}

// Complete records the transcript for a chunk and releases its samples.
func (q *Queue) Complete(id int, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if c := q.get(id); c != nil {
		c.State = StateCompleted
		c.Text = text
		c.Samples = nil
	}
}

// Fail marks a chunk as failed and releases its samples. The pipeline keeps
// going; a failed chunk just leaves a hole in the transcript.
func (q *Queue) Fail(id int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if c := q.get(id); c != nil {
		c.State = StateFailed
		c.Err = err
		c.Samples = nil
	}
}

// AllTerminal reports whether every queued chunk has finished.
func (q *Queue) AllTerminal() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, c := range q.chunks {
		if !c.State.Terminal() {
			return false
		}
	}
	return true
}

// CompletedTexts returns transcripts in chunk order, skipping failed chunks.
func (q *Queue) CompletedTexts() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	texts := make([]string, 0, len(q.chunks))
	for _, c := range q.chunks {
		if c.State == StateCompleted {
			texts = append(texts, c.Text)
		}
	}
	return texts
}

// Counts returns per-state totals for status reporting.
func (q *Queue) Counts() (pending, processing, completed, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, c := range q.chunks {
		switch c.State {
		case StatePending:
			pending++
		case StateProcessing:
			processing++
		case StateCompleted:
			completed++
		case StateFailed:
			failed++
		}
	}
	return
}

// Len returns the number of chunks appended so far.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

func (q *Queue) get(id int) *Chunk {
	if id < 0 || id >= len(q.chunks) {
		return nil
	}
	return q.chunks[id]
}

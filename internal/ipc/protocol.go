package ipc

type Request struct {
	Command string `json:"command"`
}

// Status describes the owner's pipeline progress at request time. Level is
// the most recent capture amplitude on a 0-100 scale.
type Status struct {
	ElapsedMS       int64   `json:"elapsed_ms,omitempty"`
	Level           float64 `json:"level,omitempty"`
	ChunksPending   int     `json:"chunks_pending,omitempty"`
	ChunksCompleted int     `json:"chunks_completed,omitempty"`
	ChunksFailed    int     `json:"chunks_failed,omitempty"`
}

type Response struct {
	OK      bool    `json:"ok"`
	State   string  `json:"state,omitempty"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

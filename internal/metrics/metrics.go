package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChunksExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dicto",
		Name:      "chunks_extracted_total",
		Help:      "Audio chunks extracted from the capture buffer.",
	})

	ChunksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dicto",
		Name:      "chunks_completed_total",
		Help:      "Chunks transcribed successfully.",
	})

	ChunksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dicto",
		Name:      "chunks_failed_total",
		Help:      "Chunks that exhausted transcription retries.",
	})

	TranscribeRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dicto",
		Name:      "transcribe_retries_total",
		Help:      "Retried transcription attempts.",
	})

	DrainSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dicto",
		Name:      "drain_seconds",
		Help:      "Time spent waiting for in-flight chunks after stop.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// Serve exposes /metrics on the given address. It blocks, so callers run it
// in a goroutine. An empty bind disables the endpoint.
func Serve(bind string) error {
	if bind == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(bind, mux)
}

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// levelIntervalMS throttles amplitude callbacks to roughly 30 per second.
const levelIntervalMS = 33

// Spec is the sample format requested from the sound server for one session.
type Spec struct {
	Rate     int
	Channels int
}

// LevelFunc receives a 0-100 amplitude level. Implementations must not block;
// the capture callback runs on the stream's delivery path.
type LevelFunc func(level float64)

// Capture streams normalized float32 samples from one Pulse source into a
// Buffer. The buffer is the only data surface this component exposes.
type Capture struct {
	device Device
	spec   Spec

	client *pulse.Client
	stream *pulse.RecordStream

	buf   *Buffer
	level LevelFunc

	mu      sync.Mutex
	stopped bool

	lastLevelMS atomic.Int64
	samples     atomic.Int64
}

// StartCapture opens the selected source as Float32LE with the requested spec
// and begins appending to buf. Stop is irrevocable; a new session opens a new
// capture.
func StartCapture(ctx context.Context, selected Device, spec Spec, buf *Buffer, level LevelFunc) (*Capture, error) {
	if spec.Rate <= 0 || spec.Channels < 1 || spec.Channels > 2 {
		return nil, fmt.Errorf("unsupported capture spec rate=%d channels=%d", spec.Rate, spec.Channels)
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := &Capture{
		device: selected,
		spec:   spec,
		client: client,
		buf:    buf,
		level:  level,
	}

	channelOpt := pulse.RecordMono
	if spec.Channels == 2 {
		channelOpt = pulse.RecordStereo
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatFloat32LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		channelOpt,
		pulse.RecordSampleRate(spec.Rate),
		pulse.RecordMediaName("dicto dictation"),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Spec returns the sample format the stream was opened with.
func (c *Capture) Spec() Spec {
	return c.spec
}

// SamplesCaptured reports total samples accepted from Pulse.
func (c *Capture) SamplesCaptured() int64 {
	return c.samples.Load()
}

// Stop halts the stream exactly once. Samples already delivered stay in the
// buffer for the final drain.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM decodes one delivered frame, appends it to the buffer, and emits a
// throttled amplitude level. Returning io.EOF halts the writer after stop.
func (c *Capture) onPCM(data []byte) (int, error) {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return 0, io.EOF
	}

	count := len(data) / 4
	if count == 0 {
		return len(data), nil
	}

	samples := make([]float32, count)
	var sum float64
	for i := 0; i < count; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		samples[i] = v
		sum += math.Abs(float64(v))
	}

	c.buf.Append(samples)
	c.samples.Add(int64(count))
	c.emitLevel(sum / float64(count))

	return len(data), nil
}

// emitLevel forwards a 0-100 amplitude at most once per levelIntervalMS.
func (c *Capture) emitLevel(meanAbs float64) {
	if c.level == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := c.lastLevelMS.Load()
	if now-last < levelIntervalMS {
		return
	}
	if !c.lastLevelMS.CompareAndSwap(last, now) {
		return
	}
	c.level(meanAbs * 100)
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

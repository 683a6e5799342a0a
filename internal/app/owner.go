package app

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/dictolabs/dicto/internal/fsm"
	"github.com/dictolabs/dicto/internal/ipc"
	"github.com/dictolabs/dicto/internal/session"
)

type ownerAction int

const (
	actionStop ownerAction = iota + 1
	actionCancel
)

type ownerResult struct {
	transcript string
	cancelled  bool
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// levelMeter stores the most recent capture amplitude for status queries.
// The capture callback must not block, so the value is a single atomic slot.
type levelMeter struct {
	bits atomic.Uint64
}

func (m *levelMeter) set(level float64) { m.bits.Store(math.Float64bits(level)) }

func (m *levelMeter) get() float64 { return math.Float64frombits(m.bits.Load()) }

// ownerHandler serves IPC commands for the process that owns the active
// session and relays stop/cancel requests to the waiting owner goroutine.
type ownerHandler struct {
	svc     *session.Service
	level   func() float64
	actions chan ownerAction
}

func newOwnerHandler(svc *session.Service, level func() float64) *ownerHandler {
	return &ownerHandler{
		svc:     svc,
		level:   level,
		actions: make(chan ownerAction, 1),
	}
}

// Handle serves IPC commands for the active owner session.
func (o *ownerHandler) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		state := o.svc.State()
		status := &ipc.Status{}
		if startedAt := o.svc.StartedAt(); !startedAt.IsZero() {
			status.ElapsedMS = time.Since(startedAt).Milliseconds()
		}
		if o.level != nil {
			status.Level = o.level()
		}
		if progress, ok := o.svc.Progress(); ok {
			status.ChunksPending = progress.ChunksPending
			status.ChunksCompleted = progress.ChunksCompleted
			status.ChunksFailed = progress.ChunksFailed
		}
		return ipc.Response{OK: true, State: string(state), Message: "status", Status: status}
	case "toggle":
		return o.requestStop("toggle")
	case "stop":
		return o.requestStop("stop")
	case "cancel":
		return o.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(o.svc.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestStop enqueues a stop action when state permits it.
func (o *ownerHandler) requestStop(source string) ipc.Response {
	state := o.svc.State()
	if state == fsm.StateFinalizing {
		return ipc.Response{OK: false, State: string(state), Error: "already finalizing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case o.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (o *ownerHandler) requestCancel() ipc.Response {
	state := o.svc.State()
	if state == fsm.StateFinalizing {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while finalizing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case o.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// wait blocks until a stop or cancel request arrives, applies it, and
// returns the session outcome. Context cancellation aborts the session.
func (o *ownerHandler) wait(ctx context.Context) ownerResult {
	result := ownerResult{startedAt: o.svc.StartedAt()}

	select {
	case <-ctx.Done():
		_ = o.svc.Cancel(context.Background())
		result.cancelled = true
		result.err = ctx.Err()
	case action := <-o.actions:
		switch action {
		case actionCancel:
			result.err = o.svc.Cancel(ctx)
			result.cancelled = true
		case actionStop:
			result.transcript, result.err = o.svc.Stop(ctx)
		}
	}

	result.finishedAt = time.Now()
	return result
}

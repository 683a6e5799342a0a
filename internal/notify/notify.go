// Package notify surfaces session progress as desktop notifications.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const notifyTimeout = 2 * time.Second

// Desktop sends freedesktop notifications over DBus. Each update replaces
// the previous notification so the session reads as one evolving status
// rather than a stack of toasts. All sends are best-effort; a missing
// notification daemon never affects the session.
type Desktop struct {
	appName string
	logger  *slog.Logger

	mu     sync.Mutex
	lastID uint32
}

func NewDesktop(appName string, logger *slog.Logger) *Desktop {
	if appName == "" {
		appName = "dicto"
	}
	return &Desktop{appName: appName, logger: logger}
}

func (d *Desktop) Recording(ctx context.Context) {
	d.send(ctx, "Recording", "Listening... stop to transcribe", 0)
}

func (d *Desktop) Transcribing(ctx context.Context) {
	d.send(ctx, "Transcribing", "Finishing up...", 0)
}

func (d *Desktop) Complete(ctx context.Context, transcript string) {
	d.send(ctx, "Copied to clipboard", preview(transcript), 4000)
}

func (d *Desktop) Cancelled(ctx context.Context) {
	d.send(ctx, "Recording cancelled", "", 2000)
}

func (d *Desktop) Error(ctx context.Context, message string) {
	d.send(ctx, "Dictation error", message, 5000)
}

// Dismiss closes the current notification, if any.
func (d *Desktop) Dismiss(ctx context.Context) {
	d.mu.Lock()
	id := d.lastID
	d.lastID = 0
	d.mu.Unlock()

	if id == 0 {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := desktopDismiss(sendCtx, id); err != nil {
		d.logWarn("notification dismiss failed", err)
	}
}

func (d *Desktop) send(ctx context.Context, summary, body string, timeoutMS int) {
	d.mu.Lock()
	replaceID := d.lastID
	d.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	id, err := desktopNotify(sendCtx, d.appName, replaceID, summary, body, timeoutMS)
	if err != nil {
		d.logWarn("desktop notification failed", err)
		return
	}

	d.mu.Lock()
	d.lastID = id
	d.mu.Unlock()
}

func (d *Desktop) logWarn(message string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(message, "error", err)
}

// preview shortens a transcript for the notification body.
func preview(text string) string {
	const max = 120
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

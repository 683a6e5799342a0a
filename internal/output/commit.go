// Package output applies transcript commit side effects: formatting,
// history, clipboard, and optional paste.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/dictolabs/dicto/internal/config"
	"github.com/dictolabs/dicto/internal/format"
	"github.com/dictolabs/dicto/internal/store"
)

// Committer dispatches a finished transcript. The clipboard write is the one
// hard requirement; formatting, history, and paste are best-effort so a
// broken helper never loses dictated text.
type Committer struct {
	clipboardArgv []string
	pasteArgv     []string
	enablePaste   bool

	formatter *format.Formatter
	history   *store.Store
	logger    *slog.Logger
}

// NewCommitter constructs a transcript committer from runtime config. The
// formatter and history store may be nil when disabled.
func NewCommitter(cfg config.Config, formatter *format.Formatter, history *store.Store, logger *slog.Logger) (*Committer, error) {
	clipboardArgv, err := config.ParseCommand(cfg.Output.ClipboardCmd)
	if err != nil {
		return nil, fmt.Errorf("parse clipboard command: %w", err)
	}

	var pasteArgv []string
	if cfg.Output.EnablePaste {
		pasteArgv, err = config.ParseCommand(cfg.Output.PasteCmd)
		if err != nil {
			return nil, fmt.Errorf("parse paste command: %w", err)
		}
	}

	return &Committer{
		clipboardArgv: clipboardArgv,
		pasteArgv:     pasteArgv,
		enablePaste:   cfg.Output.EnablePaste,
		formatter:     formatter,
		history:       history,
		logger:        logger,
	}, nil
}

// Commit formats the transcript, records it, writes it to the clipboard, and
// optionally dispatches paste.
func (c *Committer) Commit(ctx context.Context, transcript string) error {
	if transcript == "" {
		return nil
	}

	text := c.formatter.Format(ctx, transcript)

	if c.history != nil {
		formatted := ""
		if text != transcript {
			formatted = text
		}
		if _, err := c.history.Save(ctx, transcript, formatted); err != nil {
			c.logWarn("history save failed", err)
		}
	}

	clipboardCtx, clipboardCancel := context.WithTimeout(ctx, 2*time.Second)
	defer clipboardCancel()
	if err := runCommandWithInput(clipboardCtx, c.clipboardArgv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if !c.enablePaste || len(c.pasteArgv) == 0 {
		return nil
	}

	pasteCtx, pasteCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pasteCancel()
	if err := runCommandWithInput(pasteCtx, c.pasteArgv, ""); err != nil {
		c.logWarn("paste dispatch failed; clipboard remains set", err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func (c *Committer) logWarn(message string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Warn(message, "error", err.Error())
}

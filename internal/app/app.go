package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/dictolabs/dicto/internal/audio"
	"github.com/dictolabs/dicto/internal/cli"
	"github.com/dictolabs/dicto/internal/config"
	"github.com/dictolabs/dicto/internal/doctor"
	"github.com/dictolabs/dicto/internal/format"
	"github.com/dictolabs/dicto/internal/ipc"
	"github.com/dictolabs/dicto/internal/logging"
	"github.com/dictolabs/dicto/internal/metrics"
	"github.com/dictolabs/dicto/internal/notify"
	"github.com/dictolabs/dicto/internal/output"
	"github.com/dictolabs/dicto/internal/pipeline"
	"github.com/dictolabs/dicto/internal/session"
	"github.com/dictolabs/dicto/internal/store"
	"github.com/dictolabs/dicto/internal/stt"
	"github.com/dictolabs/dicto/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("dicto"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("dicto"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfgLoaded.Config)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, "cancel")
	case cli.CommandToggle:
		return r.commandToggle(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandHistory(ctx context.Context, cfg config.Config) int {
	if !cfg.History.Enable {
		fmt.Fprintln(r.Stdout, "history is disabled")
		return 0
	}

	path, err := config.ResolveHistoryPath(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	history, err := store.Open(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer history.Close()

	records, err := history.Recent(ctx, 20)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Fprintln(r.Stdout, "no transcriptions yet")
		return 0
	}

	for _, rec := range records {
		text := rec.Text
		if rec.FormattedText != "" {
			text = rec.FormattedText
		}
		fmt.Fprintf(r.Stdout, "%s  %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04"), text)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		line := resp.State
		if resp.Status != nil {
			line = fmt.Sprintf("%s (elapsed %s, chunks pending=%d completed=%d failed=%d)",
				resp.State,
				(time.Duration(resp.Status.ElapsedMS) * time.Millisecond).Round(time.Second),
				resp.Status.ChunksPending,
				resp.Status.ChunksCompleted,
				resp.Status.ChunksFailed,
			)
		}
		fmt.Fprintln(r.Stdout, line)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active dicto session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandToggle either forwards to a running owner or becomes the owner:
// acquire the socket, start the session, serve IPC, and print the transcript
// when a stop request arrives.
func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, "toggle")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, "toggle")
			if forwardErr != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", forwardErr)
				return 1
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	svc, transcriber, cleanup, err := r.buildService(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer cleanup()

	meter := &levelMeter{}
	transcriber.SetLevelFunc(meter.set)

	if cfg.Metrics.Bind != "" {
		go func() {
			if serveErr := metrics.Serve(cfg.Metrics.Bind); serveErr != nil {
				logger.Warn("metrics endpoint failed", "error", serveErr)
			}
		}()
	}

	settings := session.Settings{
		AutoDetectLanguage: cfg.Transcription.AutoDetectLanguage,
		Languages:          cfg.Transcription.Languages,
		Keyterms:           cfg.Transcription.Keyterms,
	}
	if err := svc.Start(ctx, settings); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	owner := newOwnerHandler(svc, meter.get)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, owner)
	}()

	result := owner.wait(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.err)
		return 1
	}
	if strings.TrimSpace(result.transcript) != "" {
		fmt.Fprintln(r.Stdout, strings.TrimSpace(result.transcript))
	}

	return 0
}

// buildService wires the recognition engine, commit path, and notifier into
// a session service.
func (r Runner) buildService(cfg config.Config, logger *slog.Logger) (*session.Service, *pipeline.Transcriber, func(), error) {
	recognizer, err := stt.NewExecRecognizer(cfg.STT.Command, cfg.STT.ModelPath)
	if err != nil {
		return nil, nil, nil, err
	}

	formatter, err := format.New(cfg.Formatter, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	var history *store.Store
	cleanup := func() {}
	if cfg.History.Enable {
		path, pathErr := config.ResolveHistoryPath(cfg.History.Path)
		if pathErr != nil {
			return nil, nil, nil, pathErr
		}
		history, err = store.Open(path)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() { _ = history.Close() }
	}

	committer, err := output.NewCommitter(cfg, formatter, history, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	var notifier session.Notifier
	if cfg.Notify.Enable {
		notifier = notify.NewDesktop(cfg.Notify.AppName, logger)
	}

	transcriber := pipeline.NewTranscriber(cfg, recognizer, logger)
	return session.NewService(logger, transcriber, committer, notifier), transcriber, cleanup, nil
}

func logSessionResult(logger *slog.Logger, result ownerResult) {
	if logger == nil {
		return
	}
	fields := []any{
		"cancelled", result.cancelled,
		"started_at", result.startedAt.Format(time.RFC3339Nano),
		"finished_at", result.finishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.finishedAt.Sub(result.startedAt).Milliseconds(),
		"transcript_length", len(result.transcript),
	}

	if result.err != nil {
		logger.Error("session failed", append(fields, "error", result.err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

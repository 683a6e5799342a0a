package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dictolabs/dicto/internal/config"
	"github.com/dictolabs/dicto/internal/store"
)

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from dicto")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from dicto", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestCommitterWritesClipboard(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default()
	cfg.Output.ClipboardCmd = scriptPath + " " + clipboardPath
	cfg.Output.EnablePaste = false

	committer, err := NewCommitter(cfg, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, committer.Commit(context.Background(), "captured transcript"))

	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "captured transcript", string(data))
}

func TestCommitterSkipsEmptyTranscript(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default()
	cfg.Output.ClipboardCmd = scriptPath + " " + clipboardPath

	committer, err := NewCommitter(cfg, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, committer.Commit(context.Background(), ""))

	_, statErr := os.Stat(clipboardPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestCommitterClipboardFailureIsFatal(t *testing.T) {
	failScript := writeFailScript(t, "clipboard failed")

	cfg := config.Default()
	cfg.Output.ClipboardCmd = failScript

	committer, err := NewCommitter(cfg, nil, nil, nil)
	require.NoError(t, err)

	err = committer.Commit(context.Background(), "captured transcript")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
}

func TestCommitterPasteFailureDoesNotFailCommit(t *testing.T) {
	clipboardScript := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")
	pasteFailScript := writeFailScript(t, "paste failed")

	cfg := config.Default()
	cfg.Output.ClipboardCmd = clipboardScript + " " + clipboardPath
	cfg.Output.PasteCmd = pasteFailScript
	cfg.Output.EnablePaste = true

	committer, err := NewCommitter(cfg, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, committer.Commit(context.Background(), "captured transcript"))

	data, readErr := os.ReadFile(clipboardPath)
	require.NoError(t, readErr)
	require.Equal(t, "captured transcript", string(data))
}

func TestCommitterSavesHistory(t *testing.T) {
	clipboardScript := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	history, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	cfg := config.Default()
	cfg.Output.ClipboardCmd = clipboardScript + " " + clipboardPath

	committer, err := NewCommitter(cfg, nil, history, nil)
	require.NoError(t, err)
	require.NoError(t, committer.Commit(context.Background(), "remember this"))

	records, err := history.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "remember this", records[0].Text)
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

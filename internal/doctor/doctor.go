// Package doctor runs runtime readiness diagnostics for config, tools, and audio.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dictolabs/dicto/internal/audio"
	"github.com/dictolabs/dicto/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkSTTCommand(cfg.Config))
	checks = append(checks, checkModelPath(cfg.Config))
	checks = append(checks, checkConfiguredCommand(cfg.Config.Output.ClipboardCmd, "output.clipboard_cmd"))

	if cfg.Config.Output.EnablePaste {
		checks = append(checks, checkConfiguredCommand(cfg.Config.Output.PasteCmd, "output.paste_cmd"))
	}

	if cfg.Config.Formatter.Enable {
		checks = append(checks, checkFormatterKey(cfg.Config))
	}

	if cfg.Config.Notify.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
	}

	checks = append(checks, checkAudioSelection(cfg.Config))

	return Report{Checks: checks}
}

// checkSTTCommand validates the recognition engine command parses and resolves.
func checkSTTCommand(cfg config.Config) Check {
	argv, err := config.ParseCommand(cfg.STT.Command)
	if err != nil {
		return Check{Name: "stt.command", Pass: false, Message: err.Error()}
	}
	if len(argv) == 0 {
		return Check{Name: "stt.command", Pass: false, Message: "command is empty"}
	}
	return checkBinaryNamed("stt.command", argv[0], "recognition engine is available")
}

// checkModelPath validates the configured model file exists.
func checkModelPath(cfg config.Config) Check {
	path := strings.TrimSpace(cfg.STT.ModelPath)
	if path == "" {
		return Check{Name: "stt.model_path", Pass: false, Message: "model_path is empty; the engine will use its default model"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "stt.model_path", Pass: false, Message: fmt.Sprintf("model not found: %s", path)}
	}
	return Check{Name: "stt.model_path", Pass: true, Message: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// checkConfiguredCommand validates a configured command string is runnable.
func checkConfiguredCommand(raw string, name string) Check {
	argv, err := config.ParseCommand(raw)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinaryNamed(name, argv[0], "command is available")
}

// checkFormatterKey validates the formatter API key environment variable.
func checkFormatterKey(cfg config.Config) Check {
	env := strings.TrimSpace(cfg.Formatter.APIKeyEnv)
	if env == "" {
		return Check{Name: "formatter.api_key_env", Pass: false, Message: "api_key_env is empty"}
	}
	if strings.TrimSpace(os.Getenv(env)) == "" {
		return Check{Name: "formatter.api_key_env", Pass: false, Message: fmt.Sprintf("%s is not set", env)}
	}
	return Check{Name: "formatter.api_key_env", Pass: true, Message: fmt.Sprintf("%s is set", env)}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	return checkBinaryNamed(bin, bin, okMsg)
}

func checkBinaryNamed(name string, bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

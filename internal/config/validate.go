package config

import (
	"fmt"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// ParseCommand splits a raw command string into argv using shell quoting rules.
func ParseCommand(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	argv, err := shellwords.NewParser().Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", raw, err)
	}
	return argv, nil
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Audio.Rate <= 0 {
		return nil, fmt.Errorf("audio.rate must be > 0")
	}
	if cfg.Audio.Channels < 1 || cfg.Audio.Channels > 2 {
		return nil, fmt.Errorf("audio.channels must be 1 or 2")
	}

	if !cfg.Transcription.AutoDetectLanguage && len(cfg.Transcription.Languages) == 0 {
		return nil, fmt.Errorf("transcription.languages must not be empty unless auto_detect_language is set")
	}
	for _, lang := range cfg.Transcription.Languages {
		if strings.TrimSpace(lang) == "" {
			return nil, fmt.Errorf("transcription.languages must not contain empty entries")
		}
	}

	if strings.TrimSpace(cfg.STT.Command) == "" {
		return nil, fmt.Errorf("stt.command must not be empty")
	}
	if _, err := ParseCommand(cfg.STT.Command); err != nil {
		return nil, fmt.Errorf("stt.command: %w", err)
	}
	if strings.TrimSpace(cfg.STT.ModelPath) == "" {
		warnings = append(warnings, Warning{Message: "stt.model_path is unset; the recognizer must resolve its own model"})
	}

	argv, err := ParseCommand(cfg.Output.ClipboardCmd)
	if err != nil {
		return nil, fmt.Errorf("output.clipboard_cmd: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("output.clipboard_cmd must not be empty")
	}
	pasteArgv, err := ParseCommand(cfg.Output.PasteCmd)
	if err != nil {
		return nil, fmt.Errorf("output.paste_cmd: %w", err)
	}
	if cfg.Output.EnablePaste && len(pasteArgv) == 0 {
		return nil, fmt.Errorf("output.paste_cmd must be set when output.enable_paste=true")
	}

	if cfg.Formatter.Enable {
		if strings.TrimSpace(cfg.Formatter.APIKeyEnv) == "" {
			return nil, fmt.Errorf("formatter.api_key_env must be set when formatter.enable=true")
		}
		if strings.TrimSpace(cfg.Formatter.Model) == "" {
			return nil, fmt.Errorf("formatter.model must be set when formatter.enable=true")
		}
	}

	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}

	return warnings, nil
}

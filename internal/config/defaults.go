package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
			Rate:     48000,
			Channels: 1,
		},
		Transcription: TranscriptionConfig{
			AutoDetectLanguage: false,
			Languages:          []string{"en-US"},
			Keyterms:           nil,
		},
		STT: STTConfig{
			Command:   "whisper-cli",
			ModelPath: "",
		},
		Formatter: FormatterConfig{
			Enable:    false,
			APIKeyEnv: "DICTO_FORMATTER_KEY",
			Model:     "gpt-4o-mini",
			Category:  "General",
			Style:     "default",
		},
		History: HistoryConfig{
			Enable: true,
			Path:   "",
		},
		Output: OutputConfig{
			ClipboardCmd: "wl-copy --trim-newline",
			PasteCmd:     "",
			EnablePaste:  false,
		},
		Notify: NotifyConfig{
			Enable:  true,
			AppName: "dicto",
		},
		Metrics: MetricsConfig{Bind: ""},
		Debug:   DebugConfig{},
	}
}

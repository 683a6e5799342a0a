// Package config resolves, parses, validates, and defaults dicto configuration.
package config

// Config is the fully materialized runtime configuration used by dicto.
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	STT           STTConfig           `yaml:"stt"`
	Formatter     FormatterConfig     `yaml:"formatter"`
	History       HistoryConfig       `yaml:"history"`
	Output        OutputConfig        `yaml:"output"`
	Notify        NotifyConfig        `yaml:"notify"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Debug         DebugConfig         `yaml:"debug"`
}

// AudioConfig controls input-source selection and the requested capture spec.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
	// Rate and Channels are the spec requested from the sound server; the
	// pipeline downmixes and resamples to the recognizer's format itself.
	Rate     int `yaml:"rate"`
	Channels int `yaml:"channels"`
}

// TranscriptionConfig carries the per-session recognition settings.
type TranscriptionConfig struct {
	AutoDetectLanguage bool     `yaml:"auto_detect_language"`
	Languages          []string `yaml:"languages"`
	Keyterms           []string `yaml:"keyterms"`
}

// STTConfig controls the local recognition engine invocation.
type STTConfig struct {
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
}

// FormatterConfig controls the optional remote text formatter.
type FormatterConfig struct {
	Enable    bool   `yaml:"enable"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Category  string `yaml:"category"`
	Style     string `yaml:"style"`
}

// HistoryConfig controls the local transcription history store.
type HistoryConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// OutputConfig controls transcript delivery side effects.
type OutputConfig struct {
	ClipboardCmd string `yaml:"clipboard_cmd"`
	PasteCmd     string `yaml:"paste_cmd"`
	EnablePaste  bool   `yaml:"enable_paste"`
}

// NotifyConfig controls desktop lifecycle notifications.
type NotifyConfig struct {
	Enable  bool   `yaml:"enable"`
	AppName string `yaml:"app_name"`
}

// MetricsConfig controls the optional prometheus endpoint. Empty bind disables it.
type MetricsConfig struct {
	Bind string `yaml:"bind"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool `yaml:"audio_dump"`
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}

package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	shellwords "github.com/mattn/go-shellwords"
)

// SampleRate is the input rate the engine expects.
const SampleRate = 16000

// ExecRecognizer drives a local whisper-cli style process. The command is
// parsed once at construction; each Transcribe writes a temp WAV and runs one
// invocation. A mutex keeps invocations sequential even under misuse.
type ExecRecognizer struct {
	argv      []string
	modelPath string
	mu        sync.Mutex
}

type execResult struct {
	Text string `json:"text"`
}

// NewExecRecognizer parses the configured engine command.
func NewExecRecognizer(command string, modelPath string) (*ExecRecognizer, error) {
	argv, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &ExecRecognizer{argv: argv, modelPath: modelPath}, nil
}

// Transcribe writes samples as a 16 kHz mono WAV and runs the engine once.
// The engine prints JSON {"text": ...} on stdout.
func (r *ExecRecognizer) Transcribe(ctx context.Context, samples []float32, hint Hint) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.CreateTemp(os.TempDir(), "dicto_chunk_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp wav: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := WriteWAV(file, samples, SampleRate, 1); err != nil {
		return "", err
	}

	args := append([]string{}, r.argv[1:]...)
	args = append(args, "--audio", file.Name())
	if r.modelPath != "" {
		args = append(args, "--model", r.modelPath)
	}
	if hint.Language != "" {
		args = append(args, "--language", hint.Language)
	}
	if hint.Prompt != "" {
		args = append(args, "--prompt", hint.Prompt)
	}

	command := exec.CommandContext(ctx, r.argv[0], args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("stt command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("decode stt response: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// WriteWAV encodes normalized float32 samples as 16-bit PCM WAV.
func WriteWAV(file *os.File, samples []float32, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}

	buffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, len(samples)),
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buffer.Data[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

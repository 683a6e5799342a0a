// Package format polishes raw transcripts with a remote language model.
package format

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dictolabs/dicto/internal/config"
)

const requestTimeout = 30 * time.Second

// Formatter rewrites a raw transcript into clean text. Formatting is
// best-effort: any failure returns the raw transcript unchanged so dictation
// never blocks on the remote service.
type Formatter struct {
	client   *openai.Client
	model    string
	category string
	style    string
	logger   *slog.Logger
}

// New builds a formatter from config. It returns nil without error when
// formatting is disabled; callers treat a nil formatter as pass-through.
func New(cfg config.FormatterConfig, logger *slog.Logger) (*Formatter, error) {
	if !cfg.Enable {
		return nil, nil
	}

	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("formatter enabled but %s is not set", cfg.APIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Formatter{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		category: cfg.Category,
		style:    cfg.Style,
		logger:   logger,
	}, nil
}

// Format rewrites text; on any failure the raw text comes back unchanged.
func (f *Formatter) Format(ctx context.Context, text string) string {
	if f == nil || strings.TrimSpace(text) == "" {
		return text
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := f.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(f.category, f.style)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		f.logWarn("transcript formatting failed, using raw text", err)
		return text
	}
	if len(resp.Choices) == 0 {
		f.logWarn("transcript formatting returned no choices", nil)
		return text
	}

	formatted := strings.TrimSpace(resp.Choices[0].Message.Content)
	if formatted == "" {
		return text
	}
	return formatted
}

func (f *Formatter) logWarn(message string, err error) {
	if f.logger == nil {
		return
	}
	if err != nil {
		f.logger.Warn(message, "error", err)
		return
	}
	f.logger.Warn(message)
}

// systemPrompt builds formatting instructions from the configured category
// and style.
func systemPrompt(category, style string) string {
	var b strings.Builder
	b.WriteString("You clean up dictated speech transcripts. ")
	b.WriteString("Fix punctuation, capitalization, and obvious transcription slips. ")
	b.WriteString("Remove filler words. Never add content the speaker did not say. ")
	b.WriteString("Reply with only the cleaned text.")

	if category != "" {
		fmt.Fprintf(&b, " The text is %s.", category)
	}
	if style != "" {
		fmt.Fprintf(&b, " Use a %s tone.", style)
	}
	return b.String()
}

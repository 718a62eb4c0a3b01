// Package transcribe turns audio segments into text fragments
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/model"
)

// Transcriber converts one audio segment into text. An empty string with a
// nil error means the segment held no speech.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, clientID string, audio []byte) (string, error)
}

// New builds the transcriber named in cfg
func New(cfg model.TranscribeConfig, apiKey, baseURL string, logger *zap.Logger) (Transcriber, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "whisper":
		return NewOpenAITranscriber(OpenAIConfig{
			APIKey:   apiKey,
			BaseURL:  baseURL,
			Model:    cfg.Model,
			Language: cfg.Language,
			TempDir:  cfg.TempDir,
			Timeout:  cfg.Timeout,
		}, logger)
	case "text", "":
		return TextTranscriber{}, nil
	default:
		return nil, fmt.Errorf("unknown transcriber: %s (supported: openai, text)", cfg.Provider)
	}
}

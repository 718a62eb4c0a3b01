package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig configures the Whisper transcriber
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	TempDir  string
	Timeout  int // seconds
}

// OpenAITranscriber sends segments to the Whisper transcription endpoint
type OpenAITranscriber struct {
	client *openai.Client
	config OpenAIConfig
	logger *zap.Logger
}

// NewOpenAITranscriber creates a Whisper transcriber
func NewOpenAITranscriber(config OpenAIConfig, logger *zap.Logger) (*OpenAITranscriber, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for transcription")
	}
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAITranscriber{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

func (t *OpenAITranscriber) Name() string {
	return "openai"
}

// Transcribe writes the segment to a temp file, which the API client
// uploads, and removes it afterwards whatever the outcome
func (t *OpenAITranscriber) Transcribe(ctx context.Context, clientID string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	timeout := time.Duration(t.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var text string
	err := WithArtifact(t.config.TempDir, clientID, ".webm", audio, func(path string) error {
		resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    t.config.Model,
			FilePath: path,
			Language: t.config.Language,
		})
		if err != nil {
			return fmt.Errorf("whisper: %w", err)
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if err != nil {
		return "", err
	}

	t.logger.Debug("segment transcribed",
		zap.String("client_id", clientID),
		zap.Int("bytes", len(audio)),
		zap.Int("chars", len(text)))
	return text, nil
}

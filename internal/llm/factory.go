package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config, logger *zap.Logger) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config, logger)

	case "anthropic", "claude":
		return NewAnthropicProvider(config, logger)

	case "ollama":
		return NewOllamaProvider(config, logger)

	case "mock":
		return NewMockProvider(), nil

	case "":
		return nil, fmt.Errorf("no LLM provider configured (supported: openai, anthropic, ollama)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.Config to llm.Config. The evidence proxy
// settings apply to model traffic too.
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxTokens:  cfg.LLM.MaxTokens,
		HTTPProxy:  cfg.Evidence.HTTPProxy,
		HTTPSProxy: cfg.Evidence.HTTPSProxy,
		NoProxy:    cfg.Evidence.NoProxy,
	}
}

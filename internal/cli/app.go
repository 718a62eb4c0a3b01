package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/evidence"
	"github.com/ppiankov/livecheck/internal/llm"
	"github.com/ppiankov/livecheck/internal/model"
	"github.com/ppiankov/livecheck/internal/pipeline"
	"github.com/ppiankov/livecheck/internal/score"
	"github.com/ppiankov/livecheck/internal/synth"
)

// app holds the components shared by every command
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	provider llm.Provider
	pipeline *pipeline.Pipeline
}

// newApp loads the configuration and wires the verification pipeline
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	p := pipeline.New(
		pipeline.NewQueryGenerator(provider),
		evidence.NewClient(cfg.Evidence, cfg.Cache, logger),
		score.NewScorer(provider, score.NewAuthorityClassifier(&cfg.Authority), cfg.Pipeline.ScoringWorkers, logger),
		synth.New(provider, cfg.Synthesis, cfg.LLM.SynthesisModel, logger),
		cfg.Pipeline.RunTimeout,
		logger,
	)

	logger.Debug("pipeline ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.String("synthesis_model", cfg.LLM.SynthesisModel))

	return &app{cfg: cfg, logger: logger, provider: provider, pipeline: p}, nil
}

// providerCheckTimeout bounds the startup availability probe
const providerCheckTimeout = 10 * time.Second

// checkProvider reports whether the model backend answers. An unavailable
// backend is logged, not fatal.
func checkProvider(ctx context.Context, provider llm.Provider, logger *zap.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	if !provider.IsAvailable(ctx) {
		logger.Warn("LLM provider unavailable, scores and verdicts will fall back",
			zap.String("provider", provider.Name()))
		return false
	}
	logger.Info("LLM provider available", zap.String("provider", provider.Name()))
	return true
}

func (a *app) close() {
	_ = a.logger.Sync()
}

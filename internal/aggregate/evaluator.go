package aggregate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/llm"
	"github.com/ppiankov/livecheck/internal/model"
)

// ErrUnparseable is returned when the completeness reply does not decode
var ErrUnparseable = errors.New("unparseable completeness reply")

// Evaluator decides whether a running statement is a complete claim
type Evaluator interface {
	Evaluate(ctx context.Context, text string) (model.Decision, error)
}

// LLMEvaluator asks a language model for the completeness decision
type LLMEvaluator struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewLLMEvaluator creates an evaluator backed by provider
func NewLLMEvaluator(provider llm.Provider, logger *zap.Logger) *LLMEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMEvaluator{provider: provider, logger: logger}
}

type completenessReply struct {
	Complete *bool        `json:"complete"`
	Action   model.Action `json:"action"`
}

func validateCompleteness(r *completenessReply) error {
	if r.Complete == nil {
		return errors.New("missing complete field")
	}
	if !*r.Complete {
		// An incomplete statement always keeps accumulating
		r.Action = model.ActionAppend
		return nil
	}
	if !r.Action.Valid() {
		return fmt.Errorf("unknown action %q", r.Action)
	}
	return nil
}

// Evaluate returns the model's decision over the whole running text
func (e *LLMEvaluator) Evaluate(ctx context.Context, text string) (model.Decision, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletenessRequest(text))
	if err != nil {
		return model.DefaultDecision(), fmt.Errorf("completeness: %w", err)
	}

	d := llm.DecodeJSON(resp.Text, validateCompleteness)
	if !d.OK {
		e.logger.Debug("completeness decode failed",
			zap.String("raw", d.Raw), zap.String("reason", d.Reason))
		return model.DefaultDecision(), fmt.Errorf("%w: %s", ErrUnparseable, d.Reason)
	}

	return model.Decision{Complete: *d.Value.Complete, Action: d.Value.Action}, nil
}

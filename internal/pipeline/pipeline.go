// Package pipeline runs the verification of one claim and streams its progress
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/model"
)

// Retriever returns evidence documents for a search query
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]model.Document, error)
}

// Scorer rates every document against the claim, preserving order
type Scorer interface {
	ScoreAll(ctx context.Context, claim string, docs []model.Document) []model.ScoredDocument
}

// Synthesizer turns scored documents into the final result
type Synthesizer interface {
	Synthesize(ctx context.Context, claim string, scored []model.ScoredDocument) (*model.VerificationResult, error)
}

// Emit delivers one event to the caller
type Emit func(model.Event)

// State is a step of a verification run
type State int

const (
	StateQueryGeneration State = iota
	StateEvidenceRetrieval
	StateScoring
	StateSynthesis
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateQueryGeneration:
		return "query_generation"
	case StateEvidenceRetrieval:
		return "evidence_retrieval"
	case StateScoring:
		return "scoring"
	case StateSynthesis:
		return "synthesis"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pipeline orchestrates query generation, retrieval, scoring and synthesis
type Pipeline struct {
	queries     *QueryGenerator
	retriever   Retriever
	scorer      Scorer
	synthesizer Synthesizer
	runTimeout  time.Duration
	logger      *zap.Logger
}

// New creates a pipeline from its stages
func New(queries *QueryGenerator, retriever Retriever, scorer Scorer, synthesizer Synthesizer, runTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		queries:     queries,
		retriever:   retriever,
		scorer:      scorer,
		synthesizer: synthesizer,
		runTimeout:  runTimeout,
		logger:      logger,
	}
}

// Launch runs the claim in the slot's background. The run is detached from
// the caller: it keeps going under its own timeout even if the slot is
// superseded or closed, only its delivery stops.
func (p *Pipeline) Launch(slot *Slot, claim string) {
	slot.Start(func(emit Emit) {
		ctx, cancel := context.WithTimeout(context.Background(), p.runTimeout)
		defer cancel()
		p.Run(ctx, claim, emit)
	})
}

// Check verifies claim under the run timeout and discards progress events
func (p *Pipeline) Check(ctx context.Context, claim string) (*model.VerificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.runTimeout)
	defer cancel()
	return p.Run(ctx, claim, func(model.Event) {})
}

// Run verifies claim synchronously, emitting one status event per state
// transition. A fatal failure in any state, including a panic, is reported
// as a single error event and no factCheck event follows.
func (p *Pipeline) Run(ctx context.Context, claim string, emit Emit) (result *model.VerificationResult, err error) {
	state := StateQueryGeneration
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = p.fail(claim, state, fmt.Errorf("panic: %v", r), emit)
		}
	}()

	// 1. Generate the search query
	emit(model.NewStatus(model.PhaseSearch, 0, "Generating search query..."))
	query, err := p.queries.Generate(ctx, claim)
	if err != nil {
		return nil, p.fail(claim, state, err, emit)
	}
	emit(model.NewSearch(query, nil))

	// 2. Retrieve evidence
	state = StateEvidenceRetrieval
	docs, err := p.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, p.fail(claim, state, err, emit)
	}
	urls := make([]string, len(docs))
	for i, d := range docs {
		urls[i] = d.URL
	}
	emit(model.NewStatus(model.PhaseSources, 20, fmt.Sprintf("Retrieved %d sources.", len(docs))))
	emit(model.NewSearch(query, urls))

	// 3. Score every document, events in retrieval order
	state = StateScoring
	emit(model.NewStatus(model.PhaseAnalysis, 40, "Analyzing sources..."))
	scored := p.scorer.ScoreAll(ctx, claim, docs)
	for _, sd := range scored {
		emit(model.NewAnalysis(sd))
	}

	// 4. Synthesize the verdict
	state = StateSynthesis
	emit(model.NewStatus(model.PhaseSynthesis, 60, "Synthesizing verdict..."))
	result, err = p.synthesizer.Synthesize(ctx, claim, scored)
	if err != nil {
		return nil, p.fail(claim, state, err, emit)
	}
	emit(model.NewStatus(model.PhaseSynthesis, 90, "Verdict ready."))

	state = StateComplete
	emit(model.NewStatus(model.PhaseComplete, 100, "Fact-check complete"))
	emit(model.NewFactCheck(result))

	p.logger.Info("claim verified",
		zap.String("claim", claim),
		zap.String("query", query),
		zap.Int("sources", len(docs)),
		zap.Float64("truth_score", result.AggregateScore),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// fail reports a fatal failure in state as the run's single error event
func (p *Pipeline) fail(claim string, state State, err error, emit Emit) error {
	err = fmt.Errorf("%s: %w", state, err)
	p.logger.Error("verification failed",
		zap.String("claim", claim),
		zap.String("phase", state.String()),
		zap.Error(err))
	emit(model.NewError(fmt.Sprintf("Error during fact-checking: %v", err)))
	return err
}

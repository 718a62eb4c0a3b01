// Package synth combines scored evidence into the final verdict for a claim
package synth

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/extract"
	"github.com/ppiankov/livecheck/internal/llm"
	"github.com/ppiankov/livecheck/internal/model"
)

// Synthesizer produces a VerificationResult from scored documents
type Synthesizer struct {
	provider      llm.Provider
	topN          int
	excerptLength int
	model         string // empty uses the provider's configured model
	logger        *zap.Logger
	now           func() time.Time
}

// New creates a synthesizer
func New(provider llm.Provider, cfg model.SynthesisConfig, modelName string, logger *zap.Logger) *Synthesizer {
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		provider:      provider,
		topN:          cfg.TopN,
		excerptLength: cfg.ExcerptLength,
		model:         modelName,
		logger:        logger,
		now:           time.Now,
	}
}

type synthReply struct {
	Summary string     `json:"summary"`
	Verdict string     `json:"verdict"`
	Score   llm.Number `json:"score"`
}

func validateReply(r *synthReply) error {
	if strings.TrimSpace(r.Summary) == "" {
		return errors.New("summary is empty")
	}
	if ParseLabel(r.Verdict) == "" {
		return fmt.Errorf("unrecognised verdict %q", r.Verdict)
	}
	return nil
}

// Synthesize ranks the documents, asks the model for a verdict over the
// top N and computes the aggregate score as the mean credibility of those
// N. Only a failed model call is an error; an unparseable reply degrades
// to the free text.
func (s *Synthesizer) Synthesize(ctx context.Context, claim string, scored []model.ScoredDocument) (*model.VerificationResult, error) {
	ranked := Rank(scored)
	selected := ranked[:min(s.topN, len(ranked))]

	sources := make([]llm.SynthesisSource, len(selected))
	for i, d := range selected {
		sources[i] = llm.SynthesisSource{
			URL:         d.URL,
			Credibility: d.Credibility,
			Excerpt:     extract.Truncate(d.Text, s.excerptLength),
		}
	}

	resp, err := s.provider.Complete(ctx, llm.SynthesisRequest(claim, sources, s.model))
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	result := &model.VerificationResult{
		Claim:          claim,
		AggregateScore: Mean(selected),
		Sources:        make([]model.SourceRef, len(ranked)),
		Timestamp:      s.now().UTC(),
	}
	for i, d := range ranked {
		result.Sources[i] = model.SourceRef{URL: d.URL, Credibility: d.Credibility}
	}

	d := llm.DecodeJSON(resp.Text, validateReply)
	if d.OK {
		result.Structured = true
		result.VerdictSummary = strings.TrimSpace(d.Value.Summary)
		result.SupportLabel = ParseLabel(d.Value.Verdict)
		if d.Value.Score.InRange() {
			v := d.Value.Score.Value
			result.ModelScore = &v
		}
		return result, nil
	}

	s.logger.Warn("unstructured synthesis reply",
		zap.String("claim", claim), zap.String("reason", d.Reason))

	result.VerdictSummary = resp.Text
	result.SupportLabel = ParseLabel(resp.Text)
	if result.SupportLabel == "" {
		result.SupportLabel = model.SupportLabel(strings.TrimSpace(resp.Text))
	}
	return result, nil
}

// Rank returns a copy of docs sorted by credibility descending, ties broken
// by retrieval rank
func Rank(docs []model.ScoredDocument) []model.ScoredDocument {
	ranked := slices.Clone(docs)
	slices.SortStableFunc(ranked, func(a, b model.ScoredDocument) int {
		if c := cmp.Compare(b.Credibility, a.Credibility); c != 0 {
			return c
		}
		return cmp.Compare(a.Rank, b.Rank)
	})
	return ranked
}

// Mean is the arithmetic mean credibility, or the neutral score for no documents
func Mean(docs []model.ScoredDocument) float64 {
	if len(docs) == 0 {
		return model.NeutralCredibility
	}
	var sum float64
	for _, d := range docs {
		sum += d.Credibility
	}
	return sum / float64(len(docs))
}

// ParseLabel maps free text to a support label, or "" when neither stance is stated
func ParseLabel(text string) model.SupportLabel {
	lower := strings.ToLower(text)
	for _, neg := range []string{"does not support", "doesn't support", "not support", "doesnotsupport", "contradict", "refute"} {
		if strings.Contains(lower, neg) {
			return model.SupportDoesNotSupport
		}
	}
	if strings.Contains(lower, "support") {
		return model.SupportSupports
	}
	return ""
}

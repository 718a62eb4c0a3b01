// Package score rates individual evidence documents against a claim
package score

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/livecheck/internal/llm"
	"github.com/ppiankov/livecheck/internal/model"
)

// Scorer rates one document per model call. It never fails: any problem
// yields the neutral credibility with Fallback set.
type Scorer struct {
	provider  llm.Provider
	authority *AuthorityClassifier
	workers   int
	logger    *zap.Logger
}

// NewScorer creates a credibility scorer. workers bounds concurrent model
// calls in ScoreAll; 0 means one goroutine per document.
func NewScorer(provider llm.Provider, authority *AuthorityClassifier, workers int, logger *zap.Logger) *Scorer {
	if authority == nil {
		authority = NewAuthorityClassifier(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		provider:  provider,
		authority: authority,
		workers:   workers,
		logger:    logger,
	}
}

type scoreReply struct {
	Score     llm.Number `json:"score"`
	Rationale string     `json:"rationale"`
}

var errScoreRange = errors.New("score missing or outside 0-100")

func validateScore(r *scoreReply) error {
	if !r.Score.InRange() {
		return errScoreRange
	}
	return nil
}

// Score rates doc as evidence about claim
func (s *Scorer) Score(ctx context.Context, claim string, doc model.Document) model.ScoredDocument {
	tier := s.authority.Classify(doc.URL)
	scored := model.ScoredDocument{Document: doc, Authority: tier}

	resp, err := s.provider.Complete(ctx, llm.ScoreRequest(claim, doc.URL, tier.String(), doc.Text))
	if err != nil {
		s.logger.Warn("scoring call failed, using neutral score",
			zap.String("url", doc.URL), zap.Error(err))
		scored.Credibility = model.NeutralCredibility
		scored.Rationale = fmt.Sprintf("scoring unavailable: %v", err)
		scored.Fallback = true
		return scored
	}

	d := parseScore(resp.Text)
	if !d.OK {
		s.logger.Warn("unparseable score, using neutral score",
			zap.String("url", doc.URL), zap.String("reason", d.Reason))
	}

	scored.Credibility = d.Value.Score.Value
	scored.Rationale = d.Value.Rationale
	scored.Fallback = !d.OK
	return scored
}

// ScoreAll scores every document concurrently. The result keeps the input
// order whatever order the calls finish in.
func (s *Scorer) ScoreAll(ctx context.Context, claim string, docs []model.Document) []model.ScoredDocument {
	results := make([]model.ScoredDocument, len(docs))

	var g errgroup.Group
	if s.workers > 0 {
		g.SetLimit(s.workers)
	}
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = s.scoreRecovered(ctx, claim, doc)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// scoreRecovered runs Score on a worker goroutine, where a panic would
// otherwise take the process down. A panic scores the document neutral.
func (s *Scorer) scoreRecovered(ctx context.Context, claim string, doc model.Document) (scored model.ScoredDocument) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scoring panicked, using neutral score",
				zap.String("url", doc.URL), zap.Any("panic", r))
			scored = model.ScoredDocument{
				Document:    doc,
				Authority:   s.authority.Classify(doc.URL),
				Credibility: model.NeutralCredibility,
				Rationale:   fmt.Sprintf("scoring unavailable: panic: %v", r),
				Fallback:    true,
			}
		}
	}()
	return s.Score(ctx, claim, doc)
}

// semiStructured matches replies like "Score: 72/100" or "credibility score of 85"
var semiStructured = regexp.MustCompile(`(?i)(?:score|credibility|rating)\D{0,20}?(\d{1,3}(?:\.\d+)?)\s*(?:/\s*100|%|\b)`)

// parseScore decodes the strict JSON reply first, then a semi-structured
// score. On fallback the value carries the neutral score and the raw text
// as rationale.
func parseScore(raw string) llm.Decoded[scoreReply] {
	d := llm.DecodeJSON(raw, validateScore)
	if d.OK {
		d.Value.Score.Value = model.ClampScore(d.Value.Score.Value)
		if strings.TrimSpace(d.Value.Rationale) == "" {
			d.Value.Rationale = raw
		}
		return d
	}

	if m := semiStructured.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 100 {
			return llm.Decoded[scoreReply]{
				Value: scoreReply{Score: llm.Number{Value: v, Set: true}, Rationale: raw},
				OK:    true,
				Raw:   raw,
			}
		}
	}

	return llm.Fallback(raw, scoreReply{
		Score:     llm.Number{Value: model.NeutralCredibility, Set: true},
		Rationale: raw,
	}, d.Reason)
}

package model

import "time"

// SupportLabel is the synthesized stance of the evidence towards a claim
type SupportLabel string

const (
	SupportSupports       SupportLabel = "supports"
	SupportDoesNotSupport SupportLabel = "doesNotSupport"
)

// SourceRef is a source retained in the final verdict
type SourceRef struct {
	URL         string  `json:"url"`
	Credibility float64 `json:"credibility"`
}

// VerificationResult is the terminal artifact of one pipeline run.
// It is never modified after it is emitted.
type VerificationResult struct {
	Claim          string       `json:"claim"`
	VerdictSummary string       `json:"verdict_summary"`
	SupportLabel   SupportLabel `json:"support_label"`
	AggregateScore float64      `json:"aggregate_score"` // Mean credibility of the top-ranked sources
	ModelScore     *float64     `json:"model_score,omitempty"`
	Sources        []SourceRef  `json:"sources"`
	Structured     bool         `json:"structured"` // false when the synthesis output could not be decoded
	Timestamp      time.Time    `json:"timestamp"`
}

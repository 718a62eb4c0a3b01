package model

import "time"

// EventType is the discriminator of every record sent to a client
type EventType string

const (
	EventStatus        EventType = "status"
	EventSearch        EventType = "search"
	EventAnalysis      EventType = "analysis"
	EventTranscription EventType = "transcription"
	EventFactCheck     EventType = "factCheck"
	EventError         EventType = "error"
)

// Phase is the coarse pipeline phase reported in status events
type Phase string

const (
	PhaseSearch    Phase = "search"
	PhaseSources   Phase = "sources"
	PhaseAnalysis  Phase = "analysis"
	PhaseSynthesis Phase = "synthesis"
	PhaseComplete  Phase = "complete"
)

// Event is any record in a client's outbound stream
type Event interface {
	Kind() EventType
}

// StatusEvent reports a pipeline state transition
type StatusEvent struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message"`
	Phase    Phase     `json:"phase"`
	Progress int       `json:"progress"`
}

func (StatusEvent) Kind() EventType { return EventStatus }

// SearchEvent carries the generated query and, once retrieval finished, the sources
type SearchEvent struct {
	Type    EventType `json:"type"`
	Query   string    `json:"query"`
	Sources []string  `json:"sources"`
}

func (SearchEvent) Kind() EventType { return EventSearch }

// AnalysisEvent is emitted once per scored document
type AnalysisEvent struct {
	Type        EventType `json:"type"`
	Source      string    `json:"source"`
	Credibility float64   `json:"credibility"`
	Summary     string    `json:"summary"`
	Authority   string    `json:"authority,omitempty"`
}

func (AnalysisEvent) Kind() EventType { return EventAnalysis }

// TranscriptionEvent echoes an accepted fragment
type TranscriptionEvent struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}

func (TranscriptionEvent) Kind() EventType { return EventTranscription }

// FactCheckEvent is the terminal success event of a claim
type FactCheckEvent struct {
	Type       EventType    `json:"type"`
	Statement  string       `json:"statement"`
	Correction string       `json:"correction"`
	Verdict    SupportLabel `json:"verdict"`
	Sources    []SourceRef  `json:"sources"`
	Timestamp  string       `json:"timestamp"`
	TruthScore float64      `json:"truthScore"`
}

func (FactCheckEvent) Kind() EventType { return EventFactCheck }

// ErrorEvent reports an unrecoverable failure
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func (ErrorEvent) Kind() EventType { return EventError }

func NewStatus(phase Phase, progress int, message string) StatusEvent {
	return StatusEvent{Type: EventStatus, Message: message, Phase: phase, Progress: progress}
}

func NewSearch(query string, sources []string) SearchEvent {
	if sources == nil {
		sources = []string{}
	}
	return SearchEvent{Type: EventSearch, Query: query, Sources: sources}
}

func NewAnalysis(doc ScoredDocument) AnalysisEvent {
	return AnalysisEvent{
		Type:        EventAnalysis,
		Source:      doc.URL,
		Credibility: doc.Credibility,
		Summary:     doc.Rationale,
		Authority:   doc.Authority.String(),
	}
}

func NewTranscription(text string) TranscriptionEvent {
	return TranscriptionEvent{Type: EventTranscription, Text: text}
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}

// NewFactCheck converts a verification result into its wire form
func NewFactCheck(r *VerificationResult) FactCheckEvent {
	sources := r.Sources
	if sources == nil {
		sources = []SourceRef{}
	}
	return FactCheckEvent{
		Type:       EventFactCheck,
		Statement:  r.Claim,
		Correction: r.VerdictSummary,
		Verdict:    r.SupportLabel,
		Sources:    sources,
		Timestamp:  r.Timestamp.Format(time.RFC3339),
		TruthScore: r.AggregateScore,
	}
}

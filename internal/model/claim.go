package model

// Action tells the aggregator what to do with the running statement after a
// completeness evaluation
type Action string

const (
	ActionAppend Action = "append" // Keep accumulating into the running statement
	ActionNew    Action = "new"    // Statement is closed; next fragment starts a fresh one
)

// Valid reports whether a is one of the known actions
func (a Action) Valid() bool {
	return a == ActionAppend || a == ActionNew
}

// Decision is the outcome of evaluating the running statement after a fragment
type Decision struct {
	Complete bool   `json:"complete"`
	Action   Action `json:"action"`

	// Trigger is set when the statement must be verified. It is false when
	// the same text was already checked for this client.
	Trigger bool `json:"trigger"`

	// Claim is the text to verify when Trigger is set
	Claim string `json:"claim,omitempty"`
}

// DefaultDecision is used whenever completeness cannot be evaluated
func DefaultDecision() Decision {
	return Decision{Complete: false, Action: ActionAppend}
}

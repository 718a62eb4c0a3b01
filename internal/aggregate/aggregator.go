// Package aggregate accumulates transcribed fragments into candidate claims
package aggregate

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/model"
)

// statement is the running text of one client
type statement struct {
	mu          sync.Mutex
	text        string
	lastChecked string
}

// Aggregator owns the running statement of every connected client. Each
// client's ingest, evaluation and trigger decision happen under that
// client's lock; clients never contend with each other.
type Aggregator struct {
	evaluator Evaluator
	logger    *zap.Logger

	mu      sync.Mutex
	clients map[string]*statement
}

// New creates an aggregator
func New(evaluator Evaluator, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		evaluator: evaluator,
		logger:    logger,
		clients:   make(map[string]*statement),
	}
}

func (a *Aggregator) get(clientID string) *statement {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.clients[clientID]
	if !ok {
		s = &statement{}
		a.clients[clientID] = s
	}
	return s
}

// Ingest appends fragment to the client's running statement and evaluates
// the whole text. Decision.Trigger is set when the text is complete and
// differs from the last text that triggered a check. An evaluation failure
// yields the default decision and never loses accumulated text.
func (a *Aggregator) Ingest(ctx context.Context, clientID, fragment string) model.Decision {
	s := a.get(clientID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = Join(s.text, fragment)
	if s.text == "" {
		return model.DefaultDecision()
	}

	decision, err := a.evaluator.Evaluate(ctx, s.text)
	if err != nil {
		a.logger.Warn("completeness evaluation failed",
			zap.String("client_id", clientID), zap.Error(err))
		return model.DefaultDecision()
	}
	if !decision.Complete {
		return model.DefaultDecision()
	}

	if s.text != s.lastChecked {
		decision.Trigger = true
		decision.Claim = s.text
		s.lastChecked = s.text
	}
	if decision.Action == model.ActionNew {
		s.text = ""
	}

	a.logger.Debug("statement evaluated",
		zap.String("client_id", clientID),
		zap.String("action", string(decision.Action)),
		zap.Bool("trigger", decision.Trigger))

	return decision
}

// Text returns the client's current running text
func (a *Aggregator) Text(clientID string) string {
	a.mu.Lock()
	s, ok := a.clients[clientID]
	a.mu.Unlock()
	if !ok {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Release drops all state of a client
func (a *Aggregator) Release(clientID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.clients, clientID)
}

// Len returns the number of clients with state
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clients)
}

// Join appends fragment to text and collapses all whitespace runs
func Join(text, fragment string) string {
	return strings.Join(strings.Fields(text+" "+fragment), " ")
}

package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockProvider is a scripted Provider for tests and offline runs.
// Responses and Errors are keyed by CompletionRequest.Task; Respond, when set,
// takes precedence over both.
type MockProvider struct {
	Responses map[string]string
	Errors    map[string]error
	Respond   func(req CompletionRequest) (string, error)

	// Delay is applied before answering; the context can cut it short
	Delay time.Duration

	mu    sync.Mutex
	calls []CompletionRequest
}

// NewMockProvider returns a mock that treats every statement as a complete new claim
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Responses: map[string]string{
			TaskCompleteness: `{"complete": true, "action": "new"}`,
			TaskQuery:        "fact check",
			TaskScore:        `{"score": 50, "rationale": "mock rationale"}`,
			TaskSynthesis:    `{"summary": "mock summary", "verdict": "Supports", "score": 50}`,
		},
		Errors: map[string]error{},
	}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return true
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var (
		text string
		err  error
	)
	switch {
	case m.Respond != nil:
		text, err = m.Respond(req)
	case m.Errors[req.Task] != nil:
		err = m.Errors[req.Task]
	default:
		var ok bool
		text, ok = m.Responses[req.Task]
		if !ok {
			err = fmt.Errorf("mock: no response for task %q: %w", req.Task, ErrEmptyResponse)
		}
	}
	if err != nil {
		return nil, err
	}

	return &CompletionResponse{Text: text, Model: "mock", TokensUsed: len(text) / 4}, nil
}

// Calls returns a copy of every request received
func (m *MockProvider) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many requests carried the given task
func (m *MockProvider) CallCount(task string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Task == task {
			n++
		}
	}
	return n
}

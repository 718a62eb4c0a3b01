package aggregate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/livecheck/internal/llm"
	"github.com/ppiankov/livecheck/internal/model"
)

// funcEvaluator adapts a function to Evaluator
type funcEvaluator func(ctx context.Context, text string) (model.Decision, error)

func (f funcEvaluator) Evaluate(ctx context.Context, text string) (model.Decision, error) {
	return f(ctx, text)
}

func incomplete() funcEvaluator {
	return func(context.Context, string) (model.Decision, error) {
		return model.Decision{Complete: false, Action: model.ActionAppend}, nil
	}
}

func TestIngest_MoonScenario(t *testing.T) {
	var seen []string
	eval := funcEvaluator(func(_ context.Context, text string) (model.Decision, error) {
		seen = append(seen, text)
		if strings.HasSuffix(text, ".") {
			return model.Decision{Complete: true, Action: model.ActionNew}, nil
		}
		return model.Decision{Complete: false, Action: model.ActionAppend}, nil
	})
	a := New(eval, nil)

	d1 := a.Ingest(context.Background(), "c1", "The moon")
	assert.False(t, d1.Trigger)
	assert.Equal(t, model.DefaultDecision(), d1)

	d2 := a.Ingest(context.Background(), "c1", "is made of cheese.")
	assert.True(t, d2.Trigger)
	assert.Equal(t, "The moon is made of cheese.", d2.Claim)
	assert.Equal(t, model.ActionNew, d2.Action)

	assert.Equal(t, "", a.Text("c1"))
	assert.Equal(t, []string{"The moon", "The moon is made of cheese."}, seen, "evaluator sees the full text")
}

func TestIngest_WhitespaceJoined(t *testing.T) {
	a := New(incomplete(), nil)
	fragments := []string{"  one", "two  ", "\tthree\nfour", "", "five"}

	for _, f := range fragments {
		a.Ingest(context.Background(), "c1", f)
	}

	assert.Equal(t, "one two three four five", a.Text("c1"))
}

func TestIngest_AppendKeepsTextAndGuardsDuplicates(t *testing.T) {
	calls := 0
	eval := funcEvaluator(func(context.Context, string) (model.Decision, error) {
		calls++
		return model.Decision{Complete: true, Action: model.ActionAppend}, nil
	})
	a := New(eval, nil)

	d1 := a.Ingest(context.Background(), "c1", "Water boils at 100C.")
	require.True(t, d1.Trigger)
	assert.Equal(t, "Water boils at 100C.", a.Text("c1"))

	// No-op fragment re-evaluates the same text but must not trigger again
	d2 := a.Ingest(context.Background(), "c1", "")
	assert.True(t, d2.Complete)
	assert.False(t, d2.Trigger)
	assert.Equal(t, 2, calls)

	d3 := a.Ingest(context.Background(), "c1", "At sea level.")
	assert.True(t, d3.Trigger)
	assert.Equal(t, "Water boils at 100C. At sea level.", d3.Claim)
}

func TestIngest_EmptyTextSkipsEvaluation(t *testing.T) {
	eval := funcEvaluator(func(context.Context, string) (model.Decision, error) {
		t.Fatalf("Expected no evaluation for empty text")
		return model.Decision{}, nil
	})
	a := New(eval, nil)

	d := a.Ingest(context.Background(), "c1", "   ")
	assert.Equal(t, model.DefaultDecision(), d)
}

func TestIngest_EvaluationFailureDefaults(t *testing.T) {
	eval := funcEvaluator(func(context.Context, string) (model.Decision, error) {
		return model.Decision{Complete: true, Action: model.ActionNew}, errors.New("model down")
	})
	a := New(eval, nil)

	d := a.Ingest(context.Background(), "c1", "Paris is the capital of France.")
	assert.Equal(t, model.DefaultDecision(), d)
	assert.Equal(t, "Paris is the capital of France.", a.Text("c1"), "text is never lost")
}

func TestIngest_ClientsArePartitioned(t *testing.T) {
	a := New(incomplete(), nil)

	a.Ingest(context.Background(), "a", "alpha")
	a.Ingest(context.Background(), "b", "beta")

	assert.Equal(t, "alpha", a.Text("a"))
	assert.Equal(t, "beta", a.Text("b"))

	a.Release("a")
	assert.Equal(t, "", a.Text("a"))
	assert.Equal(t, 1, a.Len())
}

func TestIngest_ConcurrentFragmentsTriggerOnce(t *testing.T) {
	eval := funcEvaluator(func(context.Context, string) (model.Decision, error) {
		return model.Decision{Complete: true, Action: model.ActionAppend}, nil
	})
	a := New(eval, nil)
	a.Ingest(context.Background(), "c1", "The sky is blue.")

	var triggers atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.Ingest(context.Background(), "c1", "").Trigger {
				triggers.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), triggers.Load())
}

func TestLLMEvaluator(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected model.Decision
		wantErr  bool
	}{
		{"complete new", `{"complete": true, "action": "new"}`, model.Decision{Complete: true, Action: model.ActionNew}, false},
		{"complete append", "```json\n{\"complete\": true, \"action\": \"append\"}\n```", model.Decision{Complete: true, Action: model.ActionAppend}, false},
		{"incomplete forces append", `{"complete": false, "action": "new"}`, model.Decision{Complete: false, Action: model.ActionAppend}, false},
		{"missing complete", `{"action": "new"}`, model.DefaultDecision(), true},
		{"bad action", `{"complete": true, "action": "later"}`, model.DefaultDecision(), true},
		{"prose", `Yes, that is a complete sentence.`, model.DefaultDecision(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider()
			mock.Responses[llm.TaskCompleteness] = tt.reply

			got, err := NewLLMEvaluator(mock, nil).Evaluate(context.Background(), "text")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnparseable)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLLMEvaluator_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Errors[llm.TaskCompleteness] = errors.New("rate limited")

	got, err := NewLLMEvaluator(mock, nil).Evaluate(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, model.DefaultDecision(), got)
	assert.Contains(t, mock.Calls()[0].Prompt, `"text"`)
}

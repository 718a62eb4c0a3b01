package worker

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/livecheck/internal/model"
)

// MockChecker implements Checker
type MockChecker struct {
	FailOn string
	Delay  time.Duration
}

func (m *MockChecker) Check(ctx context.Context, statement string) (*model.VerificationResult, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.FailOn != "" && strings.Contains(statement, m.FailOn) {
		return nil, errors.New("check error")
	}
	return &model.VerificationResult{
		Claim:          statement,
		SupportLabel:   model.SupportSupports,
		AggregateScore: 75,
	}, nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "statements")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestBatchProcessor_ProcessStatements(t *testing.T) {
	processor := NewBatchProcessor(&MockChecker{Delay: 5 * time.Millisecond}, 2)

	statements := []string{"Water boils at 100C.", "The Earth is round.", "Paris is in France."}
	results := processor.ProcessStatements(context.Background(), statements)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Statement != statements[i] {
			t.Errorf("expected result %d for %q, got %q", i, statements[i], res.Statement)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Statement, res.Error)
		}
		if res.Result == nil || res.Result.Claim != statements[i] {
			t.Errorf("expected verification result for %q", statements[i])
		}
	}
}

func TestBatchProcessor_ProcessStatements_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockChecker{FailOn: "moon"}, 2)

	results := processor.ProcessStatements(context.Background(), []string{"The sky is blue.", "The moon is cheese."})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("expected first statement to succeed, got %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[1].Result != nil {
		t.Error("expected nil result on error")
	}
}

func TestBatchProcessor_ProcessStatements_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockChecker{}, 2)

	results := processor.ProcessStatements(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessStatements_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&MockChecker{Delay: time.Second}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	statements := []string{"a", "b", "c", "d", "e"}
	results := processor.ProcessStatements(ctx, statements)

	if len(results) != len(statements) {
		t.Fatalf("expected %d results, got %d", len(statements), len(results))
	}
	for _, res := range results {
		if res.Error == nil {
			t.Errorf("expected error for %q after cancellation", res.Statement)
		}
	}
}

func TestReadStatementsFromFile(t *testing.T) {
	path := writeTemp(t, `Water boils at 100C.
# comment
  The Earth   is round.
   
Water boils at 100C.
Paris is in France.   `)

	statements, err := ReadStatementsFromFile(path)
	if err != nil {
		t.Fatalf("ReadStatementsFromFile failed: %v", err)
	}

	expected := []string{"Water boils at 100C.", "The Earth is round.", "Paris is in France."}
	if len(statements) != len(expected) {
		t.Fatalf("expected %d statements, got %d", len(expected), len(statements))
	}

	for i, s := range statements {
		if s != expected[i] {
			t.Errorf("expected statement %q at index %d, got %q", expected[i], i, s)
		}
	}
}

func TestReadStatementsFromFile_NonExistent(t *testing.T) {
	_, err := ReadStatementsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestCheckResult_GetError(t *testing.T) {
	r1 := &CheckResult{Statement: "x", Error: nil}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("check failed")
	r2 := &CheckResult{Statement: "x", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "Water boils at 100C.\nThe Earth is round.\n# comment\n\nParis is in France.\n")

	processor := NewBatchProcessor(&MockChecker{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockChecker{}, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	path := writeTemp(t, "")

	processor := NewBatchProcessor(&MockChecker{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}

package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/livecheck/internal/model"
)

// Checker verifies a single statement
type Checker interface {
	Check(ctx context.Context, statement string) (*model.VerificationResult, error)
}

// CheckJob verifies one statement of a batch
type CheckJob struct {
	Index     int
	Statement string
	Checker   Checker
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	result, err := j.Checker.Check(ctx, j.Statement)
	if err != nil {
		return &CheckResult{Index: j.Index, Statement: j.Statement, Error: err}
	}
	return &CheckResult{Index: j.Index, Statement: j.Statement, Result: result}
}

// CheckResult is the outcome of one statement
type CheckResult struct {
	Index     int
	Statement string
	Result    *model.VerificationResult
	Error     error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many statements concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessStatements checks every statement and returns the results in
// input order. Statements skipped because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessStatements(ctx context.Context, statements []string) []*CheckResult {
	if len(statements) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	out := make([]*CheckResult, len(statements))
	for i, s := range statements {
		if !pool.Submit(&CheckJob{Index: i, Statement: s, Checker: b.checker}) {
			out[i] = &CheckResult{Index: i, Statement: s, Error: ctx.Err()}
		}
	}

	for _, r := range pool.Wait() {
		cr := r.(*CheckResult)
		out[cr.Index] = cr
	}

	// Queued jobs no worker picked up before cancellation
	for i, s := range statements {
		if out[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &CheckResult{Index: i, Statement: s, Error: err}
		}
	}

	return out
}

// ProcessFile reads statements from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	statements, err := ReadStatementsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read statements: %w", err)
	}

	return b.ProcessStatements(ctx, statements), nil
}

// ReadStatementsFromFile reads one statement per line, skipping blank
// lines and # comments and dropping duplicates
func ReadStatementsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var statements []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			statements = append(statements, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return statements, nil
}

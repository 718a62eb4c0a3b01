package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/livecheck/internal/llm"
)

// ErrEmptyQuery is returned when the model produced no usable query
var ErrEmptyQuery = errors.New("empty search query")

// QueryGenerator turns a claim into a web search query
type QueryGenerator struct {
	provider llm.Provider
}

// NewQueryGenerator creates a query generator
func NewQueryGenerator(provider llm.Provider) *QueryGenerator {
	return &QueryGenerator{provider: provider}
}

// Generate asks the model for a query and strips whitespace and quotes
func (g *QueryGenerator) Generate(ctx context.Context, claim string) (string, error) {
	resp, err := g.provider.Complete(ctx, llm.QueryRequest(claim))
	if err != nil {
		return "", fmt.Errorf("generate query: %w", err)
	}

	query := CleanQuery(resp.Text)
	if query == "" {
		return "", ErrEmptyQuery
	}
	return query, nil
}

// CleanQuery trims whitespace and surrounding quotes from a model reply
func CleanQuery(raw string) string {
	q := strings.TrimSpace(raw)
	q = strings.TrimPrefix(q, "Query:")
	q = strings.TrimSpace(q)
	q = strings.Trim(q, "\"'`")
	return strings.TrimSpace(q)
}

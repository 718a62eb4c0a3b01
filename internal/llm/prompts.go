package llm

import (
	"fmt"
	"strings"
)

// Task labels
const (
	TaskCompleteness = "completeness"
	TaskQuery        = "query"
	TaskScore        = "score"
	TaskSynthesis    = "synthesis"
)

const completenessPrompt = `Given the following aggregated transcription:
"%s"

Answer as JSON with two keys:
1. "complete": true if this transcription forms a complete fact statement, otherwise false.
2. "action": if complete is true, respond with "new" if this transcription starts a new fact compared to previous ones, or "append" if it continues the previous fact.

For example: {"complete": true, "action": "new"} or {"complete": true, "action": "append"}.
If not complete, respond with {"complete": false, "action": "append"}.`

const querySystem = `Generate a precise web search query to fact-check the claim. Respond with the query only, no quotes, no explanation.`

const scoreSystem = `You are a source credibility analyst. Rate how trustworthy and relevant a web document is as evidence about a claim.`

const scorePrompt = `Claim: %s

Source URL: %s
Source authority tier: %s

Document text:
%s

Rate the credibility of this document as evidence about the claim on a 0-100 scale.
Respond ONLY with JSON, no markdown:
{"score": <number 0-100>, "rationale": "one or two sentences"}`

const synthesisSystem = `You are a fact-checking assistant that summarizes source content and determines whether the overall evidence supports the given claim.`

const synthesisPrompt = `Claim: %s

Sources:
%s

Summarize the main points from the above sources and determine whether they support the claim.
Respond ONLY with JSON, no markdown:
{"summary": "...", "verdict": "Supports" or "Does not support", "score": <number 0-100>}`

// CompletenessRequest builds the completeness evaluation over the full running text
func CompletenessRequest(text string) CompletionRequest {
	return CompletionRequest{
		Task:   TaskCompleteness,
		Prompt: fmt.Sprintf(completenessPrompt, text),
		JSON:   true,
	}
}

// QueryRequest builds the search query generation call
func QueryRequest(claim string) CompletionRequest {
	return CompletionRequest{
		Task:      TaskQuery,
		System:    querySystem,
		Prompt:    "Claim: " + claim,
		MaxTokens: 64,
	}
}

// ScoreRequest builds the per-document credibility call
func ScoreRequest(claim, url, tier, text string) CompletionRequest {
	return CompletionRequest{
		Task:   TaskScore,
		System: scoreSystem,
		Prompt: fmt.Sprintf(scorePrompt, claim, url, tier, text),
		JSON:   true,
	}
}

// SynthesisSource is one excerpt shown to the synthesis model
type SynthesisSource struct {
	URL         string
	Credibility float64
	Excerpt     string
}

// SynthesisRequest builds the verdict call over the selected sources
func SynthesisRequest(claim string, sources []SynthesisSource, model string) CompletionRequest {
	var b strings.Builder
	for i, s := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Source %d (%s, credibility %.0f): %s...", i+1, s.URL, s.Credibility, s.Excerpt)
	}
	if len(sources) == 0 {
		b.WriteString("(no sources could be retrieved)")
	}
	return CompletionRequest{
		Task:   TaskSynthesis,
		System: synthesisSystem,
		Prompt: fmt.Sprintf(synthesisPrompt, claim, b.String()),
		Model:  model,
		JSON:   true,
	}
}

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decoded is the outcome of decoding model output: either a validated value
// (OK) or a fallback carrying the raw text and the reason decoding failed
type Decoded[T any] struct {
	Value  T
	OK     bool
	Raw    string
	Reason string
}

// Fallback returns a failed decode holding def
func Fallback[T any](raw string, def T, reason string) Decoded[T] {
	return Decoded[T]{Value: def, Raw: raw, Reason: reason}
}

// DecodeJSON parses the first JSON object in raw into T and runs validate on
// it. Markdown code fences around the object are tolerated.
func DecodeJSON[T any](raw string, validate func(*T) error) Decoded[T] {
	var zero T

	body, err := jsonObject(raw)
	if err != nil {
		return Fallback(raw, zero, err.Error())
	}

	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return Fallback(raw, zero, fmt.Sprintf("invalid JSON: %v", err))
	}
	if validate != nil {
		if err := validate(&v); err != nil {
			return Fallback(raw, zero, err.Error())
		}
	}

	return Decoded[T]{Value: v, OK: true, Raw: raw}
}

var errNoObject = errors.New("no JSON object in response")

func jsonObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", errNoObject
	}
	return s[start : end+1], nil
}

// Number accepts a JSON number or a numeric string such as "72" or "72/100"
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if i := strings.Index(s, "/"); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", string(b))
	}
	n.Value, n.Set = v, true
	return nil
}

// InRange reports whether the number was present and within [0, 100]
func (n Number) InRange() bool {
	return n.Set && n.Value >= 0 && n.Value <= 100
}

// Package parse extracts a score and explanation from free-form model output.
//
// Strategies run in order and the first that yields a numeric score wins. A
// chain never fails: when nothing matches it returns a neutral default.
package parse

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
)

// FallbackExplanation is used when no strategy recognizes the output.
const FallbackExplanation = "model did not return valid structured output"

// Strategy names, reported in Result for diagnostics.
const (
	StrategyLastObject = "last_object"
	StrategyLastMatch  = "last_match"
	StrategyDefault    = "default"
)

// Result is a parsed score and explanation. Score is clamped to [-1, 1].
type Result struct {
	Score       float64
	Explanation string
	Strategy    string
}

// Strategy attempts to parse raw model output.
type Strategy interface {
	Name() string
	Parse(raw string) (Result, bool)
}

// Chain is an ordered list of strategies with a guaranteed default.
type Chain []Strategy

// DefaultChain tries the last top-level JSON object, then the last
// score/explanation regex match.
func DefaultChain() Chain {
	return Chain{LastObject{}, LastMatch{}}
}

// Parse runs each strategy in order and clamps the winning score.
func (c Chain) Parse(raw string) Result {
	for _, s := range c {
		if res, ok := s.Parse(raw); ok {
			res.Score = Clamp(res.Score)
			res.Strategy = s.Name()
			return res
		}
	}
	return Result{Score: 0, Explanation: FallbackExplanation, Strategy: StrategyDefault}
}

// Clamp bounds a score to [-1, 1]. NaN becomes 0.
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(-1, math.Min(1, score))
}

// LastObject parses the last balanced top-level {...} span strictly. It
// requires a numeric "score"; a non-string explanation is treated as empty.
type LastObject struct{}

func (LastObject) Name() string { return StrategyLastObject }

func (LastObject) Parse(raw string) (Result, bool) {
	candidate, ok := lastTopLevelObject(raw)
	if !ok {
		return Result{}, false
	}

	var obj struct {
		Score       *float64        `json:"score"`
		Explanation json.RawMessage `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj.Score == nil {
		return Result{}, false
	}

	var explanation string
	if len(obj.Explanation) > 0 {
		if err := json.Unmarshal(obj.Explanation, &explanation); err != nil {
			explanation = ""
		}
	}
	return Result{Score: *obj.Score, Explanation: explanation}, true
}

// lastTopLevelObject returns the last span that opens a brace at depth zero
// and closes it. Braces inside JSON strings are ignored once inside an object.
func lastTopLevelObject(s string) (string, bool) {
	var (
		depth    int
		start    = -1
		inString bool
		escaped  bool
		last     string
		found    bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					last, found = s[start:i+1], true
				}
			}
		}
	}
	return last, found
}

var scoreExplanationPattern = regexp.MustCompile(
	`\{\s*"score"\s*:\s*(-?\d+(?:\.\d+)?)\s*,\s*"explanation"\s*:\s*"((?:[^"\\]|\\.)*)"\s*\}`)

// LastMatch takes the last {"score": n, "explanation": "..."} pattern
// anywhere in the output, including inside otherwise invalid JSON.
type LastMatch struct{}

func (LastMatch) Name() string { return StrategyLastMatch }

func (LastMatch) Parse(raw string) (Result, bool) {
	matches := scoreExplanationPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return Result{}, false
	}
	m := matches[len(matches)-1]

	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Result{}, false
	}
	explanation, err := strconv.Unquote(`"` + m[2] + `"`)
	if err != nil {
		explanation = m[2]
	}
	return Result{Score: score, Explanation: explanation}, true
}

// Package explain produces and vets the human-readable explanation attached
// to a bias score.
package explain

import (
	"fmt"
	"math"
	"strings"
)

// SignificantThreshold separates "slight" from "significant" lean.
const SignificantThreshold = 0.3

// Placeholder is the template text a model sometimes echoes back verbatim.
const Placeholder = "[detailed political bias analysis explaining WHY the text leans left or right]"

var placeholders = map[string]struct{}{
	strings.ToLower(Placeholder): {},
	"explanation":                {},
	"<explanation>":              {},
	"one or two sentences":       {},
	"<one or two sentences>":     {},
	"text":                       {},
	"...":                        {},
	"n/a":                        {},
	"none":                       {},
}

var biasKeywords = []string{"left", "right", "liberal", "conservative", "bias", "politic"}

// Sanitize returns explanation unless it is empty, a known placeholder, or
// mentions none of the bias keywords, in which case a sentence is
// synthesized from score.
func Sanitize(explanation string, score float64) string {
	trimmed := strings.TrimSpace(explanation)
	lower := strings.ToLower(trimmed)
	if trimmed == "" || isPlaceholder(lower) || !mentionsBias(lower) {
		return Synthesize(score)
	}
	return trimmed
}

// Synthesize describes score in one sentence: its strength, its direction,
// and the score itself.
func Synthesize(score float64) string {
	abs := math.Abs(score)
	if abs == 0 || math.IsNaN(score) {
		return "The text appears politically neutral, with no clear left or right bias (score 0.00)."
	}

	strength := "slight"
	if abs > SignificantThreshold {
		strength = "significant"
	}
	return fmt.Sprintf("The text shows a %s %s bias (score %.2f).", strength, Direction(score), score)
}

// Direction names the lean implied by the sign of score.
func Direction(score float64) string {
	switch {
	case score < 0:
		return "left-leaning (liberal)"
	case score > 0:
		return "right-leaning (conservative)"
	default:
		return "neutral"
	}
}

func isPlaceholder(lower string) bool {
	if _, ok := placeholders[lower]; ok {
		return true
	}
	_, ok := placeholders[strings.Trim(lower, `[]<>"' `)]
	return ok
}

func mentionsBias(lower string) bool {
	for _, kw := range biasKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

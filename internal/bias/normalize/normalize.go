// Package normalize maps a signed bias score onto a left/right percentage split.
package normalize

import "math"

// Scale constants: how many percentage points one unit of score moves the
// split away from 50/50.
const (
	LexiconScale = 25.0
	ModelScale   = 50.0
)

// Split is a left/right percentage pair that always sums to 100.
type Split struct {
	Left  float64
	Right float64
}

// ToPercentages computes left = clamp(50 - score*scale, 0, 100) and
// right = 100 - left. Negative scores lean left. NaN is treated as neutral.
func ToPercentages(score, scale float64) Split {
	if math.IsNaN(score) || math.IsNaN(scale) {
		return Split{Left: 50, Right: 50}
	}
	left := 50 - score*scale
	if math.IsNaN(left) {
		left = 50
	}
	left = math.Max(0, math.Min(100, left))
	return Split{Left: left, Right: 100 - left}
}

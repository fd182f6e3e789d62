package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPercentages(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		scale     float64
		wantLeft  float64
		wantRight float64
	}{
		{name: "neutral", score: 0, scale: LexiconScale, wantLeft: 50, wantRight: 50},
		{name: "worked lexicon example", score: -0.1, scale: LexiconScale, wantLeft: 52.5, wantRight: 47.5},
		{name: "model right lean", score: 0.4, scale: ModelScale, wantLeft: 30, wantRight: 70},
		{name: "model full left", score: -1, scale: ModelScale, wantLeft: 100, wantRight: 0},
		{name: "clamped above", score: -10, scale: LexiconScale, wantLeft: 100, wantRight: 0},
		{name: "clamped below", score: 10, scale: LexiconScale, wantLeft: 0, wantRight: 100},
		{name: "nan is neutral", score: math.NaN(), scale: ModelScale, wantLeft: 50, wantRight: 50},
		{name: "infinite score clamps", score: math.Inf(-1), scale: ModelScale, wantLeft: 100, wantRight: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPercentages(tt.score, tt.scale)
			assert.InDelta(t, tt.wantLeft, got.Left, 1e-9)
			assert.InDelta(t, tt.wantRight, got.Right, 1e-9)
		})
	}
}

func TestPercentagesAlwaysSumTo100(t *testing.T) {
	for score := -3.0; score <= 3.0; score += 0.0137 {
		for _, scale := range []float64{LexiconScale, ModelScale} {
			got := ToPercentages(score, scale)
			assert.Equal(t, 100.0, got.Left+got.Right, "score %v scale %v", score, scale)
			assert.GreaterOrEqual(t, got.Left, 0.0)
			assert.LessOrEqual(t, got.Left, 100.0)
			assert.GreaterOrEqual(t, got.Right, 0.0)
			assert.LessOrEqual(t, got.Right, 100.0)
		}
	}
}

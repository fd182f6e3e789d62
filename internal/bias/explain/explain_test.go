package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name        string
		explanation string
		score       float64
		want        string
	}{
		{
			name:        "keeps a relevant explanation",
			explanation: "  The article frames tax cuts favorably, a conservative position. ",
			score:       0.4,
			want:        "The article frames tax cuts favorably, a conservative position.",
		},
		{
			name:        "keyword match is case insensitive and prefix based",
			explanation: "Mostly POLITICAL commentary.",
			score:       0.1,
			want:        "Mostly POLITICAL commentary.",
		},
		{
			name:        "empty is replaced",
			explanation: "   ",
			score:       -0.5,
			want:        "The text shows a significant left-leaning (liberal) bias (score -0.50).",
		},
		{
			name:        "exact placeholder is replaced even though it mentions left and right",
			explanation: Placeholder,
			score:       0.2,
			want:        "The text shows a slight right-leaning (conservative) bias (score 0.20).",
		},
		{
			name:        "bare template word is replaced",
			explanation: "<explanation>",
			score:       0,
			want:        "The text appears politically neutral, with no clear left or right bias (score 0.00).",
		},
		{
			name:        "irrelevant explanation is replaced",
			explanation: "The weather report is accurate.",
			score:       -0.3,
			want:        "The text shows a slight left-leaning (liberal) bias (score -0.30).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.explanation, tt.score))
		})
	}
}

func TestSynthesizeStrength(t *testing.T) {
	assert.Contains(t, Synthesize(0.31), "significant")
	assert.Contains(t, Synthesize(0.3), "slight")
	assert.Contains(t, Synthesize(-0.01), "slight left-leaning")
	assert.Contains(t, Synthesize(1), "significant right-leaning")
	assert.Contains(t, Synthesize(0), "neutral")
	assert.Contains(t, Synthesize(-0.75), "score -0.75")
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "neutral", Direction(0))
	assert.Equal(t, "left-leaning (liberal)", Direction(-0.2))
	assert.Equal(t, "right-leaning (conservative)", Direction(0.2))
}

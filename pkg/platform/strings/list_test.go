package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "whitespace only", input: "   ", expected: nil},
		{name: "single item", input: "openai", expected: []string{"openai"}},
		{name: "trims and lowercases", input: " OpenAI , Gemini", expected: []string{"openai", "gemini"}},
		{name: "drops empties and repeats", input: "openai,,anthropic,OPENAI,", expected: []string{"openai", "anthropic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestDedupeLower(t *testing.T) {
	assert.Nil(t, DedupeLower(nil))
	assert.Equal(t, []string{}, DedupeLower([]string{}))
	assert.Equal(t, []string{"left", "right"}, DedupeLower([]string{" Left", "RIGHT", "left ", ""}))
}

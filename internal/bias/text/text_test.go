package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "lowercases and collapses whitespace", input: "  Liberal\tPolicies \n\nHELP ", want: "liberal policies help"},
		{name: "strips urls", input: "read https://example.com/a?b=c and www.news.org today", want: "read and today"},
		{name: "strips file references", input: "see report.pdf and data.xlsx now", want: "see and now"},
		{name: "keeps sentence punctuation hyphens and apostrophes", input: "Left-wing, right? can't!", want: "left-wing, right? can't!"},
		{name: "symbols become spaces", input: "tax@cuts#now (really)", want: "tax cuts now really"},
		{name: "nfkc folds compatibility forms", input: "ＬＥＦＴ ﬁnance", want: "left finance"},
		{name: "keeps digits", input: "Prop 22 passed", want: "prop 22 passed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestSplit(t *testing.T) {
	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, Split("", 10))
	})

	t.Run("short text yields exactly one chunk", func(t *testing.T) {
		chunks := Split("liberal policies always help", DefaultMaxChunkChars)
		require.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, "liberal policies always help", chunks[0].Text)
	})

	t.Run("text exactly at the limit is one chunk", func(t *testing.T) {
		assert.Len(t, Split(strings.Repeat("a", 10), 10), 1)
	})

	t.Run("long text is cut at raw boundaries and reassembles", func(t *testing.T) {
		input := strings.Repeat("abcdefghij", 25) + "xyz"
		chunks := Split(input, 100)
		require.Len(t, chunks, 3)

		var b strings.Builder
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 100)
			b.WriteString(c.Text)
		}
		assert.Equal(t, input, b.String())
	})

	t.Run("multibyte runes are never split", func(t *testing.T) {
		input := strings.Repeat("é", 7)
		chunks := Split(input, 3)
		require.Len(t, chunks, 3)
		for _, c := range chunks {
			assert.True(t, utf8.ValidString(c.Text))
		}
		assert.Equal(t, "é", chunks[2].Text)
	})

	t.Run("non-positive size uses the default", func(t *testing.T) {
		assert.Len(t, Split(strings.Repeat("a", DefaultMaxChunkChars+1), 0), 2)
	})
}

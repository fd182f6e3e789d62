package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "biasmeter/pkg/domain-errors"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "", want: ModeLexicon},
		{input: "lexicon", want: ModeLexicon},
		{input: " MODEL ", want: ModeModel},
		{input: "transformer", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkScoreAdd(t *testing.T) {
	a := ChunkScore{DomainSum: -0.8, DomainCount: 1, SentimentSum: 2, SentimentCount: 1}
	b := ChunkScore{DomainSum: 0.6, DomainCount: 2}

	sum := a.Add(b)
	assert.InDelta(t, -0.2, sum.DomainSum, 1e-9)
	assert.Equal(t, 3, sum.DomainCount)
	assert.Equal(t, 2.0, sum.SentimentSum)
	assert.Equal(t, 4, sum.Matches())
	assert.Equal(t, a.Add(b), b.Add(a))
}

func TestBiasResultJSON(t *testing.T) {
	t.Run("percentages rounded to one decimal and sum to 100", func(t *testing.T) {
		r := BiasResult{Left: 52.46, Right: 47.54, Message: "m", Explanation: "e"}
		data, err := json.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, `{"left":52.5,"right":47.5,"message":"m","explanation":"e"}`, string(data))
	})

	t.Run("control characters quotes and backslashes are escaped", func(t *testing.T) {
		r := Neutral("say \"hi\"\n", "back\\slash\ttab\x01")
		data, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Contains(t, string(data), `say \"hi\"\n`)
		assert.Contains(t, string(data), `back\\slash\ttab\u0001`)

		var decoded BiasResult
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, r, decoded)
	})
}

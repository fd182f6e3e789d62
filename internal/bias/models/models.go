package models

import (
	"encoding/json"
	"math"
	"strings"

	dErrors "biasmeter/pkg/domain-errors"
)

// Mode selects the scoring path for a request.
type Mode string

const (
	ModeLexicon Mode = "lexicon"
	ModeModel   Mode = "model"
)

// ParseMode validates a client-supplied mode. Empty means lexicon.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLexicon:
		return ModeLexicon, nil
	case ModeModel:
		return ModeModel, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "mode must be one of: lexicon, model")
	}
}

// ChunkScore holds raw, un-normalized accumulators for one span of text.
// Scores combine only by field-wise addition.
type ChunkScore struct {
	DomainSum      float64 `json:"domain_sum"`
	DomainCount    int     `json:"domain_count"`
	SentimentSum   float64 `json:"sentiment_sum"`
	SentimentCount int     `json:"sentiment_count"`
}

// Add returns the field-wise sum of two scores.
func (c ChunkScore) Add(o ChunkScore) ChunkScore {
	return ChunkScore{
		DomainSum:      c.DomainSum + o.DomainSum,
		DomainCount:    c.DomainCount + o.DomainCount,
		SentimentSum:   c.SentimentSum + o.SentimentSum,
		SentimentCount: c.SentimentCount + o.SentimentCount,
	}
}

// Matches is the total number of lexicon hits.
func (c ChunkScore) Matches() int {
	return c.DomainCount + c.SentimentCount
}

// AggregateScore is the document-level sum plus the derived weighted score.
type AggregateScore struct {
	ChunkScore
	WeightedScore float64 `json:"weighted_score"`
	Chunks        int     `json:"chunks"`
	FailedChunks  int     `json:"failed_chunks"`
}

// BiasResult is the engine's only output shape. Left+Right is always 100.
type BiasResult struct {
	Left        float64
	Right       float64
	Message     string
	Explanation string
}

// Neutral builds a 50/50 result.
func Neutral(message, explanation string) BiasResult {
	return BiasResult{Left: 50, Right: 50, Message: message, Explanation: explanation}
}

type biasResultJSON struct {
	Left        float64 `json:"left"`
	Right       float64 `json:"right"`
	Message     string  `json:"message"`
	Explanation string  `json:"explanation"`
}

// MarshalJSON renders percentages with one decimal. Right is derived from the
// rounded left so the pair still sums to 100 on the wire.
func (r BiasResult) MarshalJSON() ([]byte, error) {
	left := roundTenth(r.Left)
	return json.Marshal(biasResultJSON{
		Left:        left,
		Right:       roundTenth(100 - left),
		Message:     r.Message,
		Explanation: r.Explanation,
	})
}

// UnmarshalJSON accepts the wire shape produced by MarshalJSON.
func (r *BiasResult) UnmarshalJSON(data []byte) error {
	var raw biasResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = BiasResult(raw)
	return nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Package scorer matches a chunk's tokens against the lexicon vocabularies.
package scorer

import (
	"context"
	"errors"
	"strings"

	"biasmeter/internal/bias/lexicon"
	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/text"
)

// Vocabulary is the read side of the lexicon store.
type Vocabulary interface {
	Domain(term string) (float64, bool)
	Sentiment(term string) (float64, bool)
}

var _ Vocabulary = (*lexicon.Store)(nil)

// stripped characters are removed before splitting on whitespace.
var punctuationReplacer = strings.NewReplacer(
	".", " ", ",", " ", "!", " ", "?", " ", ";", " ", ":", " ",
	"(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ", `"`, " ",
)

// Scorer computes raw ChunkScores. It holds no mutable state.
type Scorer struct {
	vocab Vocabulary
}

// New creates a scorer over the given vocabulary.
func New(vocab Vocabulary) (*Scorer, error) {
	if vocab == nil {
		return nil, errors.New("vocabulary is required")
	}
	return &Scorer{vocab: vocab}, nil
}

// Score matches every token of the chunk. For each token, a domain hit takes
// priority over a sentiment hit. Independently of that, a hyphenated token's
// space-joined form and the bigram with the following token are looked up in
// the domain vocabulary and add to the domain accumulators.
//
// The context is checked once up front; scoring itself is CPU-bound and
// bounded by the chunk size.
func (s *Scorer) Score(ctx context.Context, chunk text.Chunk) (models.ChunkScore, error) {
	if err := ctx.Err(); err != nil {
		return models.ChunkScore{}, err
	}

	var score models.ChunkScore
	tokens := Tokenize(chunk.Text)
	for i, tok := range tokens {
		if w, ok := s.vocab.Domain(tok); ok {
			score.DomainSum += w
			score.DomainCount++
		} else if w, ok := s.vocab.Sentiment(tok); ok {
			score.SentimentSum += w
			score.SentimentCount++
		}

		if strings.Contains(tok, "-") {
			if w, ok := s.vocab.Domain(strings.ReplaceAll(tok, "-", " ")); ok {
				score.DomainSum += w
				score.DomainCount++
			}
		}

		if i+1 < len(tokens) {
			if w, ok := s.vocab.Domain(tok + " " + tokens[i+1]); ok {
				score.DomainSum += w
				score.DomainCount++
			}
		}
	}
	return score, nil
}

// Tokenize removes sentence and bracket punctuation, splits on whitespace and
// trims stray apostrophes and hyphens from token edges. Empty tokens are
// dropped.
func Tokenize(s string) []string {
	fields := strings.Fields(punctuationReplacer.Replace(s))
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Package lexicon holds the immutable term→weight vocabularies used by the
// lexicon scoring path.
//
// Two vocabularies exist: a domain (political) vocabulary that takes priority
// during matching and a general sentiment vocabulary. A Store is built once
// at startup and only read afterwards, so it is safe for concurrent use
// without locks.
package lexicon

import "strings"

// Source records where a vocabulary came from.
type Source string

const (
	SourceFile Source = "file"
	SourceSeed Source = "seed"
)

// Store is a read-only pair of vocabularies.
type Store struct {
	domain    map[string]float64
	sentiment map[string]float64

	domainSource    Source
	sentimentSource Source
}

// Stats summarizes a Store for diagnostics.
type Stats struct {
	DomainTerms     int    `json:"domain_terms"`
	SentimentTerms  int    `json:"sentiment_terms"`
	DomainSource    Source `json:"domain_source"`
	SentimentSource Source `json:"sentiment_source"`
}

// New copies the given vocabularies into a Store. Keys are trimmed and
// lowercased.
func New(domain, sentiment map[string]float64) *Store {
	return &Store{
		domain:          normalizeKeys(domain),
		sentiment:       normalizeKeys(sentiment),
		domainSource:    SourceFile,
		sentimentSource: SourceFile,
	}
}

// Domain returns the political weight of term.
func (s *Store) Domain(term string) (float64, bool) {
	w, ok := s.domain[term]
	return w, ok
}

// Sentiment returns the sentiment weight of term.
func (s *Store) Sentiment(term string) (float64, bool) {
	w, ok := s.sentiment[term]
	return w, ok
}

func (s *Store) Stats() Stats {
	return Stats{
		DomainTerms:     len(s.domain),
		SentimentTerms:  len(s.sentiment),
		DomainSource:    s.domainSource,
		SentimentSource: s.sentimentSource,
	}
}

func normalizeKeys(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for term, w := range in {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" {
			continue
		}
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = w
	}
	return out
}

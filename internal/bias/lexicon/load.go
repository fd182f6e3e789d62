package lexicon

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

//go:embed seed/domain.tsv
var seedDomainTSV []byte

//go:embed seed/sentiment.tsv
var seedSentimentTSV []byte

// ErrEmptyVocabulary is returned when a vocabulary file yields no usable entries.
var ErrEmptyVocabulary = errors.New("vocabulary has no valid entries")

// Paths locates the vocabulary files. An empty path selects the seed.
type Paths struct {
	Domain    string
	Sentiment string
}

// ParseResult is the outcome of parsing one vocabulary file.
type ParseResult struct {
	Entries map[string]float64
	Skipped int
}

// Parse reads tab-separated "term<TAB>weight" lines. Lines starting with ';'
// or '#' are comments. Extra columns are ignored. Malformed lines, non-finite
// weights and repeated terms are counted in Skipped rather than failing the parse.
func Parse(r io.Reader) (ParseResult, error) {
	res := ParseResult{Entries: make(map[string]float64)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			res.Skipped++
			continue
		}
		term := strings.ToLower(strings.TrimSpace(fields[0]))
		weight, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if term == "" || err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
			res.Skipped++
			continue
		}
		if _, exists := res.Entries[term]; exists {
			res.Skipped++
			continue
		}
		res.Entries[term] = weight
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan vocabulary: %w", err)
	}
	if len(res.Entries) == 0 {
		return res, ErrEmptyVocabulary
	}
	return res, nil
}

// ParseFile parses the vocabulary at path.
func ParseFile(path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open vocabulary %s: %w", path, err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return res, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return res, nil
}

// Seed returns a Store built from the embedded seed vocabularies.
func Seed() *Store {
	s := New(mustParseSeed(seedDomainTSV), mustParseSeed(seedSentimentTSV))
	s.domainSource = SourceSeed
	s.sentimentSource = SourceSeed
	return s
}

// Load builds a Store from the configured files. A vocabulary that cannot be
// loaded falls back to its seed and the failure is logged; Load itself never
// fails so startup is not blocked by a missing lexicon.
func Load(ctx context.Context, paths Paths, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	domain, domainSource := loadOne(ctx, logger, "domain", paths.Domain, seedDomainTSV)
	sentiment, sentimentSource := loadOne(ctx, logger, "sentiment", paths.Sentiment, seedSentimentTSV)

	s := New(domain, sentiment)
	s.domainSource = domainSource
	s.sentimentSource = sentimentSource

	stats := s.Stats()
	logger.InfoContext(ctx, "lexicon loaded",
		"domain_terms", stats.DomainTerms,
		"domain_source", stats.DomainSource,
		"sentiment_terms", stats.SentimentTerms,
		"sentiment_source", stats.SentimentSource,
	)
	return s
}

func loadOne(ctx context.Context, logger *slog.Logger, name, path string, seed []byte) (map[string]float64, Source) {
	if path == "" {
		return mustParseSeed(seed), SourceSeed
	}

	res, err := ParseFile(path)
	if err != nil {
		logger.WarnContext(ctx, "vocabulary load failed, using seed",
			"vocabulary", name,
			"path", path,
			"error", err,
		)
		return mustParseSeed(seed), SourceSeed
	}
	if res.Skipped > 0 {
		logger.WarnContext(ctx, "vocabulary lines skipped",
			"vocabulary", name,
			"path", path,
			"skipped", res.Skipped,
		)
	}
	return res.Entries, SourceFile
}

// The seed files are compiled in and covered by tests; a parse failure here is
// a build defect.
func mustParseSeed(data []byte) map[string]float64 {
	res, err := Parse(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("lexicon: invalid embedded seed: %v", err))
	}
	return res.Entries
}

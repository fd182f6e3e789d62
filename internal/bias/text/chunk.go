package text

import "unicode/utf8"

// DefaultMaxChunkChars bounds a chunk when no explicit size is configured.
const DefaultMaxChunkChars = 5000

// Chunk is a contiguous span of normalized text. Index exists for logging.
type Chunk struct {
	Index int
	Text  string
}

// Split cuts text into ordered chunks of at most maxChars runes. Cuts fall on
// raw rune boundaries, so a term straddling a boundary is seen as two
// fragments. Empty text yields no chunks; text that fits yields exactly one.
func Split(s string, maxChars int) []Chunk {
	if s == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return []Chunk{{Index: 0, Text: s}}
	}

	chunks := make([]Chunk, 0, utf8.RuneCountInString(s)/maxChars+1)
	start, runes := 0, 0
	for i := range s {
		if runes == maxChars {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: s[start:i]})
			start, runes = i, 0
		}
		runes++
	}
	chunks = append(chunks, Chunk{Index: len(chunks), Text: s[start:]})
	return chunks
}

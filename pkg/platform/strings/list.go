// Package strings provides string list helpers for configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value into trimmed, lowercased,
// de-duplicated items. Order of first occurrence is preserved and empty
// items are dropped.
//
// Example:
//
//	SplitList(" OpenAI, gemini,,openai ")
//	// Returns: []string{"openai", "gemini"}
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return DedupeLower(strings.Split(value, ","))
}

// DedupeLower trims and lowercases each element, dropping empties and
// repeats.
func DedupeLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		item := strings.ToLower(strings.TrimSpace(v))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}

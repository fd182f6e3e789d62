// Package backends implements the closed set of external text-inference
// clients used by the model invoker, one per vendor family.
package backends

import (
	"context"
	"fmt"
)

// Family identifies a vendor SDK and the credential it needs.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGemini    Family = "gemini"
)

// Families lists every supported family in default fallback order.
var Families = []Family{FamilyOpenAI, FamilyAnthropic, FamilyGemini}

// ParseFamily validates a family name.
func ParseFamily(s string) (Family, error) {
	switch f := Family(s); f {
	case FamilyOpenAI, FamilyAnthropic, FamilyGemini:
		return f, nil
	default:
		return "", fmt.Errorf("unknown backend family %q", s)
	}
}

// Request is a single-turn completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client sends one completion request and returns the raw response text.
// Implementations do not retry; errors are returned as *Error so callers can
// classify them.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewClient builds the SDK-backed client for family. backendID is used only
// to label errors.
func NewClient(ctx context.Context, family Family, backendID, apiKey string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("backend %s: api key is required", backendID)
	}
	switch family {
	case FamilyOpenAI:
		return newOpenAIClient(backendID, apiKey), nil
	case FamilyAnthropic:
		return newAnthropicClient(backendID, apiKey), nil
	case FamilyGemini:
		return newGeminiClient(ctx, backendID, apiKey)
	default:
		return nil, fmt.Errorf("backend %s: unsupported family %q", backendID, family)
	}
}

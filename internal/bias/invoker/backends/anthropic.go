package backends

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicClient struct {
	backend string
	client  *anthropic.Client
}

func newAnthropicClient(backend, apiKey string) *anthropicClient {
	// Retries are owned by the invoker so every attempt is counted there.
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &anthropicClient{backend: backend, client: &client}
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", c.classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

func (c *anthropicClient) classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return NewError(CategoryForStatus(apiErr.StatusCode), c.backend, "anthropic request failed", apiErr.StatusCode, err)
	}
	return classifyTransportError(c.backend, "anthropic request failed", err)
}

package backends

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type geminiClient struct {
	backend string
	client  *genai.Client
}

func newGeminiClient(ctx context.Context, backend, apiKey string) (*geminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiClient{backend: backend, client: client}, nil
}

func (c *geminiClient) Complete(ctx context.Context, req Request) (string, error) {
	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   int32(req.MaxTokens),
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", c.classify(err)
	}
	return resp.Text(), nil
}

func (c *geminiClient) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return NewError(CategoryForStatus(apiErr.Code), c.backend, "gemini request failed", apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return NewError(CategoryForStatus(apiErrPtr.Code), c.backend, "gemini request failed", apiErrPtr.Code, err)
	}
	return classifyTransportError(c.backend, "gemini request failed", err)
}

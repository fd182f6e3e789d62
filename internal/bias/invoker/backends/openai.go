package backends

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

type openAIClient struct {
	backend string
	client  *openai.Client
}

func newOpenAIClient(backend, apiKey string) *openAIClient {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &openAIClient{backend: backend, client: &client}
}

func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(req.System, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
		MaxOutputTokens: openai.Int(int64(req.MaxTokens)),
		Temperature:     openai.Float(req.Temperature),
	}

	result, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", c.classify(err)
	}
	return result.OutputText(), nil
}

func (c *openAIClient) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return NewError(CategoryForStatus(apiErr.StatusCode), c.backend, "openai request failed", apiErr.StatusCode, err)
	}
	return classifyTransportError(c.backend, "openai request failed", err)
}

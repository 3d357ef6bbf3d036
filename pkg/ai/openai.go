package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIGenerator calls the OpenAI chat completions API, or any
// OpenAI-compatible endpoint when a base URL is given (vLLM, LiteLLM, OpenRouter, ...).
type OpenAIGenerator struct {
	client openai.Client
	model  string
	apiKey string
}

// NewOpenAIGenerator builds an OpenAI-backed TextGenerator.
// baseURL should include the /v1 prefix, e.g. "http://localhost:8000/v1".
func NewOpenAIGenerator(baseURL, apiKey, model string) (*OpenAIGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("openai generation model required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Failures are terminal per request.
		option.WithMaxRetries(0),
	}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL+"/"))
	}
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
		apiKey: apiKey,
	}, nil
}

// GenerateText implements TextGenerator using a single user message.
func (g *OpenAIGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", newGenerationError(ProviderOpenAI, err, g.apiKey)
	}
	if len(resp.Choices) == 0 {
		return "", newGenerationError(ProviderOpenAI, fmt.Errorf("empty response from openai"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", newGenerationError(ProviderOpenAI, fmt.Errorf("empty response from openai"))
	}
	return text, nil
}

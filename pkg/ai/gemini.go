package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator calls the Google AI Studio (Gemini) API with a fixed model.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	apiKey string
}

// NewGeminiGenerator constructs a generator with the provided API key and model.
// A non-empty baseURL replaces the Google AI Studio endpoint.
func NewGeminiGenerator(ctx context.Context, baseURL, apiKey, model string) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	model = normalizeModel(model)
	if model == "" {
		return nil, fmt.Errorf("gemini generation model required")
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %s", Redact(err.Error(), apiKey))
	}
	return &GeminiGenerator{
		client: client,
		model:  client.GenerativeModel(model),
		apiKey: apiKey,
	}, nil
}

// GenerateText implements TextGenerator using Gemini generateContent.
func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", newGenerationError(ProviderGemini, err, g.apiKey)
	}
	text := candidateText(resp)
	if strings.TrimSpace(text) == "" {
		return "", newGenerationError(ProviderGemini, fmt.Errorf("empty response from gemini"))
	}
	return text, nil
}

// Close releases the underlying client connection.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewGeminiProvider is the default backend, Google AI Studio via langchaingo.
func NewGeminiProvider(apiKey, model string) *Provider {
	if model == "" {
		model = "gemini-1.5-pro-latest"
	}
	return &Provider{
		Backend:      BackendGemini,
		DisplayName:  "Gemini",
		APIKey:       apiKey,
		DefaultModel: model,
		New: func(ctx context.Context, apiKey, modelName string) (llms.Model, error) {
			return googleai.New(ctx,
				googleai.WithAPIKey(apiKey),
				googleai.WithDefaultModel(modelName),
			)
		},
	}
}

func NewOpenAIProvider(apiKey, model string) *Provider {
	if model == "" {
		model = "gpt-4o"
	}
	return &Provider{
		Backend:      BackendOpenAI,
		DisplayName:  "OpenAI",
		APIKey:       apiKey,
		DefaultModel: model,
		New: func(_ context.Context, apiKey, modelName string) (llms.Model, error) {
			return openai.New(
				openai.WithToken(apiKey),
				openai.WithModel(modelName),
			)
		},
	}
}

package ai

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/auditor/pkg/domain/ai"
)

func NewProvider(providerName string, modelName string) (ai.Provider, error) {
	switch providerName {
	case "ollama", "":
		return NewOllamaProviderWithClient(modelName, os.Getenv("OLLAMA_HOST"), nil), nil
	case "mock":
		return &MockProvider{Model: modelName}, nil
	case "openai":
		return NewOpenAIProvider(modelName, os.Getenv("OPENAI_API_KEY")), nil
	case "anthropic":
		return NewAnthropicProvider(modelName, os.Getenv("ANTHROPIC_API_KEY")), nil
	case "gemini":
		return NewGeminiProvider(modelName, os.Getenv("GEMINI_API_KEY")), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", providerName)
	}
}

// GetDefaultProvider applies AUDITOR_AI_PROVIDER and AUDITOR_AI_MODEL overrides.
func GetDefaultProvider(providerName, modelName string) (ai.Provider, error) {
	if envProvider := os.Getenv("AUDITOR_AI_PROVIDER"); envProvider != "" {
		providerName = envProvider
	}
	if envModel := os.Getenv("AUDITOR_AI_MODEL"); envModel != "" {
		modelName = envModel
	}

	return NewProvider(providerName, modelName)
}

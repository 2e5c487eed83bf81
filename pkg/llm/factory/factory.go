package factory

import (
	"fmt"

	"ai-interview-be/pkg/llm"
	"ai-interview-be/pkg/llm/gemini"
	"ai-interview-be/pkg/llm/ollama"
)

type Settings struct {
	Provider string // "gemini" or "ollama"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "gemini", "":
		if s.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(s.BaseURL, s.APIKey, s.Model), nil
	case "ollama":
		return ollama.NewOllamaProvider(s.BaseURL, s.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}

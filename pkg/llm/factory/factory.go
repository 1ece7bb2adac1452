package factory

import (
	"fmt"
	"time"

	"city-inspect-be/pkg/llm"
	"city-inspect-be/pkg/llm/ark"
	"city-inspect-be/pkg/llm/gemini"
	"city-inspect-be/pkg/llm/ollama"
)

// Settings carries everything any backend might need; each backend
// reads its own subset.
type Settings struct {
	Model         string
	ArkApiKey     string
	ArkBaseURL    string
	GeminiApiKey  string
	OllamaBaseURL string
	Timeout       time.Duration
}

func NewLLMProvider(providerType string, s Settings) (llm.LLMProvider, error) {
	switch providerType {
	case "ark":
		return ark.NewArkProvider(s.ArkApiKey, s.ArkBaseURL, s.Model, s.Timeout), nil
	case "gemini":
		return gemini.NewGeminiProvider(s.GeminiApiKey, s.Model, s.Timeout), nil
	case "ollama":
		baseURL := s.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, s.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

package factory

import (
	"context"
	"fmt"

	"ecospectre-be/pkg/vision"
	"ecospectre-be/pkg/vision/gemini"
	"ecospectre-be/pkg/vision/ollama"
)

type Config struct {
	Provider string // "gemini" or "ollama"

	Gemini gemini.Config

	OllamaBaseURL string
	OllamaModel   string
}

func NewProvider(ctx context.Context, cfg Config) (vision.Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return gemini.NewProvider(ctx, cfg.Gemini)
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewProvider(baseURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unsupported vision provider: %s", cfg.Provider)
	}
}

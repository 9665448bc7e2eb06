package config

import (
	"fmt"

	"github.com/entrhq/okaimono/pkg/llm/openai"
)

// BuildProvider creates the LLM provider for a resolved configuration.
// Precedence (CLI flags > environment > config file > defaults) is settled
// before this point by Load, ApplyEnv and Apply.
func BuildProvider(cfg *Config) (*openai.Provider, error) {
	if cfg == nil {
		cfg = Default()
	}

	providerOpts := []openai.ProviderOption{
		openai.WithModel(cfg.LLM.Model),
	}
	if baseURL := NormalizeBaseURL(cfg.LLM.BaseURL); baseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(baseURL))
	}

	provider, err := openai.NewProvider(cfg.LLM.APIKey, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	return provider, nil
}

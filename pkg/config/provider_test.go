package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	tests := []struct {
		name        string
		cfg         *Config
		expectError bool
		wantModel   string
		wantURL     string
		wantKey     string
	}{
		{
			name:      "defaults target local Ollama without a key",
			cfg:       Default(),
			wantModel: DefaultModel,
			wantURL:   "http://localhost:11434/v1",
		},
		{
			name: "loose base URL is normalized",
			cfg: func() *Config {
				c := Default()
				c.LLM.BaseURL = "http:gpu-box:11434"
				c.LLM.Model = "llama3.1"
				return c
			}(),
			wantModel: "llama3.1",
			wantURL:   "http://gpu-box:11434/v1",
		},
		{
			name: "public endpoint with key",
			cfg: func() *Config {
				c := Default()
				c.LLM.BaseURL = "https://api.openai.com/v1"
				c.LLM.APIKey = "sk-test"
				c.LLM.Model = "gpt-4o-mini"
				return c
			}(),
			wantModel: "gpt-4o-mini",
			wantURL:   "https://api.openai.com/v1",
			wantKey:   "sk-test",
		},
		{
			name: "public endpoint without key fails",
			cfg: func() *Config {
				c := Default()
				c.LLM.BaseURL = "https://api.openai.com/v1"
				return c
			}(),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := BuildProvider(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, provider.GetModel())
			assert.Equal(t, tt.wantURL, provider.GetBaseURL())
			assert.Equal(t, tt.wantKey, provider.GetAPIKey())
		})
	}
}

func TestBuildProviderNilConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	provider, err := BuildProvider(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, provider.GetModel())
}

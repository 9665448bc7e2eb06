package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "qwen2.5:14b", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "https://app.onigo.club/", cfg.Storefront.BaseURL)
	assert.Equal(t, "example@example.com", cfg.Storefront.Email)
	assert.Equal(t, time.Second, cfg.Storefront.SettleDelay)
	assert.False(t, cfg.Storefront.Headless)
	assert.Equal(t, 5, cfg.Auth.MaxAttempts)
	assert.Equal(t, LabelsConfig{Login: "ログイン", Submit: "送信", Complete: "ログインする"}, cfg.Auth.Labels)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  model: llama3
storefront:
  settle_delay: 250ms
  headless: true
auth:
  max_attempts: 0
  timeout: 2m
  labels:
    login: Sign in
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, DefaultLLMBaseURL, cfg.LLM.BaseURL, "unset keys keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Storefront.SettleDelay)
	assert.True(t, cfg.Storefront.Headless)
	assert.Equal(t, 0, cfg.Auth.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Auth.Timeout)
	assert.Equal(t, "Sign in", cfg.Auth.Labels.Login)
	assert.Equal(t, "送信", cfg.Auth.Labels.Submit)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultPathHonorsEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/okaimono-test.yaml")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/okaimono-test.yaml", path)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.Auth.Timeout = 90 * time.Second
	require.NoError(t, Save(path, cfg))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		overrides Overrides
		wantURL   string
		wantModel string
		wantEmail string
	}{
		{
			name:      "defaults",
			wantURL:   DefaultLLMBaseURL,
			wantModel: DefaultModel,
			wantEmail: DefaultEmail,
		},
		{
			name:      "env over defaults",
			env:       map[string]string{EnvBaseURL: "http://gpu:11434", EnvModel: "qwen3", EnvEmail: "a@b.c"},
			wantURL:   "http://gpu:11434",
			wantModel: "qwen3",
			wantEmail: "a@b.c",
		},
		{
			name:      "flags over env",
			env:       map[string]string{EnvBaseURL: "http://gpu:11434", EnvEmail: "a@b.c"},
			overrides: Overrides{BaseURL: "http://cli:1", Email: "cli@x.y"},
			wantURL:   "http://cli:1",
			wantModel: DefaultModel,
			wantEmail: "cli@x.y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ApplyEnv(envMap(tt.env))
			cfg.Apply(tt.overrides)

			assert.Equal(t, tt.wantURL, cfg.LLM.BaseURL)
			assert.Equal(t, tt.wantModel, cfg.LLM.Model)
			assert.Equal(t, tt.wantEmail, cfg.Storefront.Email)
		})
	}
}

func TestApplyEnvHeadless(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(envMap(map[string]string{EnvHeadless: "true"}))
	assert.True(t, cfg.Storefront.Headless)

	cfg.ApplyEnv(envMap(map[string]string{EnvHeadless: "not-a-bool"}))
	assert.True(t, cfg.Storefront.Headless, "unparseable value is ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.LLM.Model = " " }},
		{"relative storefront", func(c *Config) { c.Storefront.BaseURL = "shop" }},
		{"empty email", func(c *Config) { c.Storefront.Email = "" }},
		{"negative settle", func(c *Config) { c.Storefront.SettleDelay = -time.Second }},
		{"bad glob", func(c *Config) { c.Storefront.AuthPattern = "https://app.onigo.club/[shop" }},
		{"negative attempts", func(c *Config) { c.Auth.MaxAttempts = -1 }},
		{"negative timeout", func(c *Config) { c.Auth.Timeout = -time.Second }},
		{"missing label", func(c *Config) { c.Auth.Labels.Complete = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsGlob(t *testing.T) {
	cfg := Default()
	cfg.Storefront.AuthPattern = "https://app.onigo.club/shop*"
	assert.NoError(t, cfg.Validate())
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http:localhost:11434", "http://localhost:11434/v1"},
		{"localhost:11434", "http://localhost:11434/v1"},
		{"http://localhost:11434", "http://localhost:11434/v1"},
		{"http://localhost:11434/", "http://localhost:11434/v1"},
		{"https:api.example.com", "https://api.example.com/v1"},
		{"https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"http://proxy/openai/v1/", "http://proxy/openai/v1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBaseURL(tt.in))
		})
	}
}

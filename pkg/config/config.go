package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultModel is the model used for both resolution stages.
	DefaultModel = "qwen2.5:14b"

	// DefaultLLMBaseURL points at a local Ollama server.
	DefaultLLMBaseURL = "http://localhost:11434"

	// DefaultStorefrontURL is the storefront root; the home page is <root>/shop.
	DefaultStorefrontURL = "https://app.onigo.club/"

	// DefaultEmail is the identity submitted on the login form.
	DefaultEmail = "example@example.com"

	// DefaultSettleDelay is the fixed wait after each navigation or submission.
	DefaultSettleDelay = time.Second

	// DefaultMaxAttempts bounds the number of one-time codes submitted.
	DefaultMaxAttempts = 5
)

// Environment variables consulted by ApplyEnv.
const (
	EnvConfigPath = "OKAIMONO_CONFIG"
	EnvBaseURL    = "OKAIMONO_BASE_URL"
	EnvModel      = "OKAIMONO_MODEL"
	EnvAPIKey     = "OPENAI_API_KEY"
	EnvEmail      = "OKAIMONO_EMAIL"
	EnvHeadless   = "OKAIMONO_HEADLESS"
)

// Config is the complete runtime configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Storefront StorefrontConfig `yaml:"storefront"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LLMConfig configures the OpenAI-compatible endpoint.
type LLMConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// StorefrontConfig configures the site being walked.
type StorefrontConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Email       string        `yaml:"email"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	Headless    bool          `yaml:"headless"`
	// AuthPattern is an optional glob; when set, a URL matching it counts as
	// signed in instead of the home URL prefix check.
	AuthPattern string `yaml:"auth_pattern,omitempty"`
}

// AuthConfig configures the one-time-code loop.
type AuthConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	Labels      LabelsConfig  `yaml:"labels"`
}

// LabelsConfig holds the visible texts of the login controls.
type LabelsConfig struct {
	Login    string `yaml:"login"`
	Submit   string `yaml:"submit"`
	Complete string `yaml:"complete"`
}

// LoggingConfig configures the file logger.
type LoggingConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Overrides carries command-line values. Empty fields leave the
// configuration untouched.
type Overrides struct {
	BaseURL string
	Model   string
	APIKey  string
	Email   string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:   DefaultModel,
			BaseURL: DefaultLLMBaseURL,
		},
		Storefront: StorefrontConfig{
			BaseURL:     DefaultStorefrontURL,
			Email:       DefaultEmail,
			SettleDelay: DefaultSettleDelay,
		},
		Auth: AuthConfig{
			MaxAttempts: DefaultMaxAttempts,
			Labels: LabelsConfig{
				Login:    "ログイン",
				Submit:   "送信",
				Complete: "ログインする",
			},
		},
	}
}

// DefaultPath returns the config file location: $OKAIMONO_CONFIG when set,
// otherwise ~/.okaimono/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".okaimono", "config.yaml"), nil
}

// Load reads the YAML file at path on top of the defaults. An empty path
// means DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, replacing any existing file atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through getenv. Passing nil
// uses os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := getenv(EnvEmail); v != "" {
		c.Storefront.Email = v
	}
	if v := getenv(EnvHeadless); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Storefront.Headless = b
		}
	}
}

// Apply overlays non-empty command-line values.
func (c *Config) Apply(o Overrides) {
	if o.BaseURL != "" {
		c.LLM.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		c.LLM.Model = o.Model
	}
	if o.APIKey != "" {
		c.LLM.APIKey = o.APIKey
	}
	if o.Email != "" {
		c.Storefront.Email = o.Email
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if _, err := parseAbsolute(NormalizeBaseURL(c.LLM.BaseURL)); err != nil {
		return fmt.Errorf("llm.base_url: %w", err)
	}
	if _, err := parseAbsolute(c.Storefront.BaseURL); err != nil {
		return fmt.Errorf("storefront.base_url: %w", err)
	}
	if strings.TrimSpace(c.Storefront.Email) == "" {
		return fmt.Errorf("storefront.email must not be empty")
	}
	if c.Storefront.SettleDelay < 0 {
		return fmt.Errorf("storefront.settle_delay must not be negative")
	}
	if c.Storefront.AuthPattern != "" {
		if _, err := glob.Compile(c.Storefront.AuthPattern); err != nil {
			return fmt.Errorf("storefront.auth_pattern: %w", err)
		}
	}
	if c.Auth.MaxAttempts < 0 {
		return fmt.Errorf("auth.max_attempts must not be negative")
	}
	if c.Auth.Timeout < 0 {
		return fmt.Errorf("auth.timeout must not be negative")
	}
	labels := c.Auth.Labels
	if labels.Login == "" || labels.Submit == "" || labels.Complete == "" {
		return fmt.Errorf("auth.labels must name the login, submit and complete controls")
	}
	return nil
}

// NormalizeBaseURL turns loosely written endpoint addresses into the form the
// provider expects. "http:localhost:11434" and "localhost:11434" both become
// "http://localhost:11434/v1"; an address that already carries a path is kept.
func NormalizeBaseURL(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if s == "" {
		return ""
	}

	if !strings.Contains(s, "://") {
		switch {
		case strings.HasPrefix(s, "http:"):
			s = "http://" + strings.TrimPrefix(s, "http:")
		case strings.HasPrefix(s, "https:"):
			s = "https://" + strings.TrimPrefix(s, "https:")
		default:
			s = "http://" + s
		}
	}

	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	if u.Path == "" {
		u.Path = "/v1"
	}
	return u.String()
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

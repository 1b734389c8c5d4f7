package llm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultModel      = "gemini-2.0-flash"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2

	envAPIKey       = "LLM_API_KEY"
	envGoogleAPIKey = "GOOGLE_API_KEY"
	envBaseURL      = "LLM_BASE_URL"
	envDefaultModel = "LLM_MODEL"
	envTimeout      = "LLM_TIMEOUT"
	envMaxRetries   = "LLM_MAX_RETRIES"
)

// Config is the narrative model endpoint plus per-alias sampling defaults.
type Config struct {
	BaseURL      string                 `yaml:"base_url"`
	APIKey       string                 `yaml:"api_key"`
	DefaultModel string                 `yaml:"default_model"`
	Timeout      time.Duration          `yaml:"-"`
	MaxRetries   int                    `yaml:"max_retries"`
	Models       map[string]ModelConfig `yaml:"models"`
}

// ModelConfig maps an alias to a provider model id and its sampling defaults.
type ModelConfig struct {
	ModelName           string   `yaml:"model_name"`
	Temperature         *float64 `yaml:"temperature,omitempty"`
	MaxCompletionTokens *int     `yaml:"max_completion_tokens,omitempty"`
	TopP                *float64 `yaml:"top_p,omitempty"`
}

// fileConfig is the on-disk shape; timeout and retries need presence checks.
type fileConfig struct {
	BaseURL      string                 `yaml:"base_url"`
	APIKey       string                 `yaml:"api_key"`
	DefaultModel string                 `yaml:"default_model"`
	Timeout      string                 `yaml:"timeout"`
	MaxRetries   *int                   `yaml:"max_retries"`
	Models       map[string]ModelConfig `yaml:"models"`
}

// LoadConfig reads an llm.yaml file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open llm config: %w", err)
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

// LoadConfigFromReader decodes YAML, applies LLM_* environment overrides and
// defaults, then checks everything except the API key. A config without a key
// loads fine; NewClient rejects it.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read llm config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("unmarshal llm config: %w", err)
	}

	cfg := &Config{
		BaseURL:      envOr(envBaseURL, fc.BaseURL),
		APIKey:       envOr(envAPIKey, fc.APIKey),
		DefaultModel: envOr(envDefaultModel, fc.DefaultModel),
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		Models:       fc.Models,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envGoogleAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModel
	}

	if raw := envOr(envTimeout, fc.Timeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("llm config: invalid timeout %q: %w", raw, err)
		}
		cfg.Timeout = d
	}

	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if raw := os.Getenv(envMaxRetries); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("llm config: invalid %s %q", envMaxRetries, raw)
		}
		cfg.MaxRetries = n
	}

	if err := cfg.checkSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate requires an API key on top of the load-time checks.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("llm config: api_key is required")
	}
	return c.checkSettings()
}

func (c *Config) checkSettings() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return errors.New("llm config: base_url is required")
	case strings.TrimSpace(c.DefaultModel) == "":
		return errors.New("llm config: default_model is required")
	case c.Timeout <= 0:
		return errors.New("llm config: timeout must be positive")
	case c.MaxRetries < 0:
		return errors.New("llm config: max_retries cannot be negative")
	}
	return nil
}

// Model looks up an alias.
func (c *Config) Model(alias string) (ModelConfig, bool) {
	m, ok := c.Models[alias]
	return m, ok
}

// resolve picks the provider model id for alias, falling back to the
// default alias. Unknown aliases are sent to the provider verbatim.
func (c *Config) resolve(alias string) (string, ModelConfig) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		alias = c.DefaultModel
	}
	m, _ := c.Model(alias)
	if id := strings.TrimSpace(m.ModelName); id != "" {
		return id, m
	}
	return alias, m
}

// Clone copies the config including the alias map.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Models != nil {
		cp.Models = make(map[string]ModelConfig, len(c.Models))
		for k, v := range c.Models {
			cp.Models[k] = v
		}
	}
	return &cp
}

// envOr prefers a non-empty environment variable, else the ${VAR}-expanded
// file value.
func envOr(key, fileValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(os.ExpandEnv(fileValue))
}

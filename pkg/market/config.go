package market

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"zerodte-api/pkg/confkit"
)

// Config lists the quote providers the engine may use. Default names the one
// the analysis pipeline reads from.
type Config struct {
	Default   string                     `yaml:"default"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig is one providers.<name> block. String fields accept ${VAR}
// references; durations use Go syntax ("8s").
type ProviderConfig struct {
	Type        string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration // per quote/chain call
	HTTPTimeout time.Duration // transport level
	MaxRetries  int
	// RateLimit is requests per second; zero keeps the provider default.
	RateLimit float64
	Burst     int
}

// UnmarshalYAML expands environment references and parses durations.
func (p *ProviderConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type        string  `yaml:"type"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Timeout     string  `yaml:"timeout"`
		HTTPTimeout string  `yaml:"http_timeout"`
		MaxRetries  int     `yaml:"max_retries"`
		RateLimit   float64 `yaml:"rate_limit"`
		Burst       int     `yaml:"burst"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	timeout, err := parsePositive("timeout", raw.Timeout)
	if err != nil {
		return err
	}
	httpTimeout, err := parsePositive("http_timeout", raw.HTTPTimeout)
	if err != nil {
		return err
	}

	*p = ProviderConfig{
		Type:        expand(raw.Type),
		BaseURL:     expand(raw.BaseURL),
		APIKey:      expand(raw.APIKey),
		Timeout:     timeout,
		HTTPTimeout: httpTimeout,
		MaxRetries:  raw.MaxRetries,
		RateLimit:   raw.RateLimit,
		Burst:       raw.Burst,
	}
	return nil
}

func expand(s string) string {
	return strings.TrimSpace(os.ExpandEnv(s))
}

func parsePositive(field, raw string) (time.Duration, error) {
	raw = expand(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return d, nil
}

// ProviderBuilder turns a provider block into a Gateway.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Gateway, error)

var registry = struct {
	sync.RWMutex
	builders map[string]ProviderBuilder
}{builders: map[string]ProviderBuilder{}}

func registryKey(typeName string) string {
	return strings.ToLower(strings.TrimSpace(typeName))
}

// RegisterProvider makes a provider type available to config files. Provider
// packages call it from init.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	registry.Lock()
	registry.builders[registryKey(typeName)] = builder
	registry.Unlock()
}

func builderFor(typeName string) (ProviderBuilder, bool) {
	registry.RLock()
	defer registry.RUnlock()
	b, ok := registry.builders[registryKey(typeName)]
	return b, ok
}

// LoadConfig reads market.yaml, loading .env first so ${VAR} references
// resolve.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

// LoadConfigFromReader decodes and validates a market config.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()

	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("market config: %w", err)
	}
	for name, p := range cfg.Providers {
		if p == nil {
			cfg.Providers[name] = &ProviderConfig{}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks provider names, types and the default reference.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return errors.New("market config: no providers configured")
	}
	if c.Default != "" && c.Providers[c.Default] == nil {
		return fmt.Errorf("market config: default provider %q not defined", c.Default)
	}
	for _, name := range c.names() {
		p := c.Providers[name]
		switch {
		case strings.TrimSpace(name) == "":
			return errors.New("market config: provider name cannot be empty")
		case p == nil:
			return fmt.Errorf("market config: provider %s is empty", name)
		case p.Type == "":
			return fmt.Errorf("market config: provider %s must specify type", name)
		case p.RateLimit < 0:
			return fmt.Errorf("market config: provider %s rate_limit cannot be negative", name)
		}
		if _, ok := builderFor(p.Type); !ok {
			return fmt.Errorf("market config: provider %s has unsupported type %q", name, p.Type)
		}
	}
	return nil
}

func (c *Config) names() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildProviders constructs every configured gateway.
func (c *Config) BuildProviders() (map[string]Gateway, error) {
	out := make(map[string]Gateway, len(c.Providers))
	for _, name := range c.names() {
		gw, err := c.build(name)
		if err != nil {
			return nil, err
		}
		out[name] = gw
	}
	return out, nil
}

// DefaultProvider constructs the gateway named by Default. With no default
// set, exactly one provider must be configured.
func (c *Config) DefaultProvider() (Gateway, error) {
	name := c.Default
	if name == "" {
		names := c.names()
		if len(names) != 1 {
			return nil, fmt.Errorf("market config: default provider required when %d providers are configured", len(names))
		}
		name = names[0]
	}
	if c.Providers[name] == nil {
		return nil, fmt.Errorf("market config: default provider %q not found", name)
	}
	return c.build(name)
}

func (c *Config) build(name string) (Gateway, error) {
	p := c.Providers[name]
	builder, ok := builderFor(p.Type)
	if !ok {
		return nil, fmt.Errorf("market provider %s: unsupported type %q", name, p.Type)
	}
	gw, err := builder(name, p)
	if err != nil {
		return nil, fmt.Errorf("market provider %s: %w", name, err)
	}
	return gw, nil
}

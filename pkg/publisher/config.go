package publisher

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"zerodte-api/pkg/confkit"
)

const (
	defaultTitlePrefix = "0DTE Analysis"
	defaultTimeout     = 30 * time.Second

	envCredentialsFile = "PUBLISHER_CREDENTIALS_FILE"
	envGoogleCreds     = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Config describes the Google Docs publisher.
type Config struct {
	// Enabled turns the publisher on; a disabled publisher reports ErrDisabled.
	Enabled bool `yaml:"enabled"`
	// AutoPublish also delivers every completed run, not only on request.
	AutoPublish     bool   `yaml:"auto_publish"`
	CredentialsFile string `yaml:"credentials_file"`
	TitlePrefix     string `yaml:"title_prefix"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open publisher config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read publisher config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal publisher config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.CredentialsFile = strings.TrimSpace(os.ExpandEnv(c.CredentialsFile))
	if v := os.Getenv(envCredentialsFile); v != "" {
		c.CredentialsFile = v
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv(envGoogleCreds)
	}
	c.TitlePrefix = strings.TrimSpace(c.TitlePrefix)
	if c.TitlePrefix == "" {
		c.TitlePrefix = defaultTitlePrefix
	}
	raw := strings.TrimSpace(os.ExpandEnv(c.TimeoutRaw))
	if raw == "" {
		c.Timeout = defaultTimeout
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("publisher config: invalid timeout %q: %w", raw, err)
	}
	c.Timeout = d
	return nil
}

// Validate checks the configuration for an enabled publisher.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CredentialsFile == "" {
		return fmt.Errorf("publisher config: credentials_file is required when enabled")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("publisher config: timeout must be positive")
	}
	return nil
}

package bench

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// Config identifies the remote endpoint/model a task talks to.
// CacheKey() derives the config identity used in cache keys, so two
// different models never share cached outputs.
type Config struct {
	Endpoint   string  `yaml:"endpoint"`    // base URL (OpenAI-compatible) or Azure resource URL
	Model      string  `yaml:"model"`       // model or deployment name
	APIKey     string  `yaml:"api_key"`     // bearer / api-key value
	UseAzure   bool    `yaml:"azure"`       // Azure OpenAI request shape
	APIVersion string  `yaml:"api_version"` // Azure api-version (optional)
	Timeout    float64 `yaml:"timeout"`     // per-request timeout in seconds
}

// DefaultConfig returns a Config with the defaults the CLI assumes.
func DefaultConfig() *Config {
	return &Config{Timeout: 90}
}

// LoadConfigFile reads a YAML config file into cfg, overwriting only the
// fields the file sets.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// CacheKey returns the stable config identity, e.g. "azure:gpt-4.1-mini"
// or "localhost:8000:qwen3-8b".
func (c *Config) CacheKey() string {
	if c.UseAzure {
		return "azure:" + c.Model
	}
	host := c.Endpoint
	if u, err := url.Parse(c.Endpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	return host + ":" + c.Model
}

// HTTPTimeout returns the per-request timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.Timeout * float64(time.Second))
}

// chatClient builds an OpenAI-compatible chat client for this config.
func (c *Config) chatClient() *openai.Client {
	var cc openai.ClientConfig
	if c.UseAzure {
		cc = openai.DefaultAzureConfig(c.APIKey, c.Endpoint)
		if c.APIVersion != "" {
			cc.APIVersion = c.APIVersion
		}
	} else {
		cc = openai.DefaultConfig(c.APIKey)
		if c.Endpoint != "" {
			cc.BaseURL = c.Endpoint
		}
	}
	cc.HTTPClient = &http.Client{Timeout: c.HTTPTimeout()}
	return openai.NewClientWithConfig(cc)
}

package llm

import (
	"fmt"
	"time"

	"github.com/kbukum/llmstream/resilience"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultChatPath    = "/chat/completions"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 1.0
	DefaultTimeout     = 2 * time.Second
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API base URL.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// ChatPath is appended to BaseURL for completion requests.
	ChatPath string `yaml:"chat_path" mapstructure:"chat_path"`

	// APIKey is sent as a bearer token.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// Model is the model identifier sent with every request.
	Model string `yaml:"model" mapstructure:"model"`

	// Temperature is the sampling temperature. Nil means DefaultTemperature;
	// an explicit 0 is sent as 0.
	Temperature *float64 `yaml:"temperature" mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`

	// Timeout bounds the wait for the upstream to start responding. Once
	// the stream has started no timeout applies.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Backoff configures retries for opening the stream. Nil uses
	// resilience.DefaultBackoffConfig.
	Backoff *resilience.BackoffConfig `yaml:"backoff" mapstructure:"backoff"`

	// Headers are additional HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ChatPath == "" {
		c.ChatPath = DefaultChatPath
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Backoff == nil {
		b := resilience.DefaultBackoffConfig()
		c.Backoff = &b
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("llm: api key is required")
	}
	if c.Backoff != nil && c.Backoff.MaxRetries < 0 {
		return fmt.Errorf("llm: backoff max retries must not be negative")
	}
	return nil
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/llmstream/logger"
)

func TestLoad_FileEnvAndFallbackKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmstream.yml")
	err := os.WriteFile(path, []byte(`
llm:
  model: gpt-test
  timeout: 5s
  backoff:
    max_retries: 1
    initial_delay: 10ms
server:
  port: 9090
streams:
  max_concurrent: 4
`), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv(APIKeyEnv, "sk-fallback")
	t.Setenv("LLMSTREAM_LLM_API_KEY", "")

	cfg, err := Load(LoadOptions{ConfigFile: path, Debug: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.ApplyDefaults()

	if cfg.LLM.Model != "gpt-test" || cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.LLM.Backoff == nil || cfg.LLM.Backoff.MaxRetries != 1 || cfg.LLM.Backoff.InitialDelay != 10*time.Millisecond {
		t.Errorf("unexpected backoff %+v", cfg.LLM.Backoff)
	}
	if cfg.LLM.APIKey != "sk-fallback" {
		t.Errorf("expected fallback key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Server.Port != 9090 || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Streams.MaxConcurrent != 4 {
		t.Errorf("expected 4 stream slots, got %d", cfg.Streams.MaxConcurrent)
	}
	if cfg.Observability.ServiceName != ServiceName {
		t.Errorf("expected observability service %q, got %q", ServiceName, cfg.Observability.ServiceName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"bad base url", func(c *Config) { c.LLM.BaseURL = "::nope" }},
		{"temperature out of range", func(c *Config) {
			hot := 5.0
			c.LLM.Temperature = &hot
		}},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"observability without endpoint", func(c *Config) {
			c.Observability.Enabled = true
			c.Observability.Endpoint = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LLM.APIKey = "sk-test"
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.APIKey = "sk-test"
	cfg.ApplyDefaults()

	client, shutdown, err := NewClient(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	if client.Config().Model != cfg.LLM.Model {
		t.Errorf("unexpected client config %+v", client.Config())
	}
}

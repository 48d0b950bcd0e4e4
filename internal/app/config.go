// Package app holds the configuration and wiring shared by the llmstream
// commands.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/llmstream/config"
	"github.com/kbukum/llmstream/llm"
	"github.com/kbukum/llmstream/logger"
	"github.com/kbukum/llmstream/observability"
	"github.com/kbukum/llmstream/resilience"
	"github.com/kbukum/llmstream/server"
	"github.com/kbukum/llmstream/validation"
	"github.com/kbukum/llmstream/version"
)

// ServiceName names the service in logs, telemetry and config lookup.
const ServiceName = "llmstream"

// APIKeyEnv is read when no API key is configured.
const APIKeyEnv = "OPENAI_API_KEY"

// Config is the complete llmstream configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	LLM           llm.Config           `yaml:"llm" mapstructure:"llm"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	// Streams caps concurrent relay requests. The zero value means no cap.
	Streams resilience.BulkheadConfig `yaml:"streams" mapstructure:"streams"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = version.Get().Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks struct tags first, then each section's own rules.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("config.llm: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	return nil
}

// LoadOptions selects configuration sources.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
	Debug      bool
}

// Load reads the configuration. Defaults are applied later by
// bootstrap.NewApp.
func Load(opts LoadOptions) (*Config, error) {
	var loaderOpts []config.LoaderOption
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.ConfigFile))
	}
	if opts.EnvFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(opts.EnvFile))
	}

	var cfg Config
	if err := config.LoadConfig(ServiceName, &cfg, loaderOpts...); err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(APIKeyEnv)
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
	return &cfg, nil
}

// NewClient sets up telemetry and returns a completion client recording
// stream metrics. The returned shutdown flushes telemetry.
func NewClient(ctx context.Context, cfg *Config, log *logger.Logger, opts ...llm.Option) (*llm.Client, func(context.Context) error, error) {
	shutdown, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, nil, fmt.Errorf("observability: %w", err)
	}

	metrics, err := observability.NewStreamMetrics(nil)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}

	opts = append([]llm.Option{
		llm.WithLogger(log.WithComponent("llm")),
		llm.WithInstruments(metrics),
	}, opts...)

	client, err := llm.New(cfg.LLM, opts...)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	return client, shutdown, nil
}

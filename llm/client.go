package llm

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/llmstream/errors"
	"github.com/kbukum/llmstream/httpclient"
	"github.com/kbukum/llmstream/httpclient/sse"
	"github.com/kbukum/llmstream/llm/chunk"
	"github.com/kbukum/llmstream/logger"
	"github.com/kbukum/llmstream/observability"
	"github.com/kbukum/llmstream/resilience"
)

// Transport issues a streaming completion request. *httpclient.Client
// implements it.
type Transport interface {
	DoStream(ctx context.Context, req httpclient.Request) (*httpclient.StreamResponse, error)
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport built from Config.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithInstruments sets the metrics recorded by the client.
func WithInstruments(m *observability.StreamMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client streams chat completions. It is safe for concurrent use; every
// call owns its retry state and its stream pipeline.
type Client struct {
	cfg         Config
	transport   Transport
	transformer *chunk.Transformer
	log         *logger.Logger
	metrics     *observability.StreamMetrics
}

// NewClient creates a Client for apiKey with default settings.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	return New(Config{APIKey: apiKey}, opts...)
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = logger.WithComponent("llm")
	}

	if c.transport == nil {
		hc, err := httpclient.New(httpclient.Config{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Auth:    httpclient.BearerAuth(cfg.APIKey),
			Headers: cfg.Headers,
		})
		if err != nil {
			return nil, err
		}
		c.transport = hc
	}

	c.transformer = chunk.NewTransformer(
		chunk.WithLogger(c.log.WithComponent("llm.chunk")),
		chunk.WithFrameErrorHook(func(*chunk.FrameError) {
			c.metrics.RecordFrameError(context.Background())
		}),
	)
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// ResponseStream opens a completion stream for messages. Opening is retried
// according to Config.Backoff. When every attempt fails the returned error
// is an *errors.AppError with code STREAM_UNAVAILABLE wrapping the last
// upstream error.
func (c *Client) ResponseStream(ctx context.Context, messages []Message) (*Stream, error) {
	requestID := uuid.NewString()
	log := c.log.WithFields(logger.Fields(
		logger.FieldRequestID, requestID,
		logger.FieldModel, c.cfg.Model,
	))

	ctx, span := observability.StartSpan(ctx, observability.SpanResponseStream,
		trace.WithAttributes(
			attribute.String(observability.AttrModel, c.cfg.Model),
			attribute.String(observability.AttrRequestID, requestID),
		),
	)
	defer span.End()

	req := httpclient.Request{
		Path: c.cfg.ChatPath,
		Body: completionRequest{
			Model:       c.cfg.Model,
			Messages:    messages,
			N:           1,
			Temperature: *c.cfg.Temperature,
			Stream:      true,
		},
	}

	backoff := *c.cfg.Backoff
	onRetry := backoff.OnRetry
	backoff.OnRetry = func(retry int, err error, delay time.Duration) {
		c.metrics.RecordRetry(ctx, c.cfg.Model)
		log.Warn("completion request failed, retrying", logger.Fields(
			logger.FieldAttempt, retry+1,
			"delay", delay.String(),
			logger.FieldError, err.Error(),
		))
		if onRetry != nil {
			onRetry(retry, err, delay)
		}
	}

	// The stream outlives this call, so it gets its own cancel.
	streamCtx, cancel := context.WithCancel(ctx)
	start := time.Now()
	attempts := 0
	resp, err := resilience.Backoff(streamCtx, backoff, func(ctx context.Context) (*httpclient.StreamResponse, error) {
		attempts++
		return c.transport.DoStream(ctx, req)
	})
	span.SetAttributes(attribute.Int(observability.AttrAttempts, attempts))
	if err != nil {
		cancel()
		c.metrics.RecordRequest(ctx, c.cfg.Model, observability.OutcomeFailed, time.Since(start))
		observability.SetSpanError(span, err)

		fields := logger.Fields(logger.FieldAttempt, attempts, logger.FieldError, err.Error())
		var httpErr *httpclient.Error
		if stderrors.As(err, &httpErr) {
			fields["status"] = httpErr.StatusCode
			fields["kind"] = httpErr.Code.String()
			log.Error("completion request transport failure", fields)
		} else {
			log.Error("completion request failed", fields)
		}
		return nil, apperrors.StreamUnavailable(err)
	}

	c.metrics.RecordRequest(ctx, c.cfg.Model, observability.OutcomeOpened, time.Since(start))
	log.Debug("completion stream opened", logger.Fields(
		logger.FieldAttempt, attempts,
		"status", resp.StatusCode,
	))

	return newStream(streamCtx, cancel, requestID, c.transformer.Pipe(streamCtx, sse.NewReader(resp.Body)), c.metrics), nil
}

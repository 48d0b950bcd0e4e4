package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig configures Backoff. Zero values are used as given, so a zero
// MaxJitter yields pure exponential backoff and a zero MaxRetries makes a
// single attempt. Use DefaultBackoffConfig for the standard policy.
type BackoffConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay" validate:"gte=0"`
	// MaxJitter bounds the uniform random delay added before scaling.
	MaxJitter time.Duration `yaml:"max_jitter" mapstructure:"max_jitter" validate:"gte=0"`
	// OnRetry is called after a failed attempt, before sleeping.
	// retry is zero-based: 0 precedes the second attempt.
	OnRetry func(retry int, err error, delay time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultBackoffConfig returns 3 retries starting at one second with up to
// one second of jitter.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxJitter:    time.Second,
	}
}

// Backoff runs op until it succeeds or the retry budget is spent. The delay
// before retry n is (InitialDelay + uniform[0, MaxJitter]) * 2^n. When the
// budget is exhausted the error from the last attempt is returned unchanged.
// If ctx ends during a delay, ctx.Err() is returned.
func Backoff[T any](ctx context.Context, cfg BackoffConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	cfg = cfg.normalized()

	for retry := 0; ; retry++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if retry >= cfg.MaxRetries {
			return zero, err
		}

		delay := BackoffDelay(cfg, retry, jitter(cfg.MaxJitter))
		if cfg.OnRetry != nil {
			cfg.OnRetry(retry, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// MaxBackoffDelay is the largest delay BackoffDelay returns.
const MaxBackoffDelay = time.Duration(math.MaxInt64)

// BackoffDelay returns the delay before retry n for a given jitter sample.
// The result saturates at MaxBackoffDelay instead of overflowing.
func BackoffDelay(cfg BackoffConfig, retry int, jitter time.Duration) time.Duration {
	if retry < 0 {
		retry = 0
	}
	initial, j := max(cfg.InitialDelay, 0), max(jitter, 0)
	if initial > MaxBackoffDelay-j {
		return MaxBackoffDelay
	}
	base := initial + j
	if base == 0 {
		return 0
	}
	if retry >= 63 || base > MaxBackoffDelay>>uint(retry) {
		return MaxBackoffDelay
	}
	return base << uint(retry)
}

func (c BackoffConfig) normalized() BackoffConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxJitter < 0 {
		c.MaxJitter = 0
	}
	return c
}

// jitter returns a uniform sample in [0, limit].
func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit) + 1))
}

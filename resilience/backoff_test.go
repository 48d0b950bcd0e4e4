package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func fastConfig(maxRetries int) BackoffConfig {
	return BackoffConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxJitter:    0,
	}
}

func TestBackoff_SucceedsOnFirstAttempt(t *testing.T) {
	callCount := 0

	result, err := Backoff(context.Background(), fastConfig(3), func(context.Context) (string, error) {
		callCount++
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestBackoff_SucceedsAfterRetry(t *testing.T) {
	callCount := 0

	result, err := Backoff(context.Background(), fastConfig(3), func(context.Context) (int, error) {
		callCount++
		if callCount < 3 {
			return 0, errors.New("temporary error")
		}
		return 42, nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestBackoff_RetryBudget(t *testing.T) {
	callCount := 0
	testErr := errors.New("persistent error")

	_, err := Backoff(context.Background(), fastConfig(2), func(context.Context) (string, error) {
		callCount++
		return "", testErr
	})

	if err != testErr {
		t.Errorf("expected the original error unchanged, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 attempts, got %d", callCount)
	}
}

func TestBackoff_ZeroRetries(t *testing.T) {
	callCount := 0
	_, err := Backoff(context.Background(), fastConfig(0), func(context.Context) (string, error) {
		callCount++
		return "", errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if callCount != 1 {
		t.Errorf("expected 1 attempt, got %d", callCount)
	}
}

func TestBackoff_NegativeValuesClamp(t *testing.T) {
	callCount := 0
	cfg := BackoffConfig{MaxRetries: -1, InitialDelay: -time.Second, MaxJitter: -time.Second}
	_, _ = Backoff(context.Background(), cfg, func(context.Context) (string, error) {
		callCount++
		return "", errors.New("fail")
	})
	if callCount != 1 {
		t.Errorf("expected 1 attempt, got %d", callCount)
	}
}

func TestBackoff_RespectsContext(t *testing.T) {
	cfg := BackoffConfig{
		MaxRetries:   10,
		InitialDelay: 100 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	callCount := 0
	_, err := Backoff(ctx, cfg, func(context.Context) (string, error) {
		callCount++
		return "", errors.New("error")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call before the deadline, got %d", callCount)
	}
}

func TestBackoff_OnRetryCallback(t *testing.T) {
	var retries []int
	var delays []time.Duration
	var mu sync.Mutex

	cfg := fastConfig(2)
	cfg.OnRetry = func(retry int, err error, delay time.Duration) {
		mu.Lock()
		retries = append(retries, retry)
		delays = append(delays, delay)
		mu.Unlock()
	}

	_, _ = Backoff(context.Background(), cfg, func(context.Context) (string, error) {
		return "", errors.New("error")
	})

	mu.Lock()
	defer mu.Unlock()

	if len(retries) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retries))
	}
	if retries[0] != 0 || retries[1] != 1 {
		t.Errorf("expected retries [0, 1], got %v", retries)
	}
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("expected delays [1ms, 2ms], got %v", delays)
	}
}

func TestBackoffDelay_Monotonic(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second}

	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
	}

	var prev time.Duration
	for _, tt := range tests {
		got := BackoffDelay(cfg, tt.retry, 0)
		if got != tt.expected {
			t.Errorf("retry %d: expected %v, got %v", tt.retry, tt.expected, got)
		}
		if prev != 0 && got != 2*prev {
			t.Errorf("retry %d: expected ratio 2 over %v, got %v", tt.retry, prev, got)
		}
		prev = got
	}
}

func TestBackoffDelay_JitterScaled(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second}
	got := BackoffDelay(cfg, 2, 500*time.Millisecond)
	if got != 6*time.Second {
		t.Errorf("expected (1s+500ms)*4 = 6s, got %v", got)
	}
}

func TestBackoffDelay_Saturates(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 2 * time.Second}

	tests := []struct {
		retry  int
		jitter time.Duration
	}{
		{33, 0},
		{40, 0},
		{63, 0},
		{1000, 0},
		{0, MaxBackoffDelay},
	}
	for _, tt := range tests {
		if got := BackoffDelay(cfg, tt.retry, tt.jitter); got != MaxBackoffDelay {
			t.Errorf("retry %d jitter %v: expected saturation, got %v", tt.retry, tt.jitter, got)
		}
	}

	var prev time.Duration
	for retry := 0; retry < 70; retry++ {
		got := BackoffDelay(cfg, retry, 0)
		if got < prev {
			t.Fatalf("retry %d: delay %v decreased from %v", retry, got, prev)
		}
		prev = got
	}

	if got := BackoffDelay(BackoffConfig{}, 80, 0); got != 0 {
		t.Errorf("zero base must stay zero, got %v", got)
	}
}

func TestJitter_Bounds(t *testing.T) {
	if jitter(0) != 0 {
		t.Error("zero max jitter must yield zero")
	}
	for i := 0; i < 1000; i++ {
		j := jitter(10 * time.Millisecond)
		if j < 0 || j > 10*time.Millisecond {
			t.Fatalf("jitter out of bounds: %v", j)
		}
	}
}

func TestDefaultBackoffConfig(t *testing.T) {
	cfg := DefaultBackoffConfig()
	if cfg.MaxRetries != 3 || cfg.InitialDelay != time.Second || cfg.MaxJitter != time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

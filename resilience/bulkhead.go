package resilience

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig caps how many streams may be open at once.
type BulkheadConfig struct {
	// MaxConcurrent is the number of slots. Zero or less disables the cap.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait is how long Acquire waits for a free slot. 0 fails immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`
	// OnReject is called each time Acquire gives up.
	OnReject func(err error) `yaml:"-" mapstructure:"-"`
}

// Bulkhead hands out a fixed number of slots. Unlike a retry policy it is
// shared: one Bulkhead guards every stream of a relay.
type Bulkhead struct {
	cfg BulkheadConfig
	sem chan struct{}
}

// NewBulkhead returns a Bulkhead, or nil when cfg.MaxConcurrent is not
// positive. A nil *Bulkhead admits everything.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		return nil
	}
	return &Bulkhead{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Acquire takes a slot. The returned release must be called exactly once
// when the guarded work ends; calling it again is a no-op.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if b == nil {
		return func() {}, nil
	}
	if err := b.acquire(ctx); err != nil {
		if b.cfg.OnReject != nil {
			b.cfg.OnReject(err)
		}
		return nil, err
	}

	released := make(chan struct{})
	return func() {
		select {
		case <-released:
		default:
			close(released)
			<-b.sem
		}
	}, nil
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.cfg.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.cfg.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of taken slots.
func (b *Bulkhead) InUse() int {
	if b == nil {
		return 0
	}
	return len(b.sem)
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	if b == nil {
		return 0
	}
	return b.cfg.MaxConcurrent - len(b.sem)
}

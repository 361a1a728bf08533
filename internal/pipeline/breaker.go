package pipeline

import (
	"sync"
	"time"
)

// BreakerConfig tunes the per-provider circuit breaker. Thresholds are
// configuration, not constants.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // how long the circuit stays open
}

// DefaultBreakerConfig is a conservative default.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Cooldown: 30 * time.Second}
}

// Breaker judges upstream provider health from consecutive failures. One
// breaker is shared by every section calling the same provider, so a sick
// provider fails fast across the whole graph instead of burning each
// section's retry budget separately.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	consecutive int
	openedAt    time.Time
	open        bool
	now         func() time.Time // overridden in tests
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a call may proceed. An open circuit half-opens
// after the cooldown: the next call is allowed through as a probe.
func (b *Breaker) Allow() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		// Half-open: let one probe through; state resolves on its outcome.
		b.open = false
		b.consecutive = b.cfg.FailureThreshold - 1
		return true
	}
	return false
}

// RecordSuccess resets the failure streak.
func (b *Breaker) RecordSuccess() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.consecutive = 0
	b.open = false
	b.mu.Unlock()
}

// RecordFailure counts a provider fault. Caller errors (invalid input,
// schema failures) should not be recorded here.
func (b *Breaker) RecordFailure() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.consecutive++
	if b.consecutive >= b.cfg.FailureThreshold && !b.open {
		b.open = true
		b.openedAt = b.now()
	}
	b.mu.Unlock()
}

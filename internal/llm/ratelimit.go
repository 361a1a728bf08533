package llm

import (
	"context"
	"sync"
	"time"
)

// rpsLimiter is a lightweight token-bucket limiter that throttles to at most
// R requests per second with an optional burst capacity. A provider throttle
// hint can pause refills so every caller sharing the bucket backs off.
type rpsLimiter struct {
	tokens chan struct{}
	stopCh chan struct{}

	mu         sync.Mutex
	pauseUntil time.Time
}

// newRPSLimiter creates a limiter that allows up to rps events per second
// with a burst capacity of 'burst'. If rps <= 0, the limiter is disabled
// (Acquire becomes a no-op).
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}

	// Pre-fill bucket to allow an initial burst.
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	// Refill at the configured rate.
	// If rps is fractional, the period is sub-second (e.g., 1.5 rps ≈ 666ms).
	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond // safeguard
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if l.paused() {
					continue
				}
				select {
				case l.tokens <- struct{}{}:
				default:
					// bucket full; drop token
				}
			case <-l.stopCh:
				return
			}
		}
	}()

	return l
}

func (l *rpsLimiter) paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Now().Before(l.pauseUntil)
}

// Pause suspends refills for d and drains the burst, so in-flight acquirers
// wait too. Called when the provider returned a throttle hint. The deadline
// is set before the drain; a concurrent refill cannot slip a token in.
func (l *rpsLimiter) Pause(d time.Duration) {
	if l == nil || d <= 0 {
		return
	}
	until := time.Now().Add(d)
	l.mu.Lock()
	if until.After(l.pauseUntil) {
		l.pauseUntil = until
	}
	l.mu.Unlock()
	for {
		select {
		case <-l.tokens:
			continue
		default:
		}
		break
	}
}

// Acquire blocks until a token is available or the context is canceled.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return context.Canceled
		case <-l.tokens:
			// A token minted around the pause boundary doesn't count;
			// drop it and wait for refills to resume.
			if l.paused() {
				continue
			}
			return nil
		}
	}
}

// Stop terminates the limiter's refill goroutine.
func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	close(l.stopCh)
}

// NewLimiter exposes a minimal Limiter backed by an internal rpsLimiter.
func NewLimiter(rps float64, burst int) Limiter {
	return newRPSLimiter(rps, burst)
}

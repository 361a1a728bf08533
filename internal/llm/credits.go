package llm

import (
	"context"
	"sync/atomic"
)

// creditsKey carries a reservation through the generation call chain.
type creditsKey struct{}

// reservation is a draw-down counter of prepaid generation permits.
type reservation struct{ left atomic.Int32 }

// WithCredits returns a context carrying n prepaid permits. The rate-limit
// middleware draws these down before touching the shared limiter, so a
// section that reserved its whole fan-out budget up-front never stalls
// mid-way. n <= 0 leaves ctx untouched.
func WithCredits(ctx context.Context, n int) context.Context {
	if n <= 0 {
		return ctx
	}
	r := &reservation{}
	r.left.Store(int32(n))
	return context.WithValue(ctx, creditsKey{}, r)
}

// TakeCredit draws one permit from the context's reservation, reporting
// whether one was available. Safe for concurrent callers sharing a lease.
func TakeCredit(ctx context.Context) bool {
	r, ok := ctx.Value(creditsKey{}).(*reservation)
	if !ok || r == nil {
		return false
	}
	for {
		cur := r.left.Load()
		if cur <= 0 {
			return false
		}
		if r.left.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// CreditsRemaining reports the unused permits left on the context's
// reservation, 0 when none was attached.
func CreditsRemaining(ctx context.Context) int {
	r, ok := ctx.Value(creditsKey{}).(*reservation)
	if !ok || r == nil {
		return 0
	}
	if n := r.left.Load(); n > 0 {
		return int(n)
	}
	return 0
}

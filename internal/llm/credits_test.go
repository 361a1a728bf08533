package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"stratify/internal/tester"
)

func TestWithCreditsAndTakeCredit(t *testing.T) {
	ctx := context.Background()
	ctx = WithCredits(ctx, 10)

	var wg sync.WaitGroup
	var taken int64
	workers := 50
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				if TakeCredit(ctx) {
					atomic.AddInt64(&taken, 1)
					continue
				}
				break
			}
		}()
	}
	wg.Wait()

	// After all attempts, no more credits should be available.
	tester.False(t, TakeCredit(ctx), "expected no credits left")
	tester.Eq(t, taken, int64(10), "exact number of credits consumed")
}

func TestWithCreditsNonPositive(t *testing.T) {
	ctx := context.Background()
	tester.True(t, WithCredits(ctx, 0) == ctx, "zero credits returns original context")
	tester.False(t, TakeCredit(ctx), "no credits on bare context")
}

func TestCreditsRemaining(t *testing.T) {
	ctx := WithCredits(context.Background(), 3)
	tester.Eq(t, CreditsRemaining(ctx), 3)
	tester.True(t, TakeCredit(ctx))
	tester.Eq(t, CreditsRemaining(ctx), 2)
	tester.True(t, TakeCredit(ctx))
	tester.True(t, TakeCredit(ctx))
	tester.Eq(t, CreditsRemaining(ctx), 0)
	tester.Eq(t, CreditsRemaining(context.Background()), 0, "bare context has no reservation")
}

func TestBrokerReserveInjectsCredits(t *testing.T) {
	b := NewBroker(NewLimiter(1000, 8))
	lease, err := b.Reserve(context.Background(), 3)
	tester.NoErr(t, err)

	ctx := lease.Context(context.Background())
	tester.True(t, TakeCredit(ctx))
	tester.True(t, TakeCredit(ctx))
	tester.True(t, TakeCredit(ctx))
	tester.False(t, TakeCredit(ctx), "lease carries exactly n credits")
}

func TestBrokerReserveZero(t *testing.T) {
	b := NewBroker(nil)
	lease, err := b.Reserve(context.Background(), 0)
	tester.NoErr(t, err)
	tester.False(t, TakeCredit(lease.Context(context.Background())))
}

func TestBrokerReserveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Burst of 1 means the second acquire must wait, and the canceled
	// context surfaces immediately.
	b := NewBroker(NewLimiter(0.001, 1))
	_, err := b.Reserve(ctx, 2)
	tester.Err(t, err, "expected context cancellation")
}

package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// unknownQuota marks a budget that has not seen any rate-limit header yet.
// Requests are not limited until the server reports a quota.
const unknownQuota = -1

// Budget tracks the API quota advertised by the forge and makes requests wait
// when it is exhausted or when the server asked for a cooldown.
//
// GitHub reports the quota in X-RateLimit-Remaining / X-RateLimit-Reset,
// GitLab in RateLimit-Remaining / RateLimit-Reset; both send Retry-After
// on 429. Reset values are Unix seconds. Servers that send none of these
// (self-managed GitLab by default) are never throttled.
type Budget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	cooldown  time.Time
	// resetTried is set once a request was let through after reset without a
	// refreshed quota; further requests wait for Observe.
	resetTried bool
	notifyCh   chan struct{}

	now func() time.Time
}

func NewBudget() *Budget {
	return &Budget{
		remaining: unknownQuota,
		notifyCh:  make(chan struct{}),
		now:       time.Now,
	}
}

// Remaining returns the requests left in the current window, or -1 while no
// quota has been reported.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire blocks until one request may be sent or ctx is done.
func (b *Budget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("budget: nil context")
	}
	if b == nil || b.now == nil || b.notifyCh == nil {
		return fmt.Errorf("budget: not initialized (use NewBudget)")
	}

	for {
		b.mu.Lock()
		now := b.now()
		ch := b.notifyCh

		switch {
		case now.Before(b.cooldown):
			until := b.cooldown
			b.mu.Unlock()
			if err := waitUntil(ctx, until.Sub(now), ch); err != nil {
				return err
			}

		case b.remaining == unknownQuota:
			b.mu.Unlock()
			return nil

		case b.remaining > 0:
			b.remaining--
			b.mu.Unlock()
			return nil

		case !now.Before(b.reset) && !b.resetTried:
			b.resetTried = true
			b.mu.Unlock()
			return nil

		case !now.Before(b.reset):
			b.mu.Unlock()
			if err := waitUntil(ctx, -1, ch); err != nil {
				return err
			}

		default:
			until := b.reset
			b.mu.Unlock()
			if err := waitUntil(ctx, until.Sub(now), ch); err != nil {
				return err
			}
		}
	}
}

// waitUntil returns after d (never when d < 0), when ch is closed, or with
// ctx's error.
func waitUntil(ctx context.Context, d time.Duration, ch <-chan struct{}) error {
	var timeout <-chan time.Time
	if d >= 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	case <-timeout:
		return nil
	}
}

// Observe updates the budget from response headers and wakes waiters when
// anything changed.
func (b *Budget) Observe(resp *http.Response) {
	if b == nil || resp == nil || b.now == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false

	if seconds, ok := headerInt(resp.Header, "Retry-After"); ok && seconds > 0 {
		until := b.now().Add(time.Duration(seconds) * time.Second)
		if until.After(b.cooldown) {
			b.cooldown = until
			changed = true
		}
	}

	if val, ok := headerInt(resp.Header, "X-RateLimit-Remaining", "RateLimit-Remaining"); ok && val >= 0 {
		if b.remaining != val {
			b.remaining = val
			changed = true
		}
	}

	if val, ok := headerInt(resp.Header, "X-RateLimit-Reset", "RateLimit-Reset"); ok && val > 0 {
		reset := time.Unix(int64(val), 0)
		if !b.reset.Equal(reset) {
			b.reset = reset
			changed = true
		}
	}

	if changed {
		b.resetTried = false
		close(b.notifyCh)
		b.notifyCh = make(chan struct{})
	}
}

// headerInt returns the first of names that holds an integer.
func headerInt(h http.Header, names ...string) (int, bool) {
	for _, name := range names {
		raw := h.Get(name)
		if raw == "" {
			continue
		}
		if v, err := strconv.Atoi(raw); err == nil {
			return v, true
		}
	}
	return 0, false
}

type budgetRoundTripper struct {
	base   http.RoundTripper
	budget *Budget
}

func (t *budgetRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.budget.Acquire(req.Context()); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		t.budget.Observe(resp)
	}
	return resp, err
}

package wb

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Rate-limit headers sent by the API on every response.
const (
	HeaderRateLimitRemaining = "X-Ratelimit-Remaining"
	HeaderRateLimitRetry     = "X-Ratelimit-Retry"
	HeaderRateLimitReset     = "X-Ratelimit-Reset"
	HeaderRateLimitLimit     = "X-Ratelimit-Limit"
)

// LimiterState is a point-in-time view of a TokenBucket.
type LimiterState struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Limit     int       `json:"limit"`
}

// TokenBucket throttles requests for a single category. Tokens refill
// continuously at rpm/60 per second up to capacity and are refilled lazily
// on access. Server headers may overwrite both tokens and capacity.
type TokenBucket struct {
	mu         sync.Mutex
	rpm        int
	capacity   float64
	tokens     float64
	refill     float64 // tokens per second
	lastRefill time.Time

	nowFunc   func() time.Time
	sleepFunc func(context.Context, time.Duration) error
}

// TokenBucketOption configures a TokenBucket.
type TokenBucketOption func(*TokenBucket)

// WithTokenBucketNowFunc overrides the clock for testing.
func WithTokenBucketNowFunc(f func() time.Time) TokenBucketOption {
	return func(b *TokenBucket) {
		b.nowFunc = f
	}
}

// WithTokenBucketSleepFunc overrides how Acquire waits between refills.
func WithTokenBucketSleepFunc(f func(context.Context, time.Duration) error) TokenBucketOption {
	return func(b *TokenBucket) {
		b.sleepFunc = f
	}
}

// NewTokenBucket creates a full bucket holding burst tokens that refills at
// rpm requests per minute. Non-positive values are raised to 1.
func NewTokenBucket(rpm, burst int, opts ...TokenBucketOption) *TokenBucket {
	rpm = max(rpm, 1)
	burst = max(burst, 1)

	b := &TokenBucket{
		rpm:       rpm,
		capacity:  float64(burst),
		tokens:    float64(burst),
		refill:    float64(rpm) / 60,
		nowFunc:   time.Now,
		sleepFunc: sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastRefill = b.nowFunc()
	return b
}

// Acquire blocks until a token is available and takes it. Between checks
// it sleeps for the minimum interval between two requests at the configured
// rpm. It returns an error only when ctx is done.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := b.intervalLocked()
		b.mu.Unlock()

		if err := b.sleepFunc(ctx, wait); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}
}

// TryAcquire takes a token if one is available and reports whether it did.
// It never blocks.
func (b *TokenBucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// UpdateFromHeaders applies the server's view of the quota. A limit header
// replaces the capacity and a remaining header replaces the token count.
// Missing or malformed headers are ignored, as is a limit below 1.
func (b *TokenBucket) UpdateFromHeaders(h http.Header) {
	limit, hasLimit := headerFloat(h, HeaderRateLimitLimit)
	remaining, hasRemaining := headerFloat(h, HeaderRateLimitRemaining)
	if !hasLimit && !hasRemaining {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if hasLimit && limit >= 1 {
		b.capacity = limit
	}
	if hasRemaining && remaining >= 0 {
		b.tokens = remaining
		b.lastRefill = b.nowFunc()
	}
	b.tokens = min(b.tokens, b.capacity)
}

// State refills the bucket and returns its current state.
func (b *TokenBucket) State() LimiterState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	return LimiterState{
		Remaining: int(math.Floor(b.tokens)),
		ResetAt:   b.lastRefill.Add(b.intervalLocked()),
		Limit:     int(b.capacity),
	}
}

// RPM returns the configured requests-per-minute.
func (b *TokenBucket) RPM() int {
	return b.rpm
}

func (b *TokenBucket) refillLocked() {
	now := b.nowFunc()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refill)
	b.lastRefill = now
}

func (b *TokenBucket) intervalLocked() time.Duration {
	return time.Duration(float64(time.Second) / b.refill)
}

func headerFloat(h http.Header, key string) (float64, bool) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

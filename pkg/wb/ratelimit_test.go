package wb_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

func newBucket(clock *fakeClock, rpm, burst int) *wb.TokenBucket {
	return wb.NewTokenBucket(rpm, burst,
		wb.WithTokenBucketNowFunc(clock.Now),
		wb.WithTokenBucketSleepFunc(clock.Sleep),
	)
}

func TestTokenBucket_TryAcquire(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rpm     int
		burst   int
		advance time.Duration
		calls   int
		want    int
	}{
		{name: "full bucket allows burst", rpm: 60, burst: 5, calls: 5, want: 5},
		{name: "empty bucket rejects", rpm: 60, burst: 3, calls: 5, want: 3},
		{name: "non-positive burst is raised to one", rpm: 60, burst: 0, calls: 3, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			b := newBucket(clock, tt.rpm, tt.burst)

			got := 0
			for range tt.calls {
				if b.TryAcquire() {
					got++
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newBucket(clock, 120, 2)

	require.True(t, b.TryAcquire())
	require.True(t, b.TryAcquire())
	require.False(t, b.TryAcquire())

	// 120 rpm refills one token every half second.
	clock.Advance(500 * time.Millisecond)
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())

	// Long idle periods never exceed capacity.
	clock.Advance(time.Hour)
	assert.Equal(t, 2, b.State().Remaining)
}

func TestTokenBucket_Acquire(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newBucket(clock, 60, 1)

	require.NoError(t, b.Acquire(context.Background()))
	assert.Empty(t, clock.Sleeps())

	require.NoError(t, b.Acquire(context.Background()))
	assert.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
}

func TestTokenBucket_AcquireContextCanceled(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newBucket(clock, 60, 1)
	require.True(t, b.TryAcquire())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "rate limiter wait")
}

func TestTokenBucket_AcquireRealSleep(t *testing.T) {
	t.Parallel()

	b := wb.NewTokenBucket(6000, 1)
	require.NoError(t, b.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, b.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestTokenBucket_UpdateFromHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		headers       map[string]string
		wantRemaining int
		wantLimit     int
	}{
		{
			name:          "remaining replaces tokens",
			headers:       map[string]string{wb.HeaderRateLimitRemaining: "2"},
			wantRemaining: 2,
			wantLimit:     10,
		},
		{
			name:          "zero remaining drains bucket",
			headers:       map[string]string{wb.HeaderRateLimitRemaining: "0"},
			wantRemaining: 0,
			wantLimit:     10,
		},
		{
			name:          "limit replaces capacity and clamps tokens",
			headers:       map[string]string{wb.HeaderRateLimitLimit: "4"},
			wantRemaining: 4,
			wantLimit:     4,
		},
		{
			name: "remaining above new limit is clamped",
			headers: map[string]string{
				wb.HeaderRateLimitLimit:     "3",
				wb.HeaderRateLimitRemaining: "50",
			},
			wantRemaining: 3,
			wantLimit:     3,
		},
		{
			name:          "malformed headers are ignored",
			headers:       map[string]string{wb.HeaderRateLimitRemaining: "soon", wb.HeaderRateLimitLimit: "NaN"},
			wantRemaining: 10,
			wantLimit:     10,
		},
		{
			name: "zero limit keeps capacity",
			headers: map[string]string{
				wb.HeaderRateLimitLimit:     "0",
				wb.HeaderRateLimitRemaining: "6",
			},
			wantRemaining: 6,
			wantLimit:     10,
		},
		{
			name:          "no headers leave state unchanged",
			headers:       nil,
			wantRemaining: 10,
			wantLimit:     10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			b := newBucket(clock, 60, 10)

			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			b.UpdateFromHeaders(h)

			st := b.State()
			assert.Equal(t, tt.wantRemaining, st.Remaining)
			assert.Equal(t, tt.wantLimit, st.Limit)
		})
	}
}

func TestTokenBucket_HeaderRemainingZeroBlocks(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newBucket(clock, 60, 10)

	h := http.Header{}
	h.Set(wb.HeaderRateLimitRemaining, "0")
	b.UpdateFromHeaders(h)

	assert.False(t, b.TryAcquire())
	require.NoError(t, b.Acquire(context.Background()))
	assert.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
}

func TestTokenBucket_State(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newBucket(clock, 30, 4)

	require.True(t, b.TryAcquire())
	// Half a token has refilled; Remaining rounds down.
	clock.Advance(time.Second)

	st := b.State()
	assert.Equal(t, 3, st.Remaining)
	assert.Equal(t, 4, st.Limit)
	assert.Equal(t, clock.Now().Add(2*time.Second), st.ResetAt)
	assert.Equal(t, 30, b.RPM())

	// Reading state at the same instant does not move it.
	again := b.State()
	assert.Equal(t, st, again)
}

func TestTokenBucket_Concurrent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := newBucket(clock, 60, 10)

	var (
		wg  sync.WaitGroup
		got atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.TryAcquire() {
				got.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), got.Load())
	assert.Equal(t, 0, b.State().Remaining)
}

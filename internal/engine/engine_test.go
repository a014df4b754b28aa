package engine

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/internal/metrics"
	"github.com/donaldgifford/wb-seller-tracker/internal/notify"
	notifyMocks "github.com/donaldgifford/wb-seller-tracker/internal/notify/mocks"
	storeMocks "github.com/donaldgifford/wb-seller-tracker/internal/store/mocks"
	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient returns a marketplace client whose every category points
// at an httptest server running handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *wb.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := wb.NewClient(wb.ClientConfig{
		Token:   "test-token",
		Timeout: 5 * time.Second,
		BaseURL: srv.URL,
	}, wb.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

// failOnRequest fails the test if the marketplace is called at all.
func failOnRequest(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestEngine(
	t *testing.T,
	ms *storeMocks.MockStore,
	mn *notifyMocks.MockNotifier,
	handler http.HandlerFunc,
	opts ...EngineOption,
) *Engine {
	t.Helper()
	all := append([]EngineOption{
		WithLogger(quietLogger()),
		WithNowFunc(func() time.Time { return testNow }),
		WithPollerOptions(wb.WithInterval(5*time.Millisecond), wb.WithBackoff(1, 5*time.Millisecond)),
	}, opts...)
	return NewEngine(ms, newTestClient(t, handler), mn, all...)
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	eng := NewEngine(storeMocks.NewMockStore(t), nil, notifyMocks.NewMockNotifier(t))
	assert.Equal(t, defaultTaskBudget, eng.taskBudget)
	assert.Equal(t, defaultTaskConcurrency, eng.taskConcurrency)
	assert.Equal(t, wb.DefaultTaskTimeout, eng.taskTimeout)
	assert.True(t, eng.taskAlerts)
	assert.Zero(t, eng.lowBalance)
	assert.NotNil(t, eng.log)
}

func TestNewEngine_WithOptions(t *testing.T) {
	t.Parallel()

	l := quietLogger()
	eng := NewEngine(storeMocks.NewMockStore(t), nil, notifyMocks.NewMockNotifier(t),
		WithLogger(l),
		WithTaskBudget(5*time.Second),
		WithTaskConcurrency(2),
		WithTaskTimeout(time.Hour),
		WithLowBalanceThreshold(500),
		WithTaskAlerts(false),
		WithTaskConcurrency(0), // ignored
	)

	assert.Same(t, l, eng.log)
	assert.Equal(t, 5*time.Second, eng.taskBudget)
	assert.Equal(t, 2, eng.taskConcurrency)
	assert.Equal(t, time.Hour, eng.taskTimeout)
	assert.InDelta(t, 500, eng.lowBalance, 0.001)
	assert.False(t, eng.taskAlerts)
}

func balanceHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/account/balance" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, status, body)
	}
}

func TestSyncBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		threshold float64
		wantAlert bool
	}{
		{name: "alerts disabled", threshold: 0},
		{name: "above threshold", threshold: 1000},
		{name: "below threshold alerts", threshold: 2000, wantAlert: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ms := storeMocks.NewMockStore(t)
			mn := notifyMocks.NewMockNotifier(t)
			eng := newTestEngine(t, ms, mn,
				balanceHandler(http.StatusOK, `{"currency":"RUB","current":1500.5,"forWithdraw":1200}`),
				WithLowBalanceThreshold(tt.threshold),
			)

			ms.On("SaveBalanceSnapshot", mock.Anything, mock.MatchedBy(func(b *domain.BalanceSnapshot) bool {
				return b.Currency == "RUB" && b.Current == 1500.5 && b.ForWithdraw == 1200 && b.CapturedAt.Equal(testNow)
			})).Return(nil).Once()

			if tt.wantAlert {
				mn.On("SendBalanceAlert", mock.Anything, mock.MatchedBy(func(a *notify.BalanceAlert) bool {
					return a.Current == 1500.5 && a.Threshold == 2000 && a.Currency == "RUB"
				})).Return(nil).Once()
			}

			snap, err := eng.SyncBalance(context.Background())
			require.NoError(t, err)
			assert.InDelta(t, 300.5, snap.Blocked(), 0.001)
		})
	}
}

func TestSyncBalance_APIError(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	mn := notifyMocks.NewMockNotifier(t)
	eng := newTestEngine(t, ms, mn, balanceHandler(http.StatusUnauthorized, `{"title":"unauthorized"}`))

	_, err := eng.SyncBalance(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wb.ErrAuth)
	assert.Contains(t, err.Error(), "reading balance")
}

func TestSyncBalance_AlertFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	mn := notifyMocks.NewMockNotifier(t)
	eng := newTestEngine(t, ms, mn,
		balanceHandler(http.StatusOK, `{"currency":"RUB","current":10,"forWithdraw":0}`),
		WithLowBalanceThreshold(100),
	)

	ms.On("SaveBalanceSnapshot", mock.Anything, mock.Anything).Return(nil).Once()
	mn.On("SendBalanceAlert", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	before := ptestutil.ToFloat64(metrics.NotificationFailuresTotal)
	_, err := eng.SyncBalance(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.NotificationFailuresTotal), before+1)
}

func TestSyncBalance_StoreError(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	mn := notifyMocks.NewMockNotifier(t)
	eng := newTestEngine(t, ms, mn, balanceHandler(http.StatusOK, `{"currency":"RUB","current":10}`))

	ms.On("SaveBalanceSnapshot", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	_, err := eng.SyncBalance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving balance snapshot")
}

func TestLimiterSnapshots_SortedAndComplete(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, storeMocks.NewMockStore(t), notifyMocks.NewMockNotifier(t), failOnRequest(t))

	snaps := eng.LimiterSnapshots()
	require.Len(t, snaps, len(wb.Categories()))
	for i := 1; i < len(snaps); i++ {
		assert.Less(t, snaps[i-1].Category, snaps[i].Category)
	}
	for _, s := range snaps {
		assert.Equal(t, testNow, s.CapturedAt)
		assert.Positive(t, s.Limit, s.Category)
	}
}

func TestSnapshotLimits(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	eng := newTestEngine(t, ms, notifyMocks.NewMockNotifier(t), failOnRequest(t))

	ms.On("SaveLimiterSnapshots", mock.Anything, mock.MatchedBy(func(s []domain.LimiterSnapshot) bool {
		return len(s) == len(wb.Categories())
	})).Return(nil).Once()

	n, err := eng.SnapshotLimits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(wb.Categories()), n)

	capacity := ptestutil.ToFloat64(metrics.WBLimiterCapacity.WithLabelValues(string(wb.CategoryPrices)))
	assert.InDelta(t, float64(eng.Client().Limiter(wb.CategoryPrices).State().Limit), capacity, 0.001)
}

func TestSnapshotLimits_StoreError(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	eng := newTestEngine(t, ms, notifyMocks.NewMockNotifier(t), failOnRequest(t))

	ms.On("SaveLimiterSnapshots", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	n, err := eng.SnapshotLimits(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
}

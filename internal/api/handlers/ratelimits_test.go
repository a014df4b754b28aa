package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/internal/api/handlers"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

type fakeLimiterSource []domain.LimiterSnapshot

func (f fakeLimiterSource) LimiterSnapshots() []domain.LimiterSnapshot {
	return f
}

type fakeLimiterHistory struct {
	category string
	limit    int
	snaps    []domain.LimiterSnapshot
	err      error
}

func (f *fakeLimiterHistory) ListLimiterSnapshots(_ context.Context, category string, limit int) ([]domain.LimiterSnapshot, error) {
	f.category, f.limit = category, limit
	return f.snaps, f.err
}

func TestGetRateLimits(t *testing.T) {
	t.Parallel()

	reset := time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC)

	tests := []struct {
		name     string
		source   handlers.LimiterSource
		wantBody []string
	}{
		{
			name:     "nil source returns empty list",
			source:   nil,
			wantBody: []string{"[]"},
		},
		{
			name: "live limiter state",
			source: fakeLimiterSource{
				{Category: "prices", Remaining: 3, Limit: 5, ResetAt: reset},
				{Category: "statistics", Remaining: 10, Limit: 10, ResetAt: reset},
			},
			wantBody: []string{`"category":"prices"`, `"remaining":3`, `"limit":5`, `"reset_at":"2025-03-01T12:00:01Z"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			handlers.RegisterRateLimitRoutes(api, handlers.NewRateLimitsHandler(tt.source, &fakeLimiterHistory{}))

			resp := api.Get("/api/v1/ratelimits")
			require.Equal(t, http.StatusOK, resp.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, resp.Body.String(), want)
			}
		})
	}
}

func TestGetLimiterHistory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		history    *fakeLimiterHistory
		wantStatus int
		wantLimit  int
	}{
		{
			name:       "default limit",
			path:       "/api/v1/ratelimits/prices/history",
			history:    &fakeLimiterHistory{snaps: []domain.LimiterSnapshot{{Category: "prices"}}},
			wantStatus: http.StatusOK,
			wantLimit:  100,
		},
		{
			name:       "explicit limit",
			path:       "/api/v1/ratelimits/prices/history?limit=3",
			history:    &fakeLimiterHistory{},
			wantStatus: http.StatusOK,
			wantLimit:  3,
		},
		{
			name:       "unknown category",
			path:       "/api/v1/ratelimits/banking/history",
			history:    &fakeLimiterHistory{},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store error",
			path:       "/api/v1/ratelimits/prices/history",
			history:    &fakeLimiterHistory{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
			wantLimit:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			handlers.RegisterRateLimitRoutes(api, handlers.NewRateLimitsHandler(fakeLimiterSource{}, tt.history))

			resp := api.Get(tt.path)
			require.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantLimit, tt.history.limit)
			if tt.wantLimit != 0 {
				assert.Equal(t, "prices", tt.history.category)
			}
		})
	}
}

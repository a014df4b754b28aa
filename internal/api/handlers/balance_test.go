package handlers_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/internal/api/handlers"
	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	storeMocks "github.com/donaldgifford/wb-seller-tracker/internal/store/mocks"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

func TestGetBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		snap       *domain.BalanceSnapshot
		err        error
		wantStatus int
		wantBody   []string
	}{
		{
			name: "latest snapshot with blocked amount",
			snap: &domain.BalanceSnapshot{
				ID: "b1", Currency: "RUB", Current: 1500, ForWithdraw: 1200,
				CapturedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"currency":"RUB"`, `"current":1500`, `"blocked":300`},
		},
		{
			name:       "no snapshot yet",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   []string{"no balance snapshot yet"},
		},
		{
			name:       "store error",
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ms := storeMocks.NewMockStore(t)
			ms.On("LatestBalance", mock.Anything).Return(tt.snap, tt.err).Once()

			_, api := humatest.New(t)
			handlers.RegisterBalanceRoutes(api, handlers.NewBalanceHandler(ms))

			resp := api.Get("/api/v1/balance")
			require.Equal(t, tt.wantStatus, resp.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, resp.Body.String(), want)
			}
		})
	}
}

func TestGetBalanceHistory(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		setupMock  func(*storeMocks.MockStore)
		wantStatus int
		wantBody   string
	}{
		{
			name:  "explicit since and limit",
			query: "?since=2025-02-01T00:00:00Z&limit=5",
			setupMock: func(m *storeMocks.MockStore) {
				m.On("ListBalanceSnapshots", mock.Anything, mock.MatchedBy(func(s time.Time) bool {
					return s.Equal(since)
				}), 5).Return([]domain.BalanceSnapshot{{ID: "b1", Current: 10}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"id":"b1"`,
		},
		{
			name:  "defaults to last week",
			query: "",
			setupMock: func(m *storeMocks.MockStore) {
				m.On("ListBalanceSnapshots", mock.Anything, mock.MatchedBy(func(s time.Time) bool {
					return time.Since(s) > 6*24*time.Hour
				}), 100).Return(nil, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
		{
			name:       "bad since",
			query:      "?since=yesterday",
			setupMock:  func(*storeMocks.MockStore) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:  "store error",
			query: "",
			setupMock: func(m *storeMocks.MockStore) {
				m.On("ListBalanceSnapshots", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "fetching balance history failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ms := storeMocks.NewMockStore(t)
			tt.setupMock(ms)

			_, api := humatest.New(t)
			handlers.RegisterBalanceRoutes(api, handlers.NewBalanceHandler(ms))

			resp := api.Get("/api/v1/balance/history" + tt.query)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, resp.Body.String(), tt.wantBody)
			}
		})
	}
}

package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/internal/api/handlers"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

type mockSystemStateProvider struct {
	state *domain.SystemState
	err   error
}

func (m *mockSystemStateProvider) GetSystemState(_ context.Context) (*domain.SystemState, error) {
	return m.state, m.err
}

func TestGetSystemState_Success(t *testing.T) {
	t.Parallel()

	state := &domain.SystemState{
		TasksPending:   5,
		TasksSucceeded: 40,
		TasksFailed:    2,
		TasksTimedOut:  1,
	}

	h := handlers.NewSystemStateHandler(&mockSystemStateProvider{state: state}, nil)

	_, api := humatest.New(t)
	handlers.RegisterSystemStateRoutes(api, h)

	resp := api.Get("/api/v1/system/state")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"tasks_pending":5`)
	assert.Contains(t, resp.Body.String(), `"tasks_timed_out":1`)
	assert.NotContains(t, resp.Body.String(), "exhausted_categories")
}

func TestGetSystemState_ExhaustedCategories(t *testing.T) {
	t.Parallel()

	limiters := fakeLimiterSource{
		{Category: "prices", Remaining: 0, Limit: 5},
		{Category: "content", Remaining: 4, Limit: 5},
		{Category: "analytics", Remaining: 0, Limit: 10},
	}
	h := handlers.NewSystemStateHandler(&mockSystemStateProvider{state: &domain.SystemState{}}, limiters)

	_, api := humatest.New(t)
	handlers.RegisterSystemStateRoutes(api, h)

	resp := api.Get("/api/v1/system/state")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"exhausted_categories":["analytics","prices"]`)
}

func TestGetSystemState_Error(t *testing.T) {
	t.Parallel()

	h := handlers.NewSystemStateHandler(&mockSystemStateProvider{err: errors.New("db error")}, nil)

	_, api := humatest.New(t)
	handlers.RegisterSystemStateRoutes(api, h)

	resp := api.Get("/api/v1/system/state")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

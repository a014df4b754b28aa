package handlers

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// SystemStateProvider returns aggregate task and balance counts.
type SystemStateProvider interface {
	GetSystemState(ctx context.Context) (*domain.SystemState, error)
}

// SystemStateHandler combines stored counts with the live limiter state.
type SystemStateHandler struct {
	store    SystemStateProvider
	limiters LimiterSource
}

// NewSystemStateHandler creates a SystemStateHandler. limiters may be nil.
func NewSystemStateHandler(s SystemStateProvider, limiters LimiterSource) *SystemStateHandler {
	return &SystemStateHandler{store: s, limiters: limiters}
}

// SystemStateOutput is the response for GET /api/v1/system/state.
type SystemStateOutput struct {
	Body *domain.SystemState
}

// GetSystemState returns task counts, the last balance capture and the
// categories whose limiter is empty.
func (h *SystemStateHandler) GetSystemState(ctx context.Context, _ *struct{}) (*SystemStateOutput, error) {
	state, err := h.store.GetSystemState(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get system state")
	}

	if h.limiters != nil {
		for _, snap := range h.limiters.LimiterSnapshots() {
			if snap.Remaining <= 0 {
				state.ExhaustedCategories = append(state.ExhaustedCategories, snap.Category)
			}
		}
		slices.Sort(state.ExhaustedCategories)
	}
	return &SystemStateOutput{Body: state}, nil
}

// RegisterSystemStateRoutes registers the system state route on the Huma API.
func RegisterSystemStateRoutes(api huma.API, h *SystemStateHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-system-state",
		Method:      http.MethodGet,
		Path:        "/api/v1/system/state",
		Summary:     "Get system state",
		Description: "Returns tracked task counts by outcome, the last balance capture time and exhausted rate-limit categories.",
		Tags:        []string{"system"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetSystemState)
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wb-seller-tracker/internal/engine"
)

// JobCatalog lists the jobs the scheduler knows.
type JobCatalog interface {
	JobNames() []string
}

// JobRunner runs a named job on demand.
type JobRunner interface {
	JobCatalog
	RunJob(ctx context.Context, name string) error
}

// TriggerHandler handles manual job trigger requests.
type TriggerHandler struct {
	runner JobRunner
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(r JobRunner) *TriggerHandler {
	return &TriggerHandler{runner: r}
}

// TriggerInput names the job to run.
type TriggerInput struct {
	JobName string `path:"job_name" doc:"Job name (sync_balance, poll_tasks, snapshot_limits)"`
}

// TriggerOutput is the response body for the trigger endpoint.
type TriggerOutput struct {
	Body struct {
		Job    string `json:"job"    example:"sync_balance"  doc:"Job that ran"`
		Status string `json:"status" example:"job completed" doc:"Run status"`
	}
}

// Trigger runs a scheduled job now and waits for it to finish.
func (h *TriggerHandler) Trigger(ctx context.Context, input *TriggerInput) (*TriggerOutput, error) {
	err := h.runner.RunJob(ctx, input.JobName)
	switch {
	case errors.Is(err, engine.ErrUnknownJob):
		return nil, huma.Error404NotFound("unknown job " + input.JobName)
	case errors.Is(err, engine.ErrJobLocked):
		return nil, huma.Error409Conflict(input.JobName + " is already running")
	case err != nil:
		return nil, huma.Error500InternalServerError(input.JobName + " failed: " + err.Error())
	}

	resp := &TriggerOutput{}
	resp.Body.Job = input.JobName
	resp.Body.Status = "job completed"
	return resp, nil
}

// RegisterTriggerRoutes registers the job trigger endpoint with the Huma API.
func RegisterTriggerRoutes(api huma.API, h *TriggerHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-job",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs/{job_name}/trigger",
		Summary:     "Run a scheduled job now",
		Description: "Runs the named job immediately under its scheduler lock and records the run.",
		Tags:        []string{"scheduler"},
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, h.Trigger)
}

package handlers

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// JobsProvider defines the store methods required by the jobs handler.
type JobsProvider interface {
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
}

// JobsHandler serves the run history of scheduled jobs.
type JobsHandler struct {
	store   JobsProvider
	catalog JobCatalog
}

// NewJobsHandler creates a JobsHandler. With a nil catalog any job name
// is looked up.
func NewJobsHandler(s JobsProvider, catalog JobCatalog) *JobsHandler {
	return &JobsHandler{store: s, catalog: catalog}
}

// ListJobsOutput is the latest run of every job that has run.
type ListJobsOutput struct {
	Body []domain.JobRun
}

// GetJobHistoryInput selects a job's history.
type GetJobHistoryInput struct {
	JobName string `path:"job_name" doc:"Scheduled job name (sync_balance, poll_tasks, snapshot_limits)"`
	Status  string `query:"status" enum:"running,succeeded,failed" doc:"Only runs with this status"`
	Limit   int    `query:"limit" default:"20" minimum:"1" maximum:"200" doc:"Maximum runs returned"`
}

// GetJobHistoryOutput is a job's runs, newest first.
type GetJobHistoryOutput struct {
	Body []domain.JobRun
}

// ListJobs returns the most recent run for each job.
func (h *JobsHandler) ListJobs(ctx context.Context, _ *struct{}) (*ListJobsOutput, error) {
	runs, err := h.store.ListLatestJobRuns(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing jobs failed: " + err.Error())
	}
	if runs == nil {
		runs = []domain.JobRun{}
	}
	return &ListJobsOutput{Body: runs}, nil
}

// GetJobHistory returns the runs of one job. Unknown job names are 404.
func (h *JobsHandler) GetJobHistory(ctx context.Context, input *GetJobHistoryInput) (*GetJobHistoryOutput, error) {
	if h.catalog != nil && !slices.Contains(h.catalog.JobNames(), input.JobName) {
		return nil, huma.Error404NotFound("unknown job " + input.JobName)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := h.store.ListJobRuns(ctx, input.JobName, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching job history failed: " + err.Error())
	}

	out := make([]domain.JobRun, 0, len(runs))
	for i := range runs {
		if input.Status != "" && runs[i].Status != input.Status {
			continue
		}
		out = append(out, runs[i])
	}
	return &GetJobHistoryOutput{Body: out}, nil
}

// RegisterJobRoutes registers the job history endpoints.
func RegisterJobRoutes(api huma.API, h *JobsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "List latest job runs",
		Description: "Returns the most recent run of each scheduled job that has run at least once.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListJobs)

	huma.Register(api, huma.Operation{
		OperationID: "get-job-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{job_name}",
		Summary:     "Get job history",
		Description: "Returns the runs of one scheduled job, newest first, optionally filtered by status.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetJobHistory)
}

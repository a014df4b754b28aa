package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/wb-seller-tracker/internal/engine"
	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// TaskTracker starts tracking remote tasks.
type TaskTracker interface {
	TrackTask(ctx context.Context, req engine.TrackRequest) (*domain.TrackedTask, error)
}

// TasksHandler handles tracked task endpoints.
type TasksHandler struct {
	store   store.Store
	tracker TaskTracker
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(s store.Store, t TaskTracker) *TasksHandler {
	return &TasksHandler{store: s, tracker: t}
}

// --- Input/Output types ---

// ListTasksInput is the input for listing tracked tasks with optional filters.
type ListTasksInput struct {
	Kind    string `query:"kind"     doc:"Filter by task kind"                enum:"price_upload,report,"`
	Outcome string `query:"outcome"  doc:"Filter by outcome"                  enum:"succeeded,failed,timed_out,"`
	Pending bool   `query:"pending"  doc:"Only tasks without an outcome"`
	Limit   int    `query:"limit"    doc:"Number of results (default 50)"     minimum:"1" maximum:"500"`
	Offset  int    `query:"offset"   doc:"Pagination offset"                  minimum:"0"`
	OrderBy string `query:"order_by" doc:"Sort field"                         enum:"created_at,updated_at,deadline,"`
}

// ListTasksOutput is the response for listing tracked tasks.
type ListTasksOutput struct {
	Body struct {
		Tasks  []domain.TrackedTask `json:"tasks"`
		Total  int                  `json:"total"`
		Limit  int                  `json:"limit"`
		Offset int                  `json:"offset"`
	}
}

// GetTaskInput is the input for getting a single tracked task.
type GetTaskInput struct {
	ID string `path:"id" doc:"Tracked task UUID"`
}

// GetTaskOutput is the response for getting a single tracked task.
type GetTaskOutput struct {
	Body domain.TrackedTask
}

// TrackTaskInput is the request body for tracking a remote task.
type TrackTaskInput struct {
	Body struct {
		Kind           string `json:"kind"                      doc:"Task kind"                               enum:"price_upload,report"`
		ExternalID     string `json:"external_id"               doc:"Marketplace task or upload id"           minLength:"1"`
		Family         string `json:"family,omitempty"          doc:"Report family, required for reports"     required:"false"`
		Label          string `json:"label,omitempty"           doc:"Free-form label shown in alerts"         required:"false"`
		TimeoutSeconds int    `json:"timeout_seconds,omitempty" doc:"Deadline from now; default from config" required:"false" minimum:"0"`
	}
}

// TrackTaskOutput is the response for tracking a remote task.
type TrackTaskOutput struct {
	Body domain.TrackedTask
}

// --- Handlers ---

// ListTasks returns tracked tasks with optional filters and pagination.
func (h *TasksHandler) ListTasks(
	ctx context.Context,
	input *ListTasksInput,
) (*ListTasksOutput, error) {
	q := &store.TaskQuery{
		PendingOnly: input.Pending,
		Limit:       input.Limit,
		Offset:      input.Offset,
		OrderBy:     input.OrderBy,
	}

	if input.Kind != "" {
		k := domain.TaskKind(input.Kind)
		q.Kind = &k
	}

	if input.Outcome != "" {
		o := domain.TaskOutcome(input.Outcome)
		q.Outcome = &o
	}

	tasks, total, err := h.store.ListTrackedTasks(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("task query failed: " + err.Error())
	}

	if tasks == nil {
		tasks = []domain.TrackedTask{}
	}

	resp := &ListTasksOutput{}
	resp.Body.Tasks = tasks
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// GetTask returns a single tracked task by ID.
func (h *TasksHandler) GetTask(
	ctx context.Context,
	input *GetTaskInput,
) (*GetTaskOutput, error) {
	task, err := h.store.GetTrackedTask(ctx, input.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("task not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching task failed: " + err.Error())
	}

	return &GetTaskOutput{Body: *task}, nil
}

// TrackTask starts tracking a remote task until it finishes or its
// deadline passes.
func (h *TasksHandler) TrackTask(
	ctx context.Context,
	input *TrackTaskInput,
) (*TrackTaskOutput, error) {
	task, err := h.tracker.TrackTask(ctx, engine.TrackRequest{
		Kind:       domain.TaskKind(input.Body.Kind),
		ExternalID: input.Body.ExternalID,
		Family:     input.Body.Family,
		Label:      input.Body.Label,
		Timeout:    secondsToDuration(input.Body.TimeoutSeconds),
	})
	if errors.Is(err, engine.ErrInvalidTask) {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("tracking task failed: " + err.Error())
	}

	return &TrackTaskOutput{Body: *task}, nil
}

// RegisterTaskRoutes registers tracked task endpoints with the Huma API.
func RegisterTaskRoutes(api huma.API, h *TasksHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/api/v1/tasks",
		Summary:     "List tracked tasks",
		Description: "Returns tracked tasks with optional filters for kind, outcome, and pagination.",
		Tags:        []string{"tasks"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListTasks)

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/api/v1/tasks/{id}",
		Summary:     "Get a tracked task by ID",
		Description: "Returns a single tracked task by its UUID.",
		Tags:        []string{"tasks"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetTask)

	huma.Register(api, huma.Operation{
		OperationID:   "track-task",
		Method:        http.MethodPost,
		Path:          "/api/v1/tasks",
		Summary:       "Track a remote task",
		Description:   "Stores a price upload or generated report to be polled until it finishes.",
		Tags:          []string{"tasks"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.TrackTask)
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

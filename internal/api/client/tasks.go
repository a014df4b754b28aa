package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// TasksResponse wraps a paginated tracked task response.
type TasksResponse struct {
	Tasks  []domain.TrackedTask `json:"tasks"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListTasksParams defines query parameters for task queries.
type ListTasksParams struct {
	Kind    string
	Outcome string
	Pending bool
	Limit   int
	Offset  int
	OrderBy string
}

func (p *ListTasksParams) query() url.Values {
	q := url.Values{}
	if p == nil {
		return q
	}
	if p.Kind != "" {
		q.Set("kind", p.Kind)
	}
	if p.Outcome != "" {
		q.Set("outcome", p.Outcome)
	}
	if p.Pending {
		q.Set("pending", "true")
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.OrderBy != "" {
		q.Set("order_by", p.OrderBy)
	}
	return q
}

// ListTasks returns tracked tasks matching the given parameters.
func (c *Client) ListTasks(ctx context.Context, params *ListTasksParams) (*TasksResponse, error) {
	path := "/api/v1/tasks"
	if q := params.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp TasksResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTask returns a single tracked task by ID.
func (c *Client) GetTask(ctx context.Context, id string) (*domain.TrackedTask, error) {
	var t domain.TrackedTask
	if err := c.get(ctx, "/api/v1/tasks/"+url.PathEscape(id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// TrackTaskRequest is the body of a track request.
type TrackTaskRequest struct {
	Kind           string `json:"kind"`
	ExternalID     string `json:"external_id"`
	Family         string `json:"family,omitempty"`
	Label          string `json:"label,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// TrackTask asks the server to poll a remote task until it finishes.
func (c *Client) TrackTask(ctx context.Context, req *TrackTaskRequest) (*domain.TrackedTask, error) {
	var t domain.TrackedTask
	if err := c.post(ctx, "/api/v1/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

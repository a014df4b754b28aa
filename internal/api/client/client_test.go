package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.RateLimits(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server not running")
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (HTTP 500)")
	assert.False(t, IsNotFound(err))
}

func TestClient_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"task not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetTask(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "API error (HTTP 404): task not found")
}

func TestClient_SendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithUserAgent("wbctl/test")).ListJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wbctl/test", gotUA)
}

func TestClient_ListTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		params    *ListTasksParams
		wantQuery map[string]string
	}{
		{
			name:      "no params",
			params:    nil,
			wantQuery: map[string]string{},
		},
		{
			name:   "all filters",
			params: &ListTasksParams{Kind: "report", Outcome: "failed", Pending: true, Limit: 10, Offset: 20, OrderBy: "deadline"},
			wantQuery: map[string]string{
				"kind":     "report",
				"outcome":  "failed",
				"pending":  "true",
				"limit":    "10",
				"offset":   "20",
				"order_by": "deadline",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/tasks", r.URL.Path)
				assert.Len(t, r.URL.Query(), len(tt.wantQuery))
				for k, v := range tt.wantQuery {
					assert.Equal(t, v, r.URL.Query().Get(k), k)
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(TasksResponse{
					Tasks: []domain.TrackedTask{{ID: "t1", Kind: domain.TaskReport}},
					Total: 1,
				})
			}))
			defer srv.Close()

			resp, err := New(srv.URL).ListTasks(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.Total)
			require.Len(t, resp.Tasks, 1)
			assert.Equal(t, "t1", resp.Tasks[0].ID)
		})
	}
}

func TestClient_TrackTask(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body TrackTaskRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "price_upload", body.Kind)
		assert.Equal(t, "84512", body.ExternalID)
		assert.Equal(t, 600, body.TimeoutSeconds)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.TrackedTask{
			ID:         "t-created",
			Kind:       domain.TaskKind(body.Kind),
			ExternalID: body.ExternalID,
		})
	}))
	defer srv.Close()

	task, err := New(srv.URL).TrackTask(context.Background(), &TrackTaskRequest{
		Kind:           "price_upload",
		ExternalID:     "84512",
		TimeoutSeconds: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, "t-created", task.ID)
	assert.Equal(t, domain.TaskPriceUpload, task.Kind)
}

func TestClient_GetBalance(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/balance", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"b1","currency":"RUB","current":1500.5,"for_withdraw":1200,"blocked":300.5}`))
	}))
	defer srv.Close()

	b, err := New(srv.URL).GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RUB", b.Currency)
	assert.InDelta(t, 1500.5, b.Current, 0.001)
	assert.InDelta(t, 300.5, b.Blocked, 0.001)
}

func TestClient_BalanceHistory(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/balance/history", r.URL.Path)
		assert.Equal(t, "2025-03-01T12:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]domain.BalanceSnapshot{{ID: "b1"}, {ID: "b2"}})
	}))
	defer srv.Close()

	snaps, err := New(srv.URL).BalanceHistory(context.Background(), since, 5)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestClient_RateLimits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/ratelimits":
			_ = json.NewEncoder(w).Encode([]domain.LimiterSnapshot{
				{Category: "prices", Remaining: 4, Limit: 5},
			})
		case "/api/v1/ratelimits/prices/history":
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode([]domain.LimiterSnapshot{
				{Category: "prices", Remaining: 1, Limit: 5},
				{Category: "prices", Remaining: 5, Limit: 5},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)

	live, err := c.RateLimits(context.Background())
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 4, live[0].Remaining)

	hist, err := c.RateLimitHistory(context.Background(), "prices", 3)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestClient_TriggerJob(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/jobs/poll_tasks/trigger", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TriggerResult{Job: "poll_tasks", Status: "job completed"})
	}))
	defer srv.Close()

	res, err := New(srv.URL).TriggerJob(context.Background(), "poll_tasks")
	require.NoError(t, err)
	assert.Equal(t, "poll_tasks", res.Job)
	assert.Equal(t, "job completed", res.Status)
}

func TestClient_JobHistory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/sync_balance", r.URL.Path)
		assert.Equal(t, "succeeded", r.URL.Query().Get("status"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]domain.JobRun{
			{ID: "r1", JobName: "sync_balance", Status: domain.JobStatusSucceeded},
		})
	}))
	defer srv.Close()

	runs, err := New(srv.URL).GetJobHistory(context.Background(), "sync_balance", "succeeded", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.JobStatusSucceeded, runs[0].Status)
}

func TestClient_SystemState(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/system/state", r.URL.Path)
		_, _ = w.Write([]byte(`{"tasks_pending":2,"tasks_failed":1}`))
	}))
	defer srv.Close()

	st, err := New(srv.URL).SystemState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.TasksPending)
	assert.Equal(t, 1, st.TasksFailed)
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{}
	c := New("http://example.com", WithHTTPClient(custom))
	assert.Same(t, custom, c.httpClient)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTimeout, New("http://example.com").httpClient.Timeout)

	custom := &http.Client{}
	c := New("http://example.com", WithHTTPClient(custom), WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Zero(t, custom.Timeout, "caller's client must not be mutated")
}

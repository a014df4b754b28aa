package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func TestTaskQuery_ToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		query         TaskQuery
		wantCountSQL  string
		wantArgs      []any
		wantDataHas   []string // substrings that must appear in dataSQL
		wantDataNotIn []string // substrings that must NOT appear
	}{
		{
			name:  "empty query uses defaults",
			query: TaskQuery{},
			wantDataHas: []string{
				"FROM tracked_tasks",
				"ORDER BY created_at DESC",
				"LIMIT 50",
				"OFFSET 0",
			},
			wantDataNotIn: []string{"WHERE"},
			wantCountSQL:  "SELECT COUNT(*) FROM tracked_tasks",
		},
		{
			name:         "kind filter",
			query:        TaskQuery{Kind: ptr(domain.TaskPriceUpload)},
			wantDataHas:  []string{"WHERE kind = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM tracked_tasks WHERE kind = $1",
			wantArgs:     []any{"price_upload"},
		},
		{
			name:         "outcome filter",
			query:        TaskQuery{Outcome: ptr(domain.OutcomeFailed)},
			wantDataHas:  []string{"WHERE outcome = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM tracked_tasks WHERE outcome = $1",
			wantArgs:     []any{"failed"},
		},
		{
			name:         "pending only",
			query:        TaskQuery{PendingOnly: true},
			wantDataHas:  []string{"WHERE outcome = ''"},
			wantCountSQL: "SELECT COUNT(*) FROM tracked_tasks WHERE outcome = ''",
		},
		{
			name: "filters combined with correct parameter numbering",
			query: TaskQuery{
				Kind:        ptr(domain.TaskReport),
				Outcome:     ptr(domain.OutcomeSucceeded),
				PendingOnly: true,
			},
			wantCountSQL: "SELECT COUNT(*) FROM tracked_tasks WHERE kind = $1 AND outcome = $2 AND outcome = ''",
			wantArgs:     []any{"report", "succeeded"},
		},
		{
			name:        "order by deadline",
			query:       TaskQuery{OrderBy: "deadline"},
			wantDataHas: []string{"ORDER BY deadline ASC"},
		},
		{
			name:        "order by updated_at",
			query:       TaskQuery{OrderBy: "updated_at"},
			wantDataHas: []string{"ORDER BY updated_at DESC"},
		},
		{
			name:          "invalid order by falls back to default",
			query:         TaskQuery{OrderBy: "DROP TABLE tracked_tasks; --"},
			wantDataHas:   []string{"ORDER BY created_at DESC"},
			wantDataNotIn: []string{"DROP TABLE"},
		},
		{
			name:        "custom limit and offset",
			query:       TaskQuery{Limit: 25, Offset: 100},
			wantDataHas: []string{"LIMIT 25", "OFFSET 100"},
		},
		{
			name:        "negative limit defaults to 50",
			query:       TaskQuery{Limit: -10},
			wantDataHas: []string{"LIMIT 50"},
		},
		{
			name:        "limit exceeding max is capped",
			query:       TaskQuery{Limit: 1000},
			wantDataHas: []string{"LIMIT 500"},
		},
		{
			name:        "negative offset defaults to 0",
			query:       TaskQuery{Offset: -5},
			wantDataHas: []string{"OFFSET 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := tt.query
			dataSQL, countSQL, args := q.ToSQL()

			for _, s := range tt.wantDataHas {
				assert.Contains(t, dataSQL, s, "dataSQL should contain %q", s)
			}

			for _, s := range tt.wantDataNotIn {
				assert.NotContains(t, dataSQL, s, "dataSQL should not contain %q", s)
			}

			if tt.wantCountSQL != "" {
				assert.Equal(t, tt.wantCountSQL, countSQL)
			}

			if tt.wantArgs != nil {
				require.Len(t, args, len(tt.wantArgs))
				assert.Equal(t, tt.wantArgs, args)
			} else {
				assert.Empty(t, args)
			}
		})
	}
}

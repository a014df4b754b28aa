package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	orderByCreated  = "created_at"
	orderByUpdated  = "updated_at"
	orderByDeadline = "deadline"
)

// validOrderBy maps allowed OrderBy values to their SQL column expressions.
var validOrderBy = map[string]string{
	orderByCreated:  "created_at DESC",
	orderByUpdated:  "updated_at DESC",
	orderByDeadline: "deadline ASC",
}

const defaultOrderBy = "created_at DESC"

const baseTasksSelect = `SELECT id, kind, external_id, family, label,
	status, outcome, progress, errors_count, error_text, polls, raw,
	deadline, last_polled, completed_at, created_at, updated_at
FROM tracked_tasks`

const countTasksSelect = "SELECT COUNT(*) FROM tracked_tasks"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for a task query.
// It returns two SQL strings (one for the data query, one for the count query)
// and the positional parameters.
func (q *TaskQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", paramIdx))
		args = append(args, string(*q.Kind))
		paramIdx++
	}

	if q.Outcome != nil {
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", paramIdx))
		args = append(args, string(*q.Outcome))
	}

	if q.PendingOnly {
		conditions = append(conditions, "outcome = ''")
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	orderClause := defaultOrderBy
	if q.OrderBy != "" {
		if col, ok := validOrderBy[q.OrderBy]; ok {
			orderClause = col
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseTasksSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countTasksSelect + whereClause

	return dataSQL, countSQL, args
}

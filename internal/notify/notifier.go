// Package notify defines the notification interface and implementations
// for alert delivery.
package notify

import (
	"context"
	"time"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// TaskAlert describes a tracked task that failed or timed out.
type TaskAlert struct {
	TaskID     string
	Kind       domain.TaskKind
	ExternalID string
	Label      string
	Status     string
	Outcome    domain.TaskOutcome
	Errors     int
	ErrorText  string
}

// BalanceAlert describes a balance that fell below the configured threshold.
type BalanceAlert struct {
	Current     float64
	ForWithdraw float64
	Threshold   float64
	Currency    string
	CapturedAt  time.Time
}

// Notifier defines the interface for sending alert notifications.
type Notifier interface {
	SendTaskAlert(ctx context.Context, alert *TaskAlert) error
	SendTaskAlerts(ctx context.Context, alerts []TaskAlert) error
	SendBalanceAlert(ctx context.Context, alert *BalanceAlert) error
}

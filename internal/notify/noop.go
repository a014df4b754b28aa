package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded alerts. It is used
// when Discord (or another notification backend) is not configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards alerts with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendTaskAlert logs and discards a single task alert.
func (n *NoOpNotifier) SendTaskAlert(_ context.Context, alert *TaskAlert) error {
	n.log.Debug("notification discarded (no backend configured)",
		"task", alert.TaskID,
		"kind", alert.Kind,
		"outcome", alert.Outcome,
	)
	return nil
}

// SendTaskAlerts logs and discards a batch of task alerts.
func (n *NoOpNotifier) SendTaskAlerts(_ context.Context, alerts []TaskAlert) error {
	n.log.Debug("batch notification discarded (no backend configured)",
		"count", len(alerts),
	)
	return nil
}

// SendBalanceAlert logs and discards a low balance alert.
func (n *NoOpNotifier) SendBalanceAlert(_ context.Context, alert *BalanceAlert) error {
	n.log.Debug("notification discarded (no backend configured)",
		"balance", alert.Current,
		"threshold", alert.Threshold,
	)
	return nil
}

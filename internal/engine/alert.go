package engine

import (
	"context"

	"github.com/donaldgifford/wb-seller-tracker/internal/metrics"
	"github.com/donaldgifford/wb-seller-tracker/internal/notify"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// batchThreshold is the number of alerts from one run that are sent as a
// single batch message instead of one message each.
const batchThreshold = 3

func taskAlert(t *domain.TrackedTask) notify.TaskAlert {
	return notify.TaskAlert{
		TaskID:     t.ID,
		Kind:       t.Kind,
		ExternalID: t.ExternalID,
		Label:      t.Label,
		Status:     t.Status,
		Outcome:    t.Outcome,
		Errors:     t.ErrorsCount,
		ErrorText:  t.ErrorText,
	}
}

// sendTaskAlerts notifies about tasks that failed or timed out. Failures
// are logged and counted, never returned: the task state is already stored.
func (eng *Engine) sendTaskAlerts(ctx context.Context, alerts []notify.TaskAlert) {
	if len(alerts) >= batchThreshold {
		if err := eng.notifier.SendTaskAlerts(ctx, alerts); err != nil {
			metrics.NotificationFailuresTotal.Inc()
			eng.log.Error("sending task alert batch failed", "count", len(alerts), "error", err)
			return
		}
		for i := range alerts {
			metrics.AlertsFiredTotal.WithLabelValues(string(alerts[i].Outcome)).Inc()
		}
		return
	}

	for i := range alerts {
		if err := eng.notifier.SendTaskAlert(ctx, &alerts[i]); err != nil {
			metrics.NotificationFailuresTotal.Inc()
			eng.log.Error("sending task alert failed", "task", alerts[i].TaskID, "error", err)
			continue
		}
		metrics.AlertsFiredTotal.WithLabelValues(string(alerts[i].Outcome)).Inc()
	}
}

// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/wb-seller-tracker/tools/dashgen/panels"
)

// OverviewUID is the stable uid of the overview dashboard.
const OverviewUID = "wbst-overview"

// BuildOverview constructs the WBST Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("WBST Overview").
		Uid(OverviewUID).
		Tags([]string{"wbst", "wb-seller-tracker"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	// Row 1: Overview.
	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.TokenExpiry()).
		WithPanel(panels.UptimeStat()))

	// Row 2: HTTP.
	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	// Row 3: Marketplace API.
	b.WithRow(dashboard.NewRowBuilder("Marketplace API").
		WithPanel(panels.WBRequestRate()).
		WithPanel(panels.WBErrors()).
		WithPanel(panels.WBLatency()))

	// Row 4: Rate limiter.
	b.WithRow(dashboard.NewRowBuilder("Rate Limiter").
		WithPanel(panels.LimiterRemaining()).
		WithPanel(panels.LimiterWait()).
		WithPanel(panels.RateLimited()))

	// Row 5: Tasks.
	b.WithRow(dashboard.NewRowBuilder("Tasks").
		WithPanel(panels.TasksPending()).
		WithPanel(panels.TaskOutcomes()).
		WithPanel(panels.TaskPollErrors()))

	// Row 6: Balance.
	b.WithRow(dashboard.NewRowBuilder("Balance").
		WithPanel(panels.Balance()).
		WithPanel(panels.BlockedBalance()))

	// Row 7: Scheduler.
	b.WithRow(dashboard.NewRowBuilder("Scheduler").
		WithPanel(panels.JobRuns()).
		WithPanel(panels.JobDuration()).
		WithPanel(panels.NextRun()))

	// Row 8: Alerts.
	b.WithRow(dashboard.NewRowBuilder("Alerts").
		WithPanel(panels.AlertsRate()).
		WithPanel(panels.LastNotification()).
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}

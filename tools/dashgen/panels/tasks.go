package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// TasksPending returns a stat panel showing tracked tasks still being polled.
func TasksPending() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Pending Tasks").
		Description("Tracked uploads and reports not yet in a terminal state").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`max(`+Sel("wbst_tasks_pending")+`)`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(20, 100)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// TaskOutcomes returns a timeseries panel showing finished tasks per hour
// by kind and outcome.
func TaskOutcomes() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Task Outcomes / h").
		Description("Tracked tasks reaching a terminal state per hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(`+Sel("wbst_tasks_finished_total")+`[1h])) by (kind, outcome)`,
			"{{kind}} {{outcome}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("sum")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// TaskPollErrors returns a timeseries panel showing poll errors per minute.
func TaskPollErrors() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Poll Errors / min").
		Description("Errors while reading the status of tracked tasks").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`wbst:task_poll_errors:rate5m * 60`, "errors/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// Balance returns a timeseries panel showing the current and withdrawable
// seller balance.
func Balance() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Balance").
		Description("Seller balance at each sync").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`max(`+Sel("wbst_balance_current")+`)`, "current", "A")).
		WithTarget(PromQuery(`max(`+Sel("wbst_balance_for_withdraw")+`)`, "for withdraw", "B")).
		Unit("currencyRUB").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("last", "min", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// BlockedBalance returns a stat panel showing the part of the balance that
// cannot be withdrawn yet as a percentage.
func BlockedBalance() *stat.PanelBuilder {
	cur := `max(` + Sel("wbst_balance_current") + `)`
	return stat.NewPanelBuilder().
		Title("Blocked %").
		Description("Share of the balance not yet available for withdrawal").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`(`+cur+` - max(`+Sel("wbst_balance_for_withdraw")+`)) / `+cur+` * 100`,
			"", "A",
		)).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(50, 80)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

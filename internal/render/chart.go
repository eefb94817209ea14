package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// AssetsHost is where generated pages load the echarts script from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ResidualChart plots |err| of applied points in arrival order.
func ResidualChart(title string, residuals []float64) *charts.Line {
	x := make([]int, len(residuals))
	data := make([]opts.LineData, len(residuals))
	for i, r := range residuals {
		x[i] = i
		data[i] = opts.LineData{Value: r}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d", len(residuals))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "applied point", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "|err|", NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	line.SetXAxis(x).
		AddSeries("residual", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}

// OutcomeChart is a bar chart of match outcome counts, labels sorted.
func OutcomeChart(title string, counts map[string]int) *charts.Bar {
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	data := make([]opts.BarData, len(labels))
	for i, k := range labels {
		data[i] = opts.BarData{Value: counts[k]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("outcomes", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// WriteDashboard renders the residual and outcome charts as one HTML page.
func WriteDashboard(w io.Writer, residuals []float64, counts map[string]int) error {
	page := components.NewPage()
	page.PageTitle = "Template tracker"
	page.AssetsHost = AssetsHost
	page.AddCharts(
		ResidualChart("Residual convergence", residuals),
		OutcomeChart("Match outcomes", counts),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

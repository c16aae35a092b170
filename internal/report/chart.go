package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/maemowong/bpsim/internal/sim"
)

// Chart renders an HTML page with a bar chart of misprediction rates, one bar
// per result.
func Chart(w io.Writer, title string, results []sim.Result) error {
	names := make([]string, 0, len(results))
	rates := make([]opts.BarData, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
		rates = append(rates, opts.BarData{
			Name:  r.Name,
			Value: 100 * r.MispredictionRate(),
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "misprediction rate (%)",
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
	)
	bar.SetXAxis(names).AddSeries("mispredictions", rates)

	return bar.Render(w)
}

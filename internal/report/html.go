package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridis is the colour ramp used for the confusion heatmap.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RunSummary carries the numbers shown in the HTML report.
type RunSummary struct {
	RunID       string
	RasterPath  string
	Rows        int
	Cols        int
	Bands       int
	Accuracy    float64
	ClassShares map[int]float64 // label -> fraction of classified pixels
}

// RenderHTML renders a self-contained report page: confusion-matrix heatmap
// plus a class pixel-share bar chart.
func RenderHTML(summary RunSummary, conf *Confusion, names map[int]string) ([]byte, error) {
	page := components.NewPage()
	page.PageTitle = "Land cover classification report"

	if conf != nil {
		page.AddCharts(confusionHeatmap(conf, names))
	}
	page.AddCharts(classShareBar(summary, names))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render report page: %w", err)
	}
	return buf.Bytes(), nil
}

func confusionHeatmap(conf *Confusion, names map[int]string) *charts.HeatMap {
	axis := make([]string, len(conf.Labels))
	for i, l := range conf.Labels {
		axis[i] = labelName(l, names)
	}

	data := make([]opts.HeatMapData, 0, len(conf.Labels)*len(conf.Labels))
	maxCount := 0
	for ti, row := range conf.Counts {
		for pi, v := range row {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{pi, ti, v}})
			if v > maxCount {
				maxCount = v
			}
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "640px", Height: "540px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Confusion matrix",
			Subtitle: fmt.Sprintf("hold-out samples=%d accuracy=%.4f", conf.Total(), conf.Accuracy()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: axis, Name: "predicted"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: axis, Name: "true"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(axis).AddSeries("confusion", data)
	return hm
}

func classShareBar(summary RunSummary, names map[int]string) *charts.Bar {
	labels := sortedKeys(summary.ClassShares)
	axis := make([]string, len(labels))
	values := make([]opts.BarData, len(labels))
	for i, l := range labels {
		axis[i] = labelName(l, names)
		values[i] = opts.BarData{Value: summary.ClassShares[l]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "640px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Class pixel shares",
			Subtitle: fmt.Sprintf("raster %s (%dx%d, %d bands)", summary.RasterPath, summary.Rows, summary.Cols, summary.Bands),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(axis).AddSeries("share", values,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

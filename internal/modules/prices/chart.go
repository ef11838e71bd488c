package prices

import (
	"errors"
	"fmt"
	"strings"

	charts "github.com/vicanso/go-charts/v2"
)

// ErrNoChartData is returned when a chart is requested for an empty matrix.
var ErrNoChartData = errors.New("no price data to chart")

// ChartOptions controls RenderChart.
type ChartOptions struct {
	// Indexed rebases every series to 100 at the first row so assets with
	// very different price levels share one axis.
	Indexed bool
	Title   string
	Width   int
	Height  int
}

// RenderChart draws one line per asset and returns PNG bytes.
func RenderChart(m *PriceMatrix, opts ChartOptions) ([]byte, error) {
	if m.IsEmpty() {
		return nil, ErrNoChartData
	}

	values := make([][]float64, 0, m.Cols())
	for j := range m.Assets {
		col := m.columnAt(j)
		if opts.Indexed {
			col = rebase(col, 100)
		}
		values = append(values, col)
	}
	names := append([]string(nil), m.Assets...)

	layout := "2006-01-02"
	if span := m.Timestamps[len(m.Timestamps)-1].Sub(m.Timestamps[0]); span.Hours() < 72 {
		layout = "01-02 15:04"
	}
	xLabels := make([]string, len(m.Timestamps))
	for i, ts := range m.Timestamps {
		xLabels[i] = ts.Format(layout)
	}

	title := opts.Title
	if title == "" {
		title = "Prices"
	}
	subtitle := strings.Join(names, ", ")
	if opts.Indexed {
		subtitle += " • base 100"
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 900
	}
	if height <= 0 {
		height = 500
	}

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisDataOptionFunc(xLabels, charts.FalseFlag()),
		charts.LegendLabelsOptionFunc(names, charts.PositionRight),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render price chart: %w", err)
	}
	return painter.Bytes()
}

// rebase scales s so its first value equals base. A non-positive first
// value leaves the series unchanged.
func rebase(s []float64, base float64) []float64 {
	out := make([]float64, len(s))
	if len(s) == 0 || s[0] <= 0 {
		copy(out, s)
		return out
	}
	for i, v := range s {
		out[i] = v / s[0] * base
	}
	return out
}

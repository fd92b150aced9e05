package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"familybudget/internal/budget"
)

const (
	width    = 1000
	height   = 600
	barWidth = 60
)

// MonthlyBarChart renders spent per category for the month as a PNG. Categories
// with no spend are left out; when nothing was spent it returns nil and no error.
func MonthlyBarChart(st budget.MonthStatistics, title string) ([]byte, error) {
	var bars []chart.Value
	top := 0.0
	for _, u := range st.Usage {
		if !u.Spent.IsPositive() {
			continue
		}
		v := u.Spent.InexactFloat64()
		if v > top {
			top = v
		}
		bars = append(bars, chart.Value{
			Label: u.Category.String(),
			Value: v,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorBlue.WithAlpha(180),
			},
		})
	}
	if len(bars) == 0 {
		return nil, nil
	}

	graph := chart.BarChart{
		Title: title,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    width,
		Height:   height,
		BarWidth: barWidth,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   30,
				Right:  30,
				Bottom: 30,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render monthly chart: %w", err)
	}
	return buffer.Bytes(), nil
}

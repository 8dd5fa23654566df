// Package charts renders the dashboard charts as PNG images.
package charts

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"saralfin/internal/analytics"
	"saralfin/internal/core"
)

// ErrNoData means there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

const (
	width  = 800
	height = 400
)

var (
	primary    = drawing.ColorFromHex("FF7F2A")
	background = drawing.ColorFromHex("FFF8F0")

	palette = []drawing.Color{
		drawing.ColorFromHex("FF7F2A"),
		drawing.ColorFromHex("FFB74D"),
		drawing.ColorFromHex("FFD54F"),
		drawing.ColorFromHex("4CAF50"),
		drawing.ColorFromHex("2196F3"),
		drawing.ColorFromHex("9C27B0"),
		drawing.ColorFromHex("F44336"),
		drawing.ColorFromHex("795548"),
	}
)

// DailyBar draws one bar per day of series.
func DailyBar(w io.Writer, series []analytics.DailyTotal) error {
	if len(series) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(series))
	maxValue := 0.0
	for _, d := range series {
		v := d.Total.InexactFloat64()
		if v > maxValue {
			maxValue = v
		}
		bars = append(bars, chart.Value{
			Label: d.Label,
			Value: v,
			Style: chart.Style{FillColor: primary, StrokeColor: primary},
		})
	}
	if maxValue == 0 {
		// an all-zero week still needs a drawable range
		maxValue = 1
	}

	barChart := chart.BarChart{
		Title: "Daily Expenses (Last 7 Days)",
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:      width,
		Height:     height,
		BarWidth:   60,
		BarSpacing: 30,
		Bars:       bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue},
			ValueFormatter: func(v interface{}) string {
				if vf, isFloat := v.(float64); isFloat {
					return fmt.Sprintf("₹%.0f", vf)
				}
				return ""
			},
		},
	}

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render daily chart: %w", err)
	}
	return nil
}

// CategoryPie draws the expense breakdown, one slice per category.
func CategoryPie(w io.Writer, breakdown []analytics.CategoryTotal) error {
	values := make([]chart.Value, 0, len(breakdown))
	for i, c := range breakdown {
		if !c.Total.IsPositive() {
			continue
		}
		color := palette[i%len(palette)]
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s", c.Category, core.FormatINR(c.Total)),
			Value: c.Total.InexactFloat64(),
			Style: chart.Style{FillColor: color, StrokeColor: background, StrokeWidth: 2},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pie := chart.PieChart{
		Title:      "Expense Breakdown",
		Width:      height,
		Height:     height,
		Background: chart.Style{FillColor: background},
		Values:     values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render category chart: %w", err)
	}
	return nil
}

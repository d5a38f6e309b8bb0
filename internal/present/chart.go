package present

import (
	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// DefaultYearColor is used for years outside the palette.
const DefaultYearColor = "#333333"

var yearColors = map[string]string{
	"H27": "#8c564b",
	"H28": "#e377c2",
	"H29": "#7f7f7f",
	"H30": "#bcbd22",
	"R1":  "#17becf",
	"R2":  "#9467bd",
	"R3":  "#d62728",
	"R4":  "#1f77b4",
	"R5":  "#2ca02c",
	"R6":  "#ff7f0e",
}

// YearColor returns the line color for a fiscal year.
func YearColor(year string) string {
	if c, ok := yearColors[year]; ok {
		return c
	}
	return DefaultYearColor
}

// Series is one year's line in the monthly trend chart.
type Series struct {
	Year   string    `json:"year"`
	Color  string    `json:"color"`
	Values []float64 `json:"values"`
}

// Chart is a renderer-agnostic monthly trend chart.
type Chart struct {
	Title  string   `json:"title"`
	XAxis  []string `json:"x_axis"`
	YLabel string   `json:"y_label"`
	Series []Series `json:"series"`
}

// ChartTitle is the chart heading for a target name.
func ChartTitle(name string) string {
	return name + " - 月次推移"
}

// BuildChart converts comparison rows into chart series, one per year.
func BuildChart(name string, rows []aggregate.Row) Chart {
	c := Chart{
		Title:  ChartTitle(name),
		XAxis:  statement.Months[:],
		YLabel: "金額（円）",
		Series: make([]Series, 0, len(rows)),
	}
	for _, r := range rows {
		values := make([]float64, len(r.Monthly))
		for i, v := range r.Monthly {
			values[i] = v.InexactFloat64()
		}
		c.Series = append(c.Series, Series{Year: r.Year, Color: YearColor(r.Year), Values: values})
	}
	return c
}

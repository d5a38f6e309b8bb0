package present

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dvloznov/statement-trends/internal/aggregate"
)

var (
	headStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#a6e3a1"))
	bodyStyle = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	upStyle   = bodyStyle.Foreground(lipgloss.Color("#00B050"))
	downStyle = bodyStyle.Foreground(lipgloss.Color("#FF0000"))
)

// RenderTable draws the comparison for a terminal. The year column uses
// the chart palette.
func RenderTable(rows []aggregate.Row) string {
	formatted := FormatTable(rows)
	yoyCol := len(Headers()) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(Headers()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			if row < 0 || row >= len(rows) {
				return bodyStyle
			}
			switch col {
			case 0:
				return bodyStyle.Foreground(lipgloss.Color(YearColor(rows[row].Year))).Bold(true)
			case yoyCol:
				if y := rows[row].YoY; y != nil && *y > 0 {
					return upStyle
				} else if y != nil && *y < 0 {
					return downStyle
				}
			}
			return bodyStyle
		})

	for _, r := range formatted {
		t.Row(r.Cells()...)
	}
	return t.Render()
}

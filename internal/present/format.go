package present

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/shopspring/decimal"
)

// Column headers shared by every tabular rendering.
const (
	HeaderYear  = "年度"
	HeaderTotal = "年間合計"
	HeaderYoY   = "前年比"
)

// Headers returns the comparison table header row.
func Headers() []string {
	h := make([]string, 0, 15)
	h = append(h, HeaderYear)
	h = append(h, statement.Months[:]...)
	return append(h, HeaderTotal, HeaderYoY)
}

// FormatCurrency truncates v toward zero and inserts thousands separators.
func FormatCurrency(v decimal.Decimal) string {
	s := v.Truncate(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercentage renders a YoY value with one decimal and an explicit
// plus sign for increases; nil renders as "-".
func FormatPercentage(v *float64) string {
	if v == nil {
		return "-"
	}
	sign := ""
	if *v > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, *v)
}

// TableRow is a comparison row rendered for display.
type TableRow struct {
	Year    string     `json:"year"`
	Monthly [12]string `json:"monthly"`
	Total   string     `json:"total"`
	YoY     string     `json:"yoy"`
}

// Cells flattens the row in header order.
func (r TableRow) Cells() []string {
	out := make([]string, 0, 15)
	out = append(out, r.Year)
	out = append(out, r.Monthly[:]...)
	return append(out, r.Total, r.YoY)
}

// FormatTable renders comparison rows as display strings.
func FormatTable(rows []aggregate.Row) []TableRow {
	out := make([]TableRow, 0, len(rows))
	for _, r := range rows {
		tr := TableRow{
			Year:  r.Year,
			Total: FormatCurrency(r.Total),
			YoY:   FormatPercentage(r.YoY),
		}
		for i, v := range r.Monthly {
			tr.Monthly[i] = FormatCurrency(v)
		}
		out = append(out, tr)
	}
	return out
}

// DownloadFilename builds "{name}_月次推移.{ext}" with path separators replaced.
func DownloadFilename(name string, format Format) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return safe + "_月次推移." + format.Extension()
}

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv", "xlsx" and the alias "excel".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format: %q", s)
	}
}

// Extension is the filename extension without the dot.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return "xlsx"
	}
	return "csv"
}

// ContentType is the MIME type served for downloads.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

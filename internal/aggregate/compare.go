package aggregate

import (
	"errors"
	"fmt"

	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/shopspring/decimal"
)

// ErrMasterRequired is returned for category targets when no master is loaded.
var ErrMasterRequired = errors.New("account master required for category targets")

var hundred = decimal.NewFromInt(100)

// Row is one year of a comparison.
type Row struct {
	Year    string              `json:"year"`
	Monthly [12]decimal.Decimal `json:"monthly"`
	Total   decimal.Decimal     `json:"total"`
	// YoY is the percentage change against the previous row, nil when there
	// is no previous row or its total is zero.
	YoY *float64 `json:"yoy"`
}

// Compare builds the per-year comparison of target over years, one row per
// list entry in the order given. Years without matching rows are omitted
// and YoY is computed against the previous emitted row. A year listed twice
// is emitted twice.
func Compare(table *statement.Table, m *master.Master, target Target, years []string) ([]Row, error) {
	match, err := matcher(m, target)
	if err != nil {
		return nil, err
	}

	type acc struct {
		monthly [12]decimal.Decimal
		total   decimal.Decimal
	}
	sums := make(map[string]*acc, len(years))
	for _, y := range years {
		sums[y] = nil
	}

	if table != nil {
		for _, r := range table.Rows {
			if _, ok := sums[r.Year]; !ok || !match(r.Code) {
				continue
			}
			a := sums[r.Year]
			if a == nil {
				a = &acc{total: decimal.Zero}
				for j := range a.monthly {
					a.monthly[j] = decimal.Zero
				}
				sums[r.Year] = a
			}
			for j, v := range r.Monthly {
				a.monthly[j] = a.monthly[j].Add(v)
			}
			a.total = a.total.Add(r.Total)
		}
	}

	var out []Row
	for _, y := range years {
		a := sums[y]
		if a == nil {
			continue
		}
		row := Row{Year: y, Monthly: a.monthly, Total: a.total}
		if len(out) > 0 {
			row.YoY = YoY(a.total, out[len(out)-1].Total)
		}
		out = append(out, row)
	}
	return out, nil
}

// YoY returns (cur-prev)/prev*100, or nil when prev is zero.
func YoY(cur, prev decimal.Decimal) *float64 {
	if prev.IsZero() {
		return nil
	}
	v := cur.Sub(prev).Div(prev).Mul(hundred).InexactFloat64()
	return &v
}

func matcher(m *master.Master, target Target) (func(int) bool, error) {
	switch target.Kind {
	case TargetAccount:
		code := target.Code
		return func(c int) bool { return c == code }, nil
	case TargetCategory, TargetSubcategory:
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrMasterRequired, target)
		}
		var codes map[int]bool
		if target.Kind == TargetCategory {
			codes = m.CodesInCategory(target.Name)
		} else {
			codes = m.CodesInSubcategory(target.Name)
		}
		return func(c int) bool { return codes[c] }, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, target.Kind)
	}
}

// Summary is the statistics block shown under a comparison.
type Summary struct {
	LatestYear  string           `json:"latest_year,omitempty"`
	LatestTotal *decimal.Decimal `json:"latest_total,omitempty"`
	PrevYear    string           `json:"prev_year,omitempty"`
	PrevTotal   *decimal.Decimal `json:"prev_total,omitempty"`
	LatestYoY   *float64         `json:"latest_yoy,omitempty"`
}

// Summarize reports the last and second-to-last requested years. A year
// with no comparison row leaves its fields empty.
func Summarize(rows []Row, years []string) Summary {
	byYear := make(map[string]Row, len(rows))
	for _, r := range rows {
		byYear[r.Year] = r
	}

	var s Summary
	if len(years) == 0 {
		return s
	}

	s.LatestYear = years[len(years)-1]
	if r, ok := byYear[s.LatestYear]; ok {
		total := r.Total
		s.LatestTotal = &total
		if len(years) >= 2 {
			s.LatestYoY = r.YoY
		}
	}
	if len(years) >= 2 {
		s.PrevYear = years[len(years)-2]
		if r, ok := byYear[s.PrevYear]; ok {
			total := r.Total
			s.PrevTotal = &total
		}
	}
	return s
}

package aggregate

import (
	"fmt"

	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// SummaryCategories are offered as combined options when a master is loaded.
var SummaryCategories = []string{"収益", "費用"}

// Option is one selectable comparison target.
type Option struct {
	Target    Target `json:"target"`
	Value     string `json:"value"`
	Name      string `json:"name"`
	Code      int    `json:"code,omitempty"`
	Category  string `json:"category,omitempty"`
	Display   string `json:"display"`
	IsSummary bool   `json:"is_summary"`
}

// Options lists the targets a user can pick. With a master, the category
// totals come first followed by every master entry; without one, the
// distinct accounts of the table are offered.
func Options(m *master.Master, table *statement.Table) []Option {
	if m == nil {
		accounts := master.FlatAccounts(table)
		out := make([]Option, 0, len(accounts))
		for _, a := range accounts {
			t := SingleAccount(a.Code)
			out = append(out, Option{
				Target:  t,
				Value:   t.String(),
				Name:    a.Name,
				Code:    a.Code,
				Display: fmt.Sprintf("%s (%d)", a.Name, a.Code),
			})
		}
		return out
	}

	entries := m.Entries()
	out := make([]Option, 0, len(SummaryCategories)+len(entries))
	for _, c := range SummaryCategories {
		t := CategoryFilter(c)
		out = append(out, Option{
			Target:    t,
			Value:     t.String(),
			Name:      t.SummaryLabel(),
			Category:  c,
			Display:   t.SummaryLabel(),
			IsSummary: true,
		})
	}
	for _, e := range entries {
		t := SingleAccount(e.Code)
		out = append(out, Option{
			Target:   t,
			Value:    t.String(),
			Name:     e.Name,
			Code:     e.Code,
			Category: e.Category,
			Display:  fmt.Sprintf("%s (%d) - %s", e.Name, e.Code, e.Category),
		})
	}
	return out
}

// TargetName is the display name of target: the summary label for combined
// targets, otherwise the master name, falling back to the latest name in
// the table and finally the bare code.
func TargetName(m *master.Master, table *statement.Table, target Target) string {
	if target.IsSummary() {
		return target.SummaryLabel()
	}
	if m != nil {
		if e, ok := m.Lookup(target.Code); ok && e.Name != "" {
			return e.Name
		}
	}
	if table != nil {
		for i := len(table.Rows) - 1; i >= 0; i-- {
			if table.Rows[i].Code == target.Code {
				return table.Rows[i].Name
			}
		}
	}
	return fmt.Sprintf("%d", target.Code)
}

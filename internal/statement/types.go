package statement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/statement-trends/internal/fiscal"
	"github.com/shopspring/decimal"
)

// Kind identifies a statement type.
type Kind string

const (
	// KindPL is the monthly profit and loss statement.
	KindPL Kind = "pl"
	// KindBS is the monthly balance sheet.
	KindBS Kind = "bs"
)

// ParseKind parses "pl" or "bs" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPL:
		return KindPL, nil
	case KindBS:
		return KindBS, nil
	default:
		return "", fmt.Errorf("unknown statement kind: %q", s)
	}
}

// FileSuffix is the filename suffix following the year label.
func (k Kind) FileSuffix() string {
	if k == KindBS {
		return "_monthly_bs.csv"
	}
	return "_monthly.csv"
}

// Filename returns the extract filename for a year.
func (k Kind) Filename(year string) string {
	return year + k.FileSuffix()
}

// CodeColumn is the source column holding the account code.
// The balance sheet export uses a different header from the P/L export.
func (k Kind) CodeColumn() string {
	if k == KindBS {
		return "コード"
	}
	return "科目コード"
}

// Label is the human readable statement name.
func (k Kind) Label() string {
	if k == KindBS {
		return "貸借対照表"
	}
	return "損益計算書"
}

// NameColumn is the account name column shared by both exports.
const NameColumn = "科目名称"

// BalanceMarker is contained in every balance sheet month column header.
const BalanceMarker = "当月残高"

// Months is the fiscal month sequence, April through March.
var Months = [12]string{"4月", "5月", "6月", "7月", "8月", "9月", "10月", "11月", "12月", "1月", "2月", "3月"}

// Row is one normalized account line for one fiscal year.
type Row struct {
	Year    string
	Code    int
	Name    string
	Monthly [12]decimal.Decimal
	Total   decimal.Decimal
}

// NewRow builds a row and computes its total from the monthly values.
func NewRow(year string, code int, name string, monthly [12]decimal.Decimal) Row {
	return Row{
		Year:    year,
		Code:    code,
		Name:    name,
		Monthly: monthly,
		Total:   SumMonths(monthly),
	}
}

// SumMonths adds the twelve monthly values.
func SumMonths(monthly [12]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range monthly {
		total = total.Add(v)
	}
	return total
}

// Table is the normalized multi-year table for one statement kind.
// Rows are ordered by fiscal year, then account code.
type Table struct {
	Kind Kind
	Rows []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Years returns the distinct years present, in fiscal order.
func (t *Table) Years() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var years []string
	for _, r := range t.Rows {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	return fiscal.Sort(years)
}

// ForYear returns the rows of a single year.
func (t *Table) ForYear(year string) []Row {
	if t == nil {
		return nil
	}
	var rows []Row
	for _, r := range t.Rows {
		if r.Year == year {
			rows = append(rows, r)
		}
	}
	return rows
}

// Account is a (code, name) pair.
type Account struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Accounts returns the distinct (code, name) pairs, ordered by code.
// A code renamed between years appears once per name.
func (t *Table) Accounts() []Account {
	if t == nil {
		return nil
	}
	seen := make(map[Account]bool)
	var out []Account
	for _, r := range t.Rows {
		a := Account{Code: r.Code, Name: r.Name}
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// sortRows orders rows by fiscal year then account code.
func sortRows(rows []Row) {
	labels := make([]string, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Year)
	}
	order := fiscal.Index(labels)

	sort.SliceStable(rows, func(i, j int) bool {
		oi, oj := order[rows[i].Year], order[rows[j].Year]
		if oi != oj {
			return oi < oj
		}
		return rows[i].Code < rows[j].Code
	})
}

// Warning records a yearly file that was skipped during loading.
type Warning struct {
	Year    string   `json:"year"`
	File    string   `json:"file"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

func (w Warning) String() string {
	if len(w.Missing) > 0 {
		return fmt.Sprintf("%s: %s: %s", w.Year, w.Message, strings.Join(w.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", w.Year, w.Message)
}

// LoadResult is the outcome of loading every yearly file of one kind.
type LoadResult struct {
	Table    *Table
	Years    []string
	Warnings []Warning
}

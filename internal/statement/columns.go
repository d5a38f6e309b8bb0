package statement

import (
	"fmt"
	"strings"
)

// Columns maps canonical columns to source header positions.
type Columns struct {
	Code   int
	Name   int
	Months [12]int
}

// normalizeHeader trims whitespace and a leading BOM from a header cell.
func normalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = normalizeHeader(h)
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// ResolveColumns locates the canonical columns for kind in a header row.
func ResolveColumns(kind Kind, header []string) (Columns, error) {
	if kind == KindBS {
		return resolveBalanceSheet(header)
	}
	return resolveProfitLoss(header)
}

// resolveProfitLoss requires exact code, name and month headers.
func resolveProfitLoss(header []string) (Columns, error) {
	idx := headerIndex(header)

	var cols Columns
	var missing []string

	lookup := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	cols.Code = lookup(KindPL.CodeColumn())
	cols.Name = lookup(NameColumn)
	for m, month := range Months {
		cols.Months[m] = lookup(month)
	}

	if len(missing) > 0 {
		return Columns{}, &MissingColumnsError{Missing: missing}
	}
	return cols, nil
}

// resolveBalanceSheet requires the base columns by name and discovers the
// month balance columns by substring.
func resolveBalanceSheet(header []string) (Columns, error) {
	idx := headerIndex(header)

	var missing []string
	code, ok := idx[KindBS.CodeColumn()]
	if !ok {
		missing = append(missing, KindBS.CodeColumn())
	}
	name, ok := idx[NameColumn]
	if !ok {
		missing = append(missing, NameColumn)
	}
	if len(missing) > 0 {
		return Columns{}, &MissingColumnsError{Missing: missing}
	}

	months, err := ResolveBalanceColumns(header)
	if err != nil {
		return Columns{}, err
	}

	return Columns{Code: code, Name: name, Months: months}, nil
}

// ResolveBalanceColumns finds, for every fiscal month, the first header that
// contains both the month token and BalanceMarker, e.g. "4月(当月残高)".
func ResolveBalanceColumns(header []string) ([12]int, error) {
	var out [12]int
	var missing []string

	for m, month := range Months {
		out[m] = -1
		for i, h := range header {
			h = normalizeHeader(h)
			if strings.Contains(h, BalanceMarker) && containsMonthToken(h, month) {
				out[m] = i
				break
			}
		}
		if out[m] < 0 {
			missing = append(missing, month+BalanceMarker)
		}
	}

	if len(missing) > 0 {
		return out, &MissingColumnsError{
			Missing: missing,
			Detail:  fmt.Sprintf("monthly balance columns %d/12", 12-len(missing)),
		}
	}
	return out, nil
}

// containsMonthToken reports whether month occurs in h without a digit
// directly before it, so "1月" does not match "11月".
func containsMonthToken(h, month string) bool {
	for start := 0; start < len(h); {
		i := strings.Index(h[start:], month)
		if i < 0 {
			return false
		}
		pos := start + i
		if pos == 0 || !isASCIIDigit(h[pos-1]) {
			return true
		}
		start = pos + len(month)
	}
	return false
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// MissingColumnsError lists the headers a file lacks.
type MissingColumnsError struct {
	Missing []string
	Detail  string
}

func (e *MissingColumnsError) Error() string {
	msg := fmt.Sprintf("missing columns: %s", strings.Join(e.Missing, ", "))
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap lets errors.Is match ErrMissingColumns.
func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingColumns
}

package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseOptions controls how a yearly extract is parsed.
type ParseOptions struct {
	Kind       Kind
	Year       string
	CodeRanges CodeRanges
}

// Parse reads one Shift-JIS encoded yearly extract.
func Parse(r io.Reader, opts ParseOptions) ([]Row, error) {
	return parseRecords(csv.NewReader(NewShiftJISReader(r)), opts)
}

// ParseUTF8 reads an extract that has already been decoded to UTF-8.
func ParseUTF8(r io.Reader, opts ParseOptions) ([]Row, error) {
	return parseRecords(csv.NewReader(r), opts)
}

func parseRecords(cr *csv.Reader, opts ParseOptions) ([]Row, error) {
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &MissingColumnsError{Missing: []string{opts.Kind.CodeColumn(), NameColumn}, Detail: "empty file"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := ResolveColumns(opts.Kind, header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		code, ok := ParseCode(field(rec, cols.Code))
		if !ok {
			continue
		}
		if !opts.CodeRanges.Contains(code) {
			continue
		}

		var monthly [12]decimal.Decimal
		for m, idx := range cols.Months {
			monthly[m] = ParseAmount(field(rec, idx))
		}

		rows = append(rows, NewRow(opts.Year, code, strings.TrimSpace(field(rec, cols.Name)), monthly))
	}

	return rows, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// ParseCode parses an account code. Integral decimals such as "410.0" are
// accepted; blanks, text and negative values are rejected.
func ParseCode(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || d.IsNegative() {
		return 0, false
	}
	return int(d.IntPart()), true
}

// ParseAmount parses a monthly value; blank or non-numeric cells become zero.
// Thousands separators are stripped first, so "1,000" reads as 1000. This is
// more lenient than a strict numeric coercion of the raw extract, which would
// treat "1,000" as non-numeric and yield zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

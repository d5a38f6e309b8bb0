package statement

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeRange is an inclusive account code interval.
type CodeRange struct {
	Min int
	Max int
}

// CodeRanges is a set of valid account code intervals. A nil set accepts every code.
type CodeRanges []CodeRange

// DefaultBSCodeRanges keeps balance sheet accounts and drops the P/L lines
// (400-899) and subtotal rows that share the balance sheet export.
var DefaultBSCodeRanges = CodeRanges{
	{Min: 111, Max: 399},
	{Min: 920, Max: 920},
}

// Contains reports whether code lies in any interval.
func (r CodeRanges) Contains(code int) bool {
	if r == nil {
		return true
	}
	for _, cr := range r {
		if code >= cr.Min && code <= cr.Max {
			return true
		}
	}
	return false
}

// String renders the ranges in the form accepted by ParseCodeRanges.
func (r CodeRanges) String() string {
	parts := make([]string, 0, len(r))
	for _, cr := range r {
		if cr.Min == cr.Max {
			parts = append(parts, strconv.Itoa(cr.Min))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", cr.Min, cr.Max))
		}
	}
	return strings.Join(parts, ",")
}

// ParseCodeRanges parses "111-399,920". An empty string yields nil (no filter).
func ParseCodeRanges(s string) (CodeRanges, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out CodeRanges
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		min, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("parse code range %q: %w", part, err)
		}
		max := min
		if isRange {
			max, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("parse code range %q: %w", part, err)
			}
		}
		if max < min {
			return nil, fmt.Errorf("parse code range %q: upper bound below lower bound", part)
		}
		out = append(out, CodeRange{Min: min, Max: max})
	}
	return out, nil
}

package fiscal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Era prefixes. Every older-era label sorts before every newer-era label.
const (
	EraHeisei = "H"
	EraReiwa  = "R"
)

// MaxSelection is the maximum number of years that can be compared at once.
const MaxSelection = 5

var (
	// ErrInvalidLabel is returned when a label is not an era prefix followed by a number.
	ErrInvalidLabel = errors.New("invalid fiscal year label")

	// ErrInvalidSelection is returned when a year selection cannot be compared.
	ErrInvalidSelection = errors.New("invalid fiscal year selection")
)

// Year is a parsed fiscal year label such as "H27" or "R6".
type Year struct {
	Era    string
	Number int
}

// String returns the label form of the year.
func (y Year) String() string {
	return y.Era + strconv.Itoa(y.Number)
}

// Ordinal is a sortable integer key that agrees with Less, e.g. for
// ORDER BY in warehouse tables.
func (y Year) Ordinal() int {
	return eraRank(y.Era)*1000 + y.Number
}

// Gregorian returns the calendar year in which the fiscal year starts.
// H1 is 1989 and R1 is 2019.
func (y Year) Gregorian() int {
	switch y.Era {
	case EraHeisei:
		return 1988 + y.Number
	case EraReiwa:
		return 2018 + y.Number
	default:
		return 0
	}
}

// Parse parses a label into a Year.
func Parse(label string) (Year, error) {
	if len(label) < 2 {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	era := label[:1]
	if era != EraHeisei && era != EraReiwa {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil || n < 0 {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return Year{Era: era, Number: n}, nil
}

// eraRank orders eras; unknown labels rank after both known eras.
func eraRank(era string) int {
	switch era {
	case EraHeisei:
		return 0
	case EraReiwa:
		return 1
	default:
		return 2
	}
}

// Less reports whether label a precedes label b.
func Less(a, b string) bool {
	ya, errA := Parse(a)
	yb, errB := Parse(b)

	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return false
	case errB != nil:
		return true
	}

	if ra, rb := eraRank(ya.Era), eraRank(yb.Era); ra != rb {
		return ra < rb
	}
	if ya.Number != yb.Number {
		return ya.Number < yb.Number
	}
	return a < b
}

// Sort returns the labels in fiscal order. The input slice is not modified.
//
//	Sort([]string{"R6", "H27", "H28", "R5"}) // [H27 H28 R5 R6]
func Sort(labels []string) []string {
	out := make([]string, len(labels))
	copy(out, labels)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Index returns a label -> position map for the fiscal order of labels.
// It is used to sort tables by year without re-parsing on every comparison.
func Index(labels []string) map[string]int {
	ordered := Sort(labels)
	idx := make(map[string]int, len(ordered))
	for i, l := range ordered {
		if _, ok := idx[l]; !ok {
			idx[l] = i
		}
	}
	return idx
}

// DefaultSelection returns the two most recent years of available.
func DefaultSelection(available []string) []string {
	ordered := Sort(available)
	if len(ordered) <= 2 {
		return ordered
	}
	return ordered[len(ordered)-2:]
}

// ValidateSelection checks that selected is a non-empty list of at most
// MaxSelection distinct years, all present in available.
func ValidateSelection(selected, available []string) error {
	if len(selected) == 0 {
		return fmt.Errorf("%w: no years selected", ErrInvalidSelection)
	}
	if len(selected) > MaxSelection {
		return fmt.Errorf("%w: %d years selected, at most %d allowed", ErrInvalidSelection, len(selected), MaxSelection)
	}

	known := make(map[string]bool, len(available))
	for _, y := range available {
		known[y] = true
	}

	seen := make(map[string]bool, len(selected))
	for _, y := range selected {
		if seen[y] {
			return fmt.Errorf("%w: %s selected twice", ErrInvalidSelection, y)
		}
		seen[y] = true
		if !known[y] {
			return fmt.Errorf("%w: %s is not available", ErrInvalidSelection, y)
		}
	}
	return nil
}

// SplitList parses a comma separated year list, keeping the caller's order.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

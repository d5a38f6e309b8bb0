// Package audit cross-checks the account master against the loaded
// statement data: codes missing on either side, names shared by several
// codes and likely renames between years.
package audit

import (
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/dvloznov/statement-trends/internal/fiscal"
	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// AccountYears is an account code with the first name seen for it and every
// year it appears in.
type AccountYears struct {
	Code  int      `json:"code"`
	Name  string   `json:"name"`
	Years []string `json:"years"`
}

// Inventory lists every code in the table, ordered by code.
func Inventory(table *statement.Table) []AccountYears {
	byCode := make(map[int]*AccountYears)
	var codes []int
	for _, r := range table.Rows {
		a, ok := byCode[r.Code]
		if !ok {
			a = &AccountYears{Code: r.Code, Name: r.Name}
			byCode[r.Code] = a
			codes = append(codes, r.Code)
		}
		a.Years = append(a.Years, r.Year)
	}
	sort.Ints(codes)

	out := make([]AccountYears, 0, len(codes))
	for _, c := range codes {
		a := byCode[c]
		a.Years = uniqueYears(a.Years)
		out = append(out, *a)
	}
	return out
}

func uniqueYears(years []string) []string {
	seen := make(map[string]bool, len(years))
	var out []string
	for _, y := range years {
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	return fiscal.Sort(out)
}

// YearCount is the number of distinct codes in one year.
type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

// CountsByYear returns the distinct code count per year, in fiscal order.
func CountsByYear(table *statement.Table) []YearCount {
	var out []YearCount
	for _, y := range table.Years() {
		codes := make(map[int]bool)
		for _, r := range table.ForYear(y) {
			codes[r.Code] = true
		}
		out = append(out, YearCount{Year: y, Count: len(codes)})
	}
	return out
}

// CoverageReport compares master codes with the codes found in the data.
type CoverageReport struct {
	MasterCount int                 `json:"master_count"`
	DataCount   int                 `json:"data_count"`
	Common      int                 `json:"common"`
	MasterOnly  []statement.Account `json:"master_only"`
	DataOnly    []AccountYears      `json:"data_only"`
}

// Coverage reports codes that exist only in the master or only in the data.
func Coverage(m *master.Master, table *statement.Table) CoverageReport {
	inventory := Inventory(table)
	dataCodes := make(map[int]bool, len(inventory))
	for _, a := range inventory {
		dataCodes[a.Code] = true
	}

	var rep CoverageReport
	masterCodes := make(map[int]bool)
	for _, e := range m.Entries() {
		if masterCodes[e.Code] {
			continue
		}
		masterCodes[e.Code] = true
		if dataCodes[e.Code] {
			rep.Common++
		} else {
			rep.MasterOnly = append(rep.MasterOnly, statement.Account{Code: e.Code, Name: e.Name})
		}
	}
	sort.Slice(rep.MasterOnly, func(i, j int) bool { return rep.MasterOnly[i].Code < rep.MasterOnly[j].Code })

	for _, a := range inventory {
		if !masterCodes[a.Code] {
			rep.DataOnly = append(rep.DataOnly, a)
		}
	}

	rep.MasterCount = len(masterCodes)
	rep.DataCount = len(dataCodes)
	return rep
}

// DuplicateName is an account name used by more than one code.
type DuplicateName struct {
	Name  string         `json:"name"`
	Codes []AccountYears `json:"codes"`
	// Overlap is true when two of the codes appear in the same year.
	Overlap bool `json:"overlap"`
}

// Unifiable reports whether the codes could be merged without two of
// them colliding in one year.
func (d DuplicateName) Unifiable() bool {
	return !d.Overlap
}

// DuplicateNames finds names shared by several codes, ordered by name.
func DuplicateNames(table *statement.Table) []DuplicateName {
	byName := make(map[string][]AccountYears)
	for _, a := range Inventory(table) {
		byName[a.Name] = append(byName[a.Name], a)
	}

	var out []DuplicateName
	for name, codes := range byName {
		if len(codes) < 2 {
			continue
		}
		d := DuplicateName{Name: name, Codes: codes}
		perYear := make(map[string]int)
		for _, c := range codes {
			for _, y := range c.Years {
				perYear[y]++
				if perYear[y] > 1 {
					d.Overlap = true
				}
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MasterDuplicate is a name that appears on several master entries.
type MasterDuplicate struct {
	Name    string         `json:"name"`
	Entries []master.Entry `json:"entries"`
}

// MasterDuplicates finds names repeated inside the master.
func MasterDuplicates(m *master.Master) []MasterDuplicate {
	byName := make(map[string][]master.Entry)
	var names []string
	for _, e := range m.Entries() {
		if _, ok := byName[e.Name]; !ok {
			names = append(names, e.Name)
		}
		byName[e.Name] = append(byName[e.Name], e)
	}
	sort.Strings(names)

	var out []MasterDuplicate
	for _, n := range names {
		if len(byName[n]) > 1 {
			out = append(out, MasterDuplicate{Name: n, Entries: byName[n]})
		}
	}
	return out
}

// SimilarPair is two differently coded accounts with close names.
type SimilarPair struct {
	A        statement.Account `json:"a"`
	B        statement.Account `json:"b"`
	Distance int               `json:"distance"`
}

// SimilarNames returns pairs of accounts with different codes whose names
// are within maxDistance edits of each other but not identical. Identical
// names are reported by DuplicateNames.
func SimilarNames(table *statement.Table, maxDistance int) []SimilarPair {
	if maxDistance <= 0 {
		return nil
	}
	accounts := table.Accounts()

	var out []SimilarPair
	for i := 0; i < len(accounts); i++ {
		for j := i + 1; j < len(accounts); j++ {
			a, b := accounts[i], accounts[j]
			if a.Code == b.Code || a.Name == b.Name {
				continue
			}
			d := levenshtein.ComputeDistance(a.Name, b.Name)
			if d <= maxDistance {
				out = append(out, SimilarPair{A: a, B: b, Distance: d})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// Report bundles every check.
type Report struct {
	Inventory        []AccountYears    `json:"inventory"`
	CountsByYear     []YearCount       `json:"counts_by_year"`
	Coverage         *CoverageReport   `json:"coverage,omitempty"`
	DuplicateNames   []DuplicateName   `json:"duplicate_names"`
	MasterDuplicates []MasterDuplicate `json:"master_duplicates,omitempty"`
	SimilarNames     []SimilarPair     `json:"similar_names"`
}

// Run executes every check. Master-based checks are skipped when m is nil.
func Run(table *statement.Table, m *master.Master, maxDistance int) Report {
	rep := Report{
		Inventory:      Inventory(table),
		CountsByYear:   CountsByYear(table),
		DuplicateNames: DuplicateNames(table),
		SimilarNames:   SimilarNames(table, maxDistance),
	}
	if m != nil {
		cov := Coverage(m, table)
		rep.Coverage = &cov
		rep.MasterDuplicates = MasterDuplicates(m)
	}
	return rep
}

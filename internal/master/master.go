package master

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dvloznov/statement-trends/internal/statement"
)

var (
	// ErrMasterNotFound is returned when the master file does not exist.
	ErrMasterNotFound = errors.New("account master not found")
	// ErrInvalidMaster is returned when the master file lacks required columns.
	ErrInvalidMaster = errors.New("invalid account master")
)

// Column headers of the master file.
const (
	ColumnCode        = "科目コード"
	ColumnName        = "科目名"
	ColumnCategory    = "大分類"
	ColumnSubcategory = "中分類"
	ColumnFixedCost   = "固定費区分"
	ColumnOrder       = "表示順"
)

// Entry classifies one account code.
type Entry struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	FixedCost   string `json:"fixed_cost,omitempty"`
	Order       *int   `json:"order,omitempty"`
}

// Master is a read-only account classification table.
type Master struct {
	kind    statement.Kind
	entries []Entry
	byCode  map[int]int
}

// Path returns the master file location for kind inside configDir.
func Path(configDir string, kind statement.Kind) string {
	if kind == statement.KindBS {
		return filepath.Join(configDir, "bs_account_master.csv")
	}
	return filepath.Join(configDir, "account_master.csv")
}

// Load reads a master file. UTF-8 is tried first, then Shift-JIS.
func Load(path string, kind statement.Kind) (*Master, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMasterNotFound, path)
		}
		return nil, fmt.Errorf("read master %s: %w", path, err)
	}

	text, err := statement.DecodeUTF8OrShiftJIS(b)
	if err != nil {
		return nil, fmt.Errorf("decode master %s: %w", path, err)
	}

	m, err := Parse(bytes.NewReader(text), kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads UTF-8 master CSV data.
func Parse(r io.Reader, kind statement.Kind) (*Master, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidMaster)
	}
	if err != nil {
		return nil, fmt.Errorf("read master header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}

	var missing []string
	for _, col := range []string{ColumnCode, ColumnName, ColumnCategory, ColumnSubcategory} {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrInvalidMaster, strings.Join(missing, ", "))
	}

	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read master: %w", err)
		}

		code, ok := statement.ParseCode(get(rec, ColumnCode))
		if !ok {
			continue
		}
		e := Entry{
			Code:        code,
			Name:        get(rec, ColumnName),
			Category:    get(rec, ColumnCategory),
			Subcategory: get(rec, ColumnSubcategory),
			FixedCost:   get(rec, ColumnFixedCost),
		}
		if n, err := strconv.Atoi(get(rec, ColumnOrder)); err == nil {
			e.Order = &n
		}
		entries = append(entries, e)
	}

	if _, ok := idx[ColumnOrder]; ok {
		sort.SliceStable(entries, func(i, j int) bool {
			oi, oj := entries[i].Order, entries[j].Order
			switch {
			case oi == nil:
				return false
			case oj == nil:
				return true
			default:
				return *oi < *oj
			}
		})
	}

	return New(kind, entries), nil
}

// New builds a master from entries, keeping their order.
func New(kind statement.Kind, entries []Entry) *Master {
	m := &Master{
		kind:    kind,
		entries: entries,
		byCode:  make(map[int]int, len(entries)),
	}
	for i, e := range entries {
		if _, ok := m.byCode[e.Code]; !ok {
			m.byCode[e.Code] = i
		}
	}
	return m
}

// Kind returns the statement kind the master classifies.
func (m *Master) Kind() statement.Kind {
	return m.kind
}

// Entries returns a copy of the entries in display order.
func (m *Master) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Lookup returns the first entry for code.
func (m *Master) Lookup(code int) (Entry, bool) {
	i, ok := m.byCode[code]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Categories returns the distinct categories in first-seen order.
func (m *Master) Categories() []string {
	return m.distinct(func(e Entry) string { return e.Category })
}

// Subcategories returns the distinct sub-categories in first-seen order.
func (m *Master) Subcategories() []string {
	return m.distinct(func(e Entry) string { return e.Subcategory })
}

func (m *Master) distinct(f func(Entry) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.entries {
		v := f(e)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// CodesInCategory returns the set of codes whose category equals name.
func (m *Master) CodesInCategory(name string) map[int]bool {
	return m.codesWhere(func(e Entry) bool { return e.Category == name })
}

// CodesInSubcategory returns the set of codes whose sub-category equals name.
func (m *Master) CodesInSubcategory(name string) map[int]bool {
	return m.codesWhere(func(e Entry) bool { return e.Subcategory == name })
}

func (m *Master) codesWhere(pred func(Entry) bool) map[int]bool {
	out := make(map[int]bool)
	for _, e := range m.entries {
		if pred(e) {
			out[e.Code] = true
		}
	}
	return out
}

// FlatAccounts lists the distinct accounts of a table when no master is available.
func FlatAccounts(table *statement.Table) []statement.Account {
	return table.Accounts()
}

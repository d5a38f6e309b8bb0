package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// ErrUnmappedAccounts is returned by strict validation when the table holds
// codes the account master does not classify.
var ErrUnmappedAccounts = errors.New("accounts missing from master")

// MasterValidator checks table codes against the account master.
type MasterValidator struct {
	known map[int]bool
}

// NewMasterValidator creates a validator for m. A nil master accepts nothing.
func NewMasterValidator(m *master.Master) *MasterValidator {
	v := &MasterValidator{known: make(map[int]bool)}
	if m == nil {
		return v
	}
	for _, e := range m.Entries() {
		v.known[e.Code] = true
	}
	return v
}

// Unmapped returns the distinct codes of table missing from the master, ascending.
func (v *MasterValidator) Unmapped(table *statement.Table) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range table.Rows {
		if v.known[r.Code] || seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		out = append(out, r.Code)
	}
	sort.Ints(out)
	return out
}

// Validate returns ErrUnmappedAccounts listing the first few missing codes.
func (v *MasterValidator) Validate(table *statement.Table) error {
	missing := v.Unmapped(table)
	if len(missing) == 0 {
		return nil
	}
	shown := missing
	if len(shown) > 10 {
		shown = shown[:10]
	}
	return fmt.Errorf("%w: %d codes, e.g. %v", ErrUnmappedAccounts, len(missing), shown)
}

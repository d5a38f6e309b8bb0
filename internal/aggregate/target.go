package aggregate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTarget is returned when a target string cannot be parsed.
var ErrInvalidTarget = errors.New("invalid target")

// TargetKind selects how account rows are matched.
type TargetKind string

const (
	// TargetAccount matches one account code.
	TargetAccount TargetKind = "account"
	// TargetCategory matches every code of a master category (大分類).
	TargetCategory TargetKind = "category"
	// TargetSubcategory matches every code of a master sub-category (中分類).
	TargetSubcategory TargetKind = "subcategory"
)

// Target is what a comparison aggregates: a single account, or every
// account of a category or sub-category.
type Target struct {
	Kind TargetKind `json:"kind"`
	Code int        `json:"code,omitempty"`
	Name string     `json:"name,omitempty"`
}

// SingleAccount targets one account code.
func SingleAccount(code int) Target {
	return Target{Kind: TargetAccount, Code: code}
}

// CategoryFilter targets every account of a category.
func CategoryFilter(name string) Target {
	return Target{Kind: TargetCategory, Name: name}
}

// SubcategoryFilter targets every account of a sub-category.
func SubcategoryFilter(name string) Target {
	return Target{Kind: TargetSubcategory, Name: name}
}

// ParseTarget parses "account:410", "category:収益" or "subcategory:売上".
// A bare number is treated as an account code.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		kind, value = string(TargetAccount), s
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}

	switch TargetKind(kind) {
	case TargetAccount:
		code, err := strconv.Atoi(value)
		if err != nil || code < 0 {
			return Target{}, fmt.Errorf("%w: bad account code %q", ErrInvalidTarget, value)
		}
		return SingleAccount(code), nil
	case TargetCategory:
		return CategoryFilter(value), nil
	case TargetSubcategory:
		return SubcategoryFilter(value), nil
	default:
		return Target{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, kind)
	}
}

// String renders the target in the form accepted by ParseTarget.
func (t Target) String() string {
	if t.Kind == TargetAccount {
		return fmt.Sprintf("%s:%d", t.Kind, t.Code)
	}
	return fmt.Sprintf("%s:%s", t.Kind, t.Name)
}

// IsSummary reports whether the target combines several accounts.
func (t Target) IsSummary() bool {
	return t.Kind == TargetCategory || t.Kind == TargetSubcategory
}

// SummaryLabel is the display name of a combined target, e.g. "大分類：収益（合算）".
func (t Target) SummaryLabel() string {
	switch t.Kind {
	case TargetCategory:
		return "大分類：" + t.Name + "（合算）"
	case TargetSubcategory:
		return "中分類：" + t.Name + "（合算）"
	default:
		return ""
	}
}

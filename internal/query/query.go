// Package query filters snapshots of items, loans and movements. Every
// function returns a new slice and leaves its input untouched.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Search keeps items whose name, id, description, category name or location
// id contains text, ignoring case. Blank text keeps everything.
func Search(items []model.Item, text string) []model.Item {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return filter(items, func(model.Item) bool { return true })
	}
	return filter(items, func(it model.Item) bool {
		return contains(it.Name, needle) ||
			contains(it.ID, needle) ||
			contains(it.Description, needle) ||
			contains(it.Category.Name, needle) ||
			contains(it.LocationID, needle)
	})
}

// FilterByStatus keeps items with exactly status. An empty status keeps
// everything.
func FilterByStatus(items []model.Item, status model.ItemStatus) []model.Item {
	if status == "" {
		return filter(items, func(model.Item) bool { return true })
	}
	return filter(items, func(it model.Item) bool { return it.Status == status })
}

// Items narrows an item list. Zero fields match everything.
type Items struct {
	Text       string
	Status     model.ItemStatus
	LocationID string
	LowStock   bool
}

// Apply runs every filter set in q.
func (q Items) Apply(items []model.Item) []model.Item {
	out := FilterByStatus(Search(items, q.Text), q.Status)
	return filter(out, func(it model.Item) bool {
		if q.LocationID != "" && it.LocationID != q.LocationID {
			return false
		}
		return !q.LowStock || it.LowStock()
	})
}

// LoanState selects loans by lifecycle.
type LoanState string

// Loan states.
const (
	LoansAll      LoanState = "all"
	LoansActive   LoanState = "active"
	LoansReturned LoanState = "returned"
	LoansOverdue  LoanState = "overdue"
)

// ParseLoanState accepts the canonical state names. Empty means all.
func ParseLoanState(s string) (LoanState, error) {
	switch st := LoanState(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return LoansAll, nil
	case LoansAll, LoansActive, LoansReturned, LoansOverdue:
		return st, nil
	default:
		return "", fmt.Errorf("unknown loan state %q", s)
	}
}

// Loans narrows a loan list. Now is the reference time for overdue.
type Loans struct {
	State      LoanState
	ItemID     string
	BorrowerID string
	Now        time.Time
}

// Apply runs every filter set in q.
func (q Loans) Apply(loans []model.Loan) []model.Loan {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	return filter(loans, func(l model.Loan) bool {
		if q.ItemID != "" && l.Item.ID != q.ItemID {
			return false
		}
		if q.BorrowerID != "" && l.Borrower.ID != q.BorrowerID {
			return false
		}
		switch q.State {
		case LoansActive:
			return l.Active()
		case LoansReturned:
			return !l.Active()
		case LoansOverdue:
			return l.Overdue(now)
		}
		return true
	})
}

// Movements narrows a movement list. From and To bound the date inclusively
// when set.
type Movements struct {
	Type   model.MovementType
	Reason model.MovementReason
	ItemID string
	From   time.Time
	To     time.Time
	Text   string
}

// Apply runs every filter set in q. Text matches the item name, notes and
// responsible user name.
func (q Movements) Apply(ms []model.Movement) []model.Movement {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	return filter(ms, func(m model.Movement) bool {
		switch {
		case q.Type != "" && m.Type != q.Type:
			return false
		case q.Reason != "" && m.Reason != q.Reason:
			return false
		case q.ItemID != "" && m.Item.ID != q.ItemID:
			return false
		case !q.From.IsZero() && m.Date.Before(q.From):
			return false
		case !q.To.IsZero() && m.Date.After(q.To):
			return false
		}
		if needle == "" {
			return true
		}
		return contains(m.Item.Name, needle) ||
			contains(m.Notes, needle) ||
			contains(m.ResponsibleUser.Name, needle)
	})
}

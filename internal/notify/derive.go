// Package notify keeps the advisory low-stock and overdue-loan list in step
// with items and loans.
package notify

import (
	"fmt"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

// Derive returns the notifications that hold for items and loans at now,
// without ids or read flags. It depends on nothing else, in particular not
// on previously stored notifications.
func Derive(items []model.Item, loans []model.Loan, now time.Time) []model.Notification {
	var out []model.Notification
	for _, it := range items {
		if !it.LowStock() {
			continue
		}
		out = append(out, model.Notification{
			Type:      model.NotificationLowStock,
			SubjectID: it.ID,
			ItemID:    it.ID,
			ItemName:  it.Name,
			Title:     "Low stock",
			Message:   fmt.Sprintf("Item %s is low on stock (%d %s).", it.Name, it.Quantity, it.Unit),
			CreatedAt: now,
		})
	}
	for _, l := range loans {
		if !l.Overdue(now) {
			continue
		}
		out = append(out, model.Notification{
			Type:      model.NotificationOverdueLoan,
			SubjectID: l.ID,
			ItemID:    l.Item.ID,
			ItemName:  l.Item.Name,
			Title:     "Overdue loan",
			Message:   fmt.Sprintf("The loan of %s to %s is overdue.", l.Item.Name, l.Borrower.Name),
			CreatedAt: now,
		})
	}
	return out
}

// Plan compares stored notifications with freshly derived ones. Add holds
// derived entries with no stored counterpart. Retract holds stored low-stock
// entries whose condition no longer holds; overdue entries are never
// retracted because a loan return is final.
func Plan(stored, derived []model.Notification) (add, retract []model.Notification) {
	have := make(map[string]bool, len(stored))
	for _, n := range stored {
		have[n.Key()] = true
	}
	want := make(map[string]bool, len(derived))
	for _, n := range derived {
		want[n.Key()] = true
		if !have[n.Key()] {
			add = append(add, n)
			have[n.Key()] = true
		}
	}
	for _, n := range stored {
		if n.Type == model.NotificationLowStock && !want[n.Key()] {
			retract = append(retract, n)
		}
	}
	return add, retract
}

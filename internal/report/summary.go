// Package report computes inventory statistics and renders exports.
package report

import (
	"sort"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

// Window is how far back movement totals reach.
const Window = 30 * 24 * time.Hour

// Flow totals movements of one type.
type Flow struct {
	Count    int `json:"count"`
	Quantity int `json:"quantity"`
}

// Bucket is a quantity total for a label.
type Bucket struct {
	Label    string `json:"label"`
	Items    int    `json:"items"`
	Quantity int    `json:"quantity"`
}

// Summary is the dashboard view of the inventory.
type Summary struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	TotalQuantity int       `json:"totalQuantity"`
	UniqueItems   int       `json:"uniqueItems"`
	LowStockItems int       `json:"lowStockItems"`
	DamagedItems  int       `json:"damagedItems"`
	ActiveLoans   int       `json:"activeLoans"`
	OverdueLoans  int       `json:"overdueLoans"`
	Inflow        Flow      `json:"inflow"`
	Outflow       Flow      `json:"outflow"`
	ByStatus      []Bucket  `json:"byStatus"`
	ByCategory    []Bucket  `json:"byCategory"`
}

// Summarize computes a Summary at now. Movements older than Window are
// left out of the flow totals.
func Summarize(items []model.Item, loans []model.Loan, movements []model.Movement, now time.Time) Summary {
	s := Summary{GeneratedAt: now, UniqueItems: len(items)}

	status := map[string]*Bucket{}
	category := map[string]*Bucket{}
	add := func(m map[string]*Bucket, label string, qty int) {
		b, ok := m[label]
		if !ok {
			b = &Bucket{Label: label}
			m[label] = b
		}
		b.Items++
		b.Quantity += qty
	}

	for _, it := range items {
		s.TotalQuantity += it.Quantity
		if it.LowStock() {
			s.LowStockItems++
		}
		if it.Status == model.StatusDamaged {
			s.DamagedItems++
		}
		add(status, string(it.Status), it.Quantity)
		label := it.Category.Name
		if label == "" {
			label = "Uncategorized"
		}
		add(category, label, it.Quantity)
	}

	for _, l := range loans {
		if l.Active() {
			s.ActiveLoans++
		}
		if l.Overdue(now) {
			s.OverdueLoans++
		}
	}

	since := now.Add(-Window)
	for _, m := range movements {
		if m.Date.Before(since) || m.Date.After(now) {
			continue
		}
		f := &s.Inflow
		if m.Type == model.MovementOutput {
			f = &s.Outflow
		}
		f.Count++
		f.Quantity += m.Quantity
	}

	s.ByStatus = buckets(status)
	s.ByCategory = buckets(category)
	return s
}

func buckets(m map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Label < out[j].Label
	})
	return out
}

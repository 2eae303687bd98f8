package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/model"
)

func ids[T any](in []T, id func(T) string) []string {
	out := []string{}
	for _, v := range in {
		out = append(out, id(v))
	}
	return out
}

func itemID(it model.Item) string { return it.ID }

var items = []model.Item{
	{ID: "i1", Name: "Cordless Drill", Category: model.Category{Name: "Power tools"}, LocationID: "shelf-a", Status: model.StatusAvailable, Quantity: 4, MinQuantity: 1},
	{ID: "i2", Name: "Hammer", Description: "claw, steel", LocationID: "shelf-b", Status: model.StatusBorrowed, Quantity: 0, MinQuantity: 1},
	{ID: "i3", Name: "Projector", Category: model.Category{Name: "AV"}, LocationID: "room-2", Status: model.StatusDamaged, Quantity: 1, MinQuantity: 0},
}

func TestSearch(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"", []string{"i1", "i2", "i3"}},
		{"  ", []string{"i1", "i2", "i3"}},
		{"DRILL", []string{"i1"}},
		{"steel", []string{"i2"}},
		{"power", []string{"i1"}},
		{"shelf", []string{"i1", "i2"}},
		{"i3", []string{"i3"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ids(Search(items, tt.text), itemID), "search %q", tt.text)
	}
}

func TestFilterByStatus(t *testing.T) {
	assert.Equal(t, []string{"i1", "i2", "i3"}, ids(FilterByStatus(items, ""), itemID))
	assert.Equal(t, []string{"i3"}, ids(FilterByStatus(items, model.StatusDamaged), itemID))
	assert.Empty(t, FilterByStatus(items, model.StatusMaintenance))
}

func TestItemsApply(t *testing.T) {
	assert.Equal(t, []string{"i2"}, ids(Items{Text: "shelf", LowStock: true}.Apply(items), itemID))
	assert.Equal(t, []string{"i1"}, ids(Items{LocationID: "shelf-a"}.Apply(items), itemID))
	assert.Equal(t, []string{}, ids(Items{Text: "drill", Status: model.StatusBorrowed}.Apply(items), itemID))

	// Input is not modified.
	assert.Equal(t, "i1", items[0].ID)
	assert.Len(t, items, 3)
}

func TestLoans(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	returned := now.Add(-time.Hour)
	loans := []model.Loan{
		{ID: "l1", Item: model.ItemSnapshot{ID: "i1"}, Borrower: model.UserSnapshot{ID: "u1"}, ExpectedReturnDate: now.Add(24 * time.Hour)},
		{ID: "l2", Item: model.ItemSnapshot{ID: "i1"}, Borrower: model.UserSnapshot{ID: "u2"}, ExpectedReturnDate: now.Add(-24 * time.Hour)},
		{ID: "l3", Item: model.ItemSnapshot{ID: "i2"}, Borrower: model.UserSnapshot{ID: "u1"}, ExpectedReturnDate: now.Add(-48 * time.Hour), ActualReturnDate: &returned},
	}
	loanID := func(l model.Loan) string { return l.ID }

	tests := []struct {
		q    Loans
		want []string
	}{
		{Loans{Now: now}, []string{"l1", "l2", "l3"}},
		{Loans{State: LoansAll, Now: now}, []string{"l1", "l2", "l3"}},
		{Loans{State: LoansActive, Now: now}, []string{"l1", "l2"}},
		{Loans{State: LoansReturned, Now: now}, []string{"l3"}},
		{Loans{State: LoansOverdue, Now: now}, []string{"l2"}},
		{Loans{ItemID: "i1", BorrowerID: "u1", Now: now}, []string{"l1"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ids(tt.q.Apply(loans), loanID), "%+v", tt.q)
	}
}

func TestParseLoanState(t *testing.T) {
	st, err := ParseLoanState("")
	require.NoError(t, err)
	assert.Equal(t, LoansAll, st)

	st, err = ParseLoanState(" Overdue ")
	require.NoError(t, err)
	assert.Equal(t, LoansOverdue, st)

	_, err = ParseLoanState("late")
	assert.Error(t, err)
}

func TestMovements(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ms := []model.Movement{
		{ID: "m1", Item: model.ItemSnapshot{ID: "i1", Name: "Drill"}, Type: model.MovementInput, Reason: model.ReasonPurchase, Date: day, ResponsibleUser: model.UserSnapshot{Name: "Ana"}},
		{ID: "m2", Item: model.ItemSnapshot{ID: "i1", Name: "Drill"}, Type: model.MovementOutput, Reason: model.ReasonUse, Date: day.AddDate(0, 0, 2), Notes: "Loan to Rui"},
		{ID: "m3", Item: model.ItemSnapshot{ID: "i2", Name: "Hammer"}, Type: model.MovementOutput, Reason: model.ReasonDiscard, Date: day.AddDate(0, 0, 5)},
	}
	movementID := func(m model.Movement) string { return m.ID }

	tests := []struct {
		q    Movements
		want []string
	}{
		{Movements{}, []string{"m1", "m2", "m3"}},
		{Movements{Type: model.MovementOutput}, []string{"m2", "m3"}},
		{Movements{Reason: model.ReasonDiscard}, []string{"m3"}},
		{Movements{ItemID: "i1"}, []string{"m1", "m2"}},
		{Movements{From: day.AddDate(0, 0, 2)}, []string{"m2", "m3"}},
		{Movements{To: day.AddDate(0, 0, 2)}, []string{"m1", "m2"}},
		{Movements{Text: "rui"}, []string{"m2"}},
		{Movements{Text: "ana"}, []string{"m1"}},
		{Movements{Text: "hammer", Type: model.MovementInput}, []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ids(tt.q.Apply(ms), movementID), "%+v", tt.q)
	}
}

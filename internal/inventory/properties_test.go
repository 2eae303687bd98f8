package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// TestLedgerProperties runs random operation sequences and checks that
// quantity never goes negative, always equals the ledger sum, and that every
// loan has a matching output (and, once returned, input) movement.
func TestLedgerProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		item := f.item(t, "Widget", rapid.IntRange(0, 5).Draw(rt, "initial"))

		var active []string
		loans := 0
		returns := 0

		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			qty := rapid.IntRange(1, 6).Draw(rt, "qty")
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				_, err := f.svc.RecordMovement(ctx, f.admin, MovementRequest{
					ItemID: item.ID, Type: model.MovementInput, Reason: model.ReasonPurchase, Quantity: qty,
				})
				require.NoError(rt, err)
			case 1:
				_, err := f.svc.RecordMovement(ctx, f.admin, MovementRequest{
					ItemID: item.ID, Type: model.MovementOutput, Reason: model.ReasonUse, Quantity: qty,
				})
				if err != nil && !errors.Is(err, ErrInsufficientStock) {
					rt.Fatalf("output: %v", err)
				}
			case 2:
				loan, err := f.svc.CreateLoan(ctx, f.admin, LoanRequest{
					ItemID: item.ID, BorrowerID: f.borrower.ID, Quantity: qty,
					ExpectedReturnDate: testNow.Add(time.Hour),
				})
				if err != nil {
					if !errors.Is(err, ErrInsufficientStock) {
						rt.Fatalf("loan: %v", err)
					}
					break
				}
				active = append(active, loan.ID)
				loans++
			case 3:
				if len(active) == 0 {
					break
				}
				idx := rapid.IntRange(0, len(active)-1).Draw(rt, "loan")
				_, err := f.svc.ReturnLoan(ctx, f.admin, active[idx])
				require.NoError(rt, err)
				active = append(active[:idx], active[idx+1:]...)
				returns++
			}

			got := f.reload(t, item.ID)
			if got.Quantity < 0 {
				rt.Fatalf("quantity went negative: %d", got.Quantity)
			}
			if sum := ledgerSum(f.movements(t, item.ID)); sum != got.Quantity {
				rt.Fatalf("quantity %d does not match ledger sum %d", got.Quantity, sum)
			}
			if !got.Status.Valid() {
				rt.Fatalf("invalid status %q", got.Status)
			}
		}

		var loanOut, loanIn int
		for _, m := range f.movements(t, item.ID) {
			switch {
			case m.Type == model.MovementOutput && len(m.Notes) >= 8 && m.Notes[:8] == "Loan to ":
				loanOut++
			case m.Type == model.MovementInput && m.Notes == returnNote(f.borrower.Name):
				loanIn++
			}
		}
		if loanOut != loans || loanIn != returns {
			rt.Fatalf("loan movements out=%d in=%d, want %d and %d", loanOut, loanIn, loans, returns)
		}

		stored, err := store.ListLoans(ctx, f.db, store.LoanFilter{ActiveOnly: true})
		require.NoError(rt, err)
		if len(stored) != len(active) {
			rt.Fatalf("%d active loans stored, want %d", len(stored), len(active))
		}
	})
}

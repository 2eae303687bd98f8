package inventory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// failInserts makes every insert into table fail from now on.
func failInserts(t *testing.T, database *sql.DB, table string) {
	t.Helper()
	_, err := database.Exec(`CREATE TRIGGER fail_` + table + `_insert BEFORE INSERT ON ` + table + `
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)
}

func requireStepError(t *testing.T, err error, op, failed string, completed ...string) {
	t.Helper()
	require.ErrorIs(t, err, ErrStoreIO)
	var se *StepError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, op, se.Op)
	assert.Equal(t, failed, se.Failed)
	assert.Equal(t, completed, se.Completed)
	assert.True(t, se.RolledBack)
	assert.Contains(t, se.Error(), "disk full")
}

func TestRecordMovementRollsBackWhenLedgerWriteFails(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "Drill", 5)
	failInserts(t, f.db, "movements")

	_, err := f.svc.RecordMovement(context.Background(), f.admin, MovementRequest{
		ItemID: item.ID, Type: model.MovementOutput, Reason: model.ReasonUse, Quantity: 2,
	})
	requireStepError(t, err, "record movement", "append movement", "apply quantity")

	assert.Equal(t, 5, f.reload(t, item.ID).Quantity)
	assert.Len(t, f.movements(t, item.ID), 1)
	assert.Equal(t, 1.0, f.rejected(t, "record_movement", "store"))
}

func TestCreateLoanRollsBackWhenLoanWriteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "Ladder", 5)
	failInserts(t, f.db, "loans")

	_, err := f.svc.CreateLoan(ctx, f.admin, LoanRequest{
		ItemID:             item.ID,
		BorrowerID:         f.borrower.ID,
		Quantity:           5,
		ExpectedReturnDate: testNow.Add(48 * time.Hour),
	})
	requireStepError(t, err, "create loan", "create loan", "apply quantity", "append movement")

	got := f.reload(t, item.ID)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, model.StatusAvailable, got.Status)
	assert.Len(t, f.movements(t, item.ID), 1)

	loans, err := store.ListLoans(ctx, f.db, store.LoanFilter{ItemID: item.ID})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestReturnLoanRollsBackWhenLedgerWriteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "Projector", 1)

	loan, err := f.svc.CreateLoan(ctx, f.admin, LoanRequest{
		ItemID:             item.ID,
		BorrowerID:         f.borrower.ID,
		Quantity:           1,
		ExpectedReturnDate: testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	failInserts(t, f.db, "movements")

	_, err = f.svc.ReturnLoan(ctx, f.admin, loan.ID)
	requireStepError(t, err, "return loan", "append movement", "stamp return", "apply quantity")

	got := f.reload(t, item.ID)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, model.StatusBorrowed, got.Status)
	assert.Len(t, f.movements(t, item.ID), 2)

	stored, err := store.GetLoan(ctx, f.db, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active(), "return stamp is rolled back")
}

// racingDB runs before ahead of the guarded stock write, standing in for a
// concurrent writer that lands between the read and the update.
type racingDB struct {
	store.DBTX
	before func()
}

func (r racingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if strings.Contains(query, "UPDATE items SET quantity") && r.before != nil {
		r.before()
	}
	return r.DBTX.ExecContext(ctx, query, args...)
}

func TestApplyQuantityDeltaLosesRace(t *testing.T) {
	t.Run("item deleted", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		item := f.item(t, "Saw", 3)
		racing := racingDB{DBTX: f.db, before: func() {
			require.NoError(t, store.DeleteItem(ctx, f.db, item.ID))
		}}

		_, err := ApplyQuantityDelta(ctx, racing, item.ID, -1, CauseMovement, testNow)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("stock drained", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		item := f.item(t, "Tape", 3)
		racing := racingDB{DBTX: f.db, before: func() {
			_, err := f.db.Exec(`UPDATE items SET quantity = 0 WHERE id = ?`, item.ID)
			require.NoError(t, err)
		}}

		_, err := ApplyQuantityDelta(ctx, racing, item.ID, -2, CauseMovement, testNow)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Contains(t, err.Error(), "has 0, need 2")
	})
}

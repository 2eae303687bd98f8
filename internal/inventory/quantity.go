package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Cause tells the engine why a quantity changes.
type Cause string

// Causes. Only loan-driven changes touch status.
const (
	CauseMovement   Cause = "movement"
	CauseLoan       Cause = "loan"
	CauseAdjustment Cause = "adjustment"
)

// NextStatus returns the status an item takes when delta moves its quantity
// to qty. Damaged and Maintenance are kept as they are.
func NextStatus(current model.ItemStatus, qty, delta int, cause Cause) model.ItemStatus {
	if cause != CauseLoan || current.Manual() {
		return current
	}
	if delta < 0 && qty == 0 {
		return model.StatusBorrowed
	}
	if qty > 0 && current == model.StatusBorrowed {
		return model.StatusAvailable
	}
	return current
}

// ApplyQuantityDelta adds delta to an item's quantity and updates its status
// and updated time. It fails with ErrInsufficientStock, writing nothing, when
// the quantity would go negative. Run it in the same transaction as the
// ledger append that records the change.
func ApplyQuantityDelta(ctx context.Context, db store.DBTX, itemID string, delta int, cause Cause, at time.Time) (*model.Item, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: quantity change must be non-zero", ErrInvalidRange)
	}

	item, err := store.GetItem(ctx, db, itemID)
	if err != nil {
		return nil, storeErr(err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}

	next := item.Quantity + delta
	if next < 0 {
		return nil, fmt.Errorf("%w: item %s has %d, need %d", ErrInsufficientStock, itemID, item.Quantity, -delta)
	}
	status := NextStatus(item.Status, next, delta, cause)

	ok, err := store.SetItemStock(ctx, db, itemID, delta, status, at)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		// The row changed between the read and the guarded write.
		current, err := store.GetItem(ctx, db, itemID)
		if err != nil {
			return nil, storeErr(err)
		}
		if current == nil {
			return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("%w: item %s has %d, need %d", ErrInsufficientStock, itemID, current.Quantity, -delta)
	}

	item.Quantity = next
	item.Status = status
	item.UpdatedAt = at
	return item, nil
}

package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ItemRequest holds the fields of a new item.
type ItemRequest struct {
	Name        string
	Description string
	Category    model.Category
	Quantity    int
	MinQuantity int
	Unit        string
	LocationID  string
	Status      model.ItemStatus
}

// ItemChanges edits an item. A non-nil Quantity sets the quantity to that
// value through the quantity engine and records the difference as a
// movement.
type ItemChanges struct {
	store.ItemPatch
	Quantity *int
}

const (
	initialStockNote = "Initial stock"
	adjustedNote     = "Quantity adjusted"
)

func (r ItemRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if r.Quantity < 0 || r.MinQuantity < 0 {
		return fmt.Errorf("%w: quantities must not be negative", ErrInvalidRange)
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, r.Status)
	}
	return nil
}

// checkLocation makes sure a referenced location exists.
func checkLocation(ctx context.Context, db store.DBTX, id string) error {
	if id == "" {
		return nil
	}
	loc, err := store.GetLocation(ctx, db, id)
	if err != nil {
		return storeErr(err)
	}
	if loc == nil {
		return fmt.Errorf("%w: location %s", ErrNotFound, id)
	}
	return nil
}

// CreateItem stores a new item. A positive starting quantity is booked as an
// Input movement so the ledger accounts for all stock from zero.
func (s *Service) CreateItem(ctx context.Context, sess model.Session, req ItemRequest) (_ *model.Item, err error) {
	ctx, span := s.startSpan(ctx, "CreateItem", attribute.Int("item.quantity", req.Quantity))
	defer func() { endSpan(span, err) }()

	if err := req.validate(); err != nil {
		s.reject("create_item", err)
		return nil, err
	}

	now := s.clock()
	var item *model.Item
	var initial *model.Movement
	st := &steps{op: "create item"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		if err := checkLocation(ctx, tx, req.LocationID); err != nil {
			return err
		}

		created, err := store.CreateItem(ctx, tx, model.Item{
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Category:    req.Category,
			MinQuantity: req.MinQuantity,
			Unit:        req.Unit,
			LocationID:  req.LocationID,
			Status:      req.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return st.fail("insert item", err)
		}
		st.ok("insert item")
		item = created

		if req.Quantity == 0 {
			return nil
		}
		initial = &model.Movement{
			Type:            model.MovementInput,
			Reason:          model.ReasonPurchase,
			Quantity:        req.Quantity,
			ResponsibleUser: sess.User,
			Date:            now,
			Notes:           initialStockNote,
		}
		if err := s.applyAndRecord(ctx, tx, st, item.ID, initial, CauseMovement); err != nil {
			return err
		}
		item.Quantity = req.Quantity
		return nil
	})
	if err != nil {
		s.reject("create_item", err)
		return nil, err
	}

	if initial != nil {
		s.metrics.MovementRecorded(string(initial.Type), string(initial.Reason))
	}
	s.log.Info().Str("user", sess.User.Name).Str("item", item.Name).Int("quantity", item.Quantity).Msg("item created")
	s.changed(ctx)
	return item, nil
}

// UpdateItem applies changes to an item and returns the updated item.
func (s *Service) UpdateItem(ctx context.Context, sess model.Session, id string, ch ItemChanges) (_ *model.Item, err error) {
	ctx, span := s.startSpan(ctx, "UpdateItem", attribute.String("item.id", id))
	defer func() { endSpan(span, err) }()

	if err := ch.validate(); err != nil {
		s.reject("update_item", err)
		return nil, err
	}

	now := s.clock()
	var adjust *model.Movement
	var updated *model.Item
	st := &steps{op: "update item"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		current, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if current == nil {
			return fmt.Errorf("%w: item %s", ErrNotFound, id)
		}
		if ch.LocationID != nil {
			if err := checkLocation(ctx, tx, *ch.LocationID); err != nil {
				return err
			}
		}

		if _, err := store.UpdateItem(ctx, tx, id, ch.ItemPatch, now); err != nil {
			return st.fail("update fields", err)
		}
		st.ok("update fields")

		if ch.Quantity != nil && *ch.Quantity != current.Quantity {
			delta := *ch.Quantity - current.Quantity
			adjust = &model.Movement{
				Type:            model.MovementInput,
				Reason:          model.ReasonOther,
				Quantity:        delta,
				ResponsibleUser: sess.User,
				Date:            now,
				Notes:           adjustedNote,
			}
			if delta < 0 {
				adjust.Type = model.MovementOutput
				adjust.Quantity = -delta
			}
			if err := s.applyAndRecord(ctx, tx, st, id, adjust, CauseAdjustment); err != nil {
				return err
			}
		}

		updated, err = store.GetItem(ctx, tx, id)
		if err != nil {
			return st.fail("reload item", err)
		}
		return nil
	})
	if err != nil {
		s.reject("update_item", err)
		return nil, err
	}

	if adjust != nil {
		s.metrics.MovementRecorded(string(adjust.Type), string(adjust.Reason))
	}
	s.log.Info().Str("user", sess.User.Name).Str("item", updated.Name).Msg("item updated")
	s.changed(ctx)
	return updated, nil
}

func (ch ItemChanges) validate() error {
	if ch.Name != nil && strings.TrimSpace(*ch.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if ch.Quantity != nil && *ch.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidRange)
	}
	if ch.MinQuantity != nil && *ch.MinQuantity < 0 {
		return fmt.Errorf("%w: minimum quantity must not be negative", ErrInvalidRange)
	}
	if ch.Status != nil && !ch.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, *ch.Status)
	}
	return nil
}

// DeleteItem removes an item that has no active loans, then its blobs.
// Movements and returned loans keep their snapshots of it.
func (s *Service) DeleteItem(ctx context.Context, sess model.Session, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteItem", attribute.String("item.id", id))
	defer func() { endSpan(span, err) }()

	var name string
	st := &steps{op: "delete item"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if item == nil {
			return fmt.Errorf("%w: item %s", ErrNotFound, id)
		}
		name = item.Name

		active, err := store.CountActiveLoansForItem(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if active > 0 {
			return fmt.Errorf("%w: item %s has %d active loans", ErrReferentialConflict, id, active)
		}

		if err := store.DeleteItem(ctx, tx, id); err != nil {
			return st.fail("delete item", err)
		}
		st.ok("delete item")
		return nil
	})
	if err != nil {
		s.reject("delete_item", err)
		return err
	}

	if s.blobs != nil {
		n, err := blob.DeleteAll(ctx, s.blobs, blob.ItemPrefix(id))
		if err != nil {
			s.log.Warn().Err(err).Str("item", id).Msg("removing item files")
		} else if n > 0 {
			s.log.Debug().Str("item", id).Int("files", n).Msg("item files removed")
		}
	}

	s.log.Info().Str("user", sess.User.Name).Str("item", name).Msg("item deleted")
	s.changed(ctx)
	return nil
}

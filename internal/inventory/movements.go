package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// MovementRequest is a direct stock change entered by a user.
type MovementRequest struct {
	ItemID   string
	Type     model.MovementType
	Reason   model.MovementReason
	Quantity int
	Notes    string
}

func (r MovementRequest) validate() error {
	if r.ItemID == "" {
		return fmt.Errorf("%w: item is required", ErrInvalidInput)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: movement type %q", ErrInvalidInput, r.Type)
	}
	if !r.Reason.Valid() {
		return fmt.Errorf("%w: movement reason %q", ErrInvalidInput, r.Reason)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidRange, r.Quantity)
	}
	return nil
}

// RecordMovement applies a movement to its item and appends it to the
// ledger, both in one transaction.
func (s *Service) RecordMovement(ctx context.Context, sess model.Session, req MovementRequest) (_ *model.Movement, err error) {
	ctx, span := s.startSpan(ctx, "RecordMovement",
		attribute.String("item.id", req.ItemID),
		attribute.String("movement.type", string(req.Type)),
		attribute.Int("movement.quantity", req.Quantity))
	defer func() { endSpan(span, err) }()

	if err := req.validate(); err != nil {
		s.reject("record_movement", err)
		return nil, err
	}

	now := s.clock()
	m := &model.Movement{
		Type:            req.Type,
		Reason:          req.Reason,
		Quantity:        req.Quantity,
		ResponsibleUser: sess.User,
		Date:            now,
		Notes:           req.Notes,
	}

	st := &steps{op: "record movement"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		return s.applyAndRecord(ctx, tx, st, req.ItemID, m, CauseMovement)
	})
	if err != nil {
		s.reject("record_movement", err)
		return nil, err
	}

	s.metrics.MovementRecorded(string(m.Type), string(m.Reason))
	s.log.Info().
		Str("user", sess.User.Name).
		Str("item", m.Item.Name).
		Str("type", string(m.Type)).
		Int("quantity", m.Quantity).
		Msg("movement recorded")
	s.changed(ctx)
	return m, nil
}

// applyAndRecord changes the item's quantity by m's signed delta and appends
// m with a snapshot of the updated item. Rejections before the first write
// are returned as they are; later failures become step errors.
func (s *Service) applyAndRecord(ctx context.Context, tx *sql.Tx, st *steps, itemID string, m *model.Movement, cause Cause) error {
	item, err := ApplyQuantityDelta(ctx, tx, itemID, m.SignedDelta(), cause, m.Date)
	if err != nil {
		if isDomain(err) && len(st.done) == 0 {
			return err
		}
		return st.fail("apply quantity", err)
	}
	st.ok("apply quantity")

	m.Item = item.Snapshot()
	if err := store.AppendMovement(ctx, tx, m); err != nil {
		return st.fail("append movement", err)
	}
	st.ok("append movement")
	return nil
}

package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// LocationRequest holds the fields of a new location.
type LocationRequest struct {
	Name        string
	Description string
	Capacity    *int
	Responsible string
}

func validCapacity(c *int) error {
	if c != nil && *c < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidRange)
	}
	return nil
}

// CreateLocation stores a new location.
func (s *Service) CreateLocation(ctx context.Context, sess model.Session, req LocationRequest) (*model.Location, error) {
	if strings.TrimSpace(req.Name) == "" {
		err := fmt.Errorf("%w: location name is required", ErrInvalidInput)
		s.reject("create_location", err)
		return nil, err
	}
	if err := validCapacity(req.Capacity); err != nil {
		s.reject("create_location", err)
		return nil, err
	}

	now := s.clock()
	loc, err := store.CreateLocation(ctx, s.db, model.Location{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Capacity:    req.Capacity,
		Responsible: req.Responsible,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		err = storeErr(err)
		s.reject("create_location", err)
		return nil, err
	}
	s.log.Info().Str("user", sess.User.Name).Str("location", loc.Name).Msg("location created")
	return loc, nil
}

// UpdateLocation applies a patch and returns the updated location.
func (s *Service) UpdateLocation(ctx context.Context, sess model.Session, id string, patch store.LocationPatch) (*model.Location, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		err := fmt.Errorf("%w: location name is required", ErrInvalidInput)
		s.reject("update_location", err)
		return nil, err
	}
	if err := validCapacity(patch.Capacity); err != nil {
		s.reject("update_location", err)
		return nil, err
	}

	var loc *model.Location
	st := &steps{op: "update location"}
	err := s.inTx(ctx, st, func(tx *sql.Tx) error {
		ok, err := store.UpdateLocation(ctx, tx, id, patch, s.clock())
		if err != nil {
			return st.fail("update location", err)
		}
		if !ok {
			return fmt.Errorf("%w: location %s", ErrNotFound, id)
		}
		st.ok("update location")

		if loc, err = store.GetLocation(ctx, tx, id); err != nil {
			return st.fail("reload location", err)
		}
		if loc == nil {
			return fmt.Errorf("%w: location %s", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		s.reject("update_location", err)
		return nil, err
	}
	s.log.Info().Str("user", sess.User.Name).Str("location", loc.Name).Msg("location updated")
	return loc, nil
}

// DeleteLocation removes a location no item refers to.
func (s *Service) DeleteLocation(ctx context.Context, sess model.Session, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteLocation", attribute.String("location.id", id))
	defer func() { endSpan(span, err) }()

	st := &steps{op: "delete location"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		loc, err := store.GetLocation(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if loc == nil {
			return fmt.Errorf("%w: location %s", ErrNotFound, id)
		}
		n, err := store.CountItemsAtLocation(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if n > 0 {
			return fmt.Errorf("%w: location %s holds %d items", ErrReferentialConflict, id, n)
		}
		if err := store.DeleteLocation(ctx, tx, id); err != nil {
			return st.fail("delete location", err)
		}
		st.ok("delete location")
		return nil
	})
	if err != nil {
		s.reject("delete_location", err)
		return err
	}
	s.log.Info().Str("user", sess.User.Name).Str("location", id).Msg("location deleted")
	return nil
}

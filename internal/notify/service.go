package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/metrics"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ErrNotFound is returned when marking an unknown notification.
var ErrNotFound = errors.New("notification not found")

// Service persists notifications and their read flags.
type Service struct {
	db      *sql.DB
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a Service. m may be nil.
func NewService(db *sql.DB, log zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{db: db, log: log, metrics: m, now: time.Now}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Refresh reconciles stored notifications with current items and loans.
func (s *Service) Refresh(ctx context.Context) error {
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	items, err := store.ListItems(ctx, tx, store.ItemFilter{})
	if err != nil {
		return err
	}
	loans, err := store.ListLoans(ctx, tx, store.LoanFilter{ActiveOnly: true})
	if err != nil {
		return err
	}
	stored, err := store.ListNotifications(ctx, tx)
	if err != nil {
		return err
	}

	add, retract := Plan(stored, Derive(items, loans, now))
	for i := range add {
		if _, err := store.InsertNotification(ctx, tx, &add[i]); err != nil {
			return err
		}
	}
	for _, n := range retract {
		if err := store.DeleteNotification(ctx, tx, n.Type, n.SubjectID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing notifications: %w", err)
	}

	if len(add) > 0 || len(retract) > 0 {
		s.log.Debug().Int("added", len(add)).Int("retracted", len(retract)).Msg("notifications refreshed")
	}
	s.record(stored, add, retract)
	return nil
}

func (s *Service) record(stored, add, retract []model.Notification) {
	counts := map[model.NotificationType]int{
		model.NotificationLowStock:    0,
		model.NotificationOverdueLoan: 0,
	}
	for _, n := range stored {
		counts[n.Type]++
	}
	for _, n := range add {
		counts[n.Type]++
	}
	for _, n := range retract {
		counts[n.Type]--
	}
	for typ, n := range counts {
		s.metrics.NotificationsStored(string(typ), n)
	}
}

// RefreshQuietly refreshes and logs failures. It fits inventory.Service.OnChange.
func (s *Service) RefreshQuietly(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Error().Err(err).Msg("refreshing notifications")
	}
}

// List refreshes and returns all notifications, newest first.
func (s *Service) List(ctx context.Context) ([]model.Notification, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return store.ListNotifications(ctx, s.db)
}

// Unread refreshes and returns the number of unread notifications.
func (s *Service) Unread(ctx context.Context) (int, error) {
	if err := s.Refresh(ctx); err != nil {
		return 0, err
	}
	return store.CountUnreadNotifications(ctx, s.db)
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	ok, err := store.MarkNotificationRead(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MarkAllRead flags every notification as read.
func (s *Service) MarkAllRead(ctx context.Context) error {
	return store.MarkAllNotificationsRead(ctx, s.db)
}

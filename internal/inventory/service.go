// Package inventory is the consistency core: it is the only code that changes
// item quantity and status, and it keeps the movement ledger and loans in
// step with those changes.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/metrics"
)

var tracer = otel.Tracer("github.com/erazemk/inventar/internal/inventory")

// Service runs core operations against the database.
type Service struct {
	db       *sql.DB
	log      zerolog.Logger
	metrics  *metrics.Metrics
	blobs    blob.Store
	now      func() time.Time
	onChange []func(ctx context.Context)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBlobStore sets where item attachments live.
func WithBlobStore(b blob.Store) Option {
	return func(s *Service) { s.blobs = b }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:  db,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every committed change to items or
// loans.
func (s *Service) OnChange(fn func(ctx context.Context)) {
	s.onChange = append(s.onChange, fn)
}

func (s *Service) changed(ctx context.Context) {
	for _, fn := range s.onChange {
		fn(ctx)
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Now returns the service clock's current time in UTC. Overdue checks in
// read paths use it so they agree with the core.
func (s *Service) Now() time.Time {
	return s.clock()
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "inventory."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// inTx runs fn in a transaction. A failed commit is reported as a step of st.
func (s *Service) inTx(ctx context.Context, st *steps, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return st.fail("commit", err)
	}
	return nil
}

// reject logs and counts an operation refused before any write.
func (s *Service) reject(op string, err error) {
	cause := "store"
	switch {
	case errors.Is(err, ErrNotFound):
		cause = "not_found"
	case errors.Is(err, ErrInsufficientStock):
		cause = "insufficient_stock"
	case errors.Is(err, ErrInvalidRange):
		cause = "invalid_range"
	case errors.Is(err, ErrAlreadyReturned):
		cause = "already_returned"
	case errors.Is(err, ErrReferentialConflict):
		cause = "referential_conflict"
	case errors.Is(err, ErrInvalidInput):
		cause = "invalid_input"
	}
	s.metrics.Rejected(op, cause)
	if cause == "store" {
		s.log.Error().Err(err).Str("op", op).Msg("operation failed")
		return
	}
	s.log.Debug().Err(err).Str("op", op).Msg("operation rejected")
}

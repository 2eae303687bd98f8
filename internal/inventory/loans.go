package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// LoanRequest asks to lend quantity of an item to a borrower.
type LoanRequest struct {
	ItemID             string
	BorrowerID         string
	Quantity           int
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
	Notes              string
}

// LoanReturn is the outcome of returning a loan. ItemMissing is set when the
// item had been removed, in which case no stock was restored and Movement is
// nil.
type LoanReturn struct {
	Loan        model.Loan      `json:"loan"`
	Movement    *model.Movement `json:"movement,omitempty"`
	ItemMissing bool            `json:"itemMissing"`
}

func loanNote(borrower string, notes string) string {
	note := "Loan to " + borrower
	if notes != "" {
		note += ": " + notes
	}
	return note
}

func returnNote(borrower string) string {
	return "Return of loan by " + borrower
}

// CreateLoan withdraws the quantity from the item, appends an Output
// movement and stores the active loan, all in one transaction.
func (s *Service) CreateLoan(ctx context.Context, sess model.Session, req LoanRequest) (_ *model.Loan, err error) {
	ctx, span := s.startSpan(ctx, "CreateLoan",
		attribute.String("item.id", req.ItemID),
		attribute.String("borrower.id", req.BorrowerID),
		attribute.Int("loan.quantity", req.Quantity))
	defer func() { endSpan(span, err) }()

	now := s.clock()
	if req.BorrowDate.IsZero() {
		req.BorrowDate = now
	}

	var loan *model.Loan
	st := &steps{op: "create loan"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		item, borrower, err := validateLoan(ctx, tx, req)
		if err != nil {
			return err
		}

		m := &model.Movement{
			Type:            model.MovementOutput,
			Reason:          model.ReasonUse,
			Quantity:        req.Quantity,
			ResponsibleUser: sess.User,
			Date:            now,
			Notes:           loanNote(borrower.Name, req.Notes),
		}
		if err := s.applyAndRecord(ctx, tx, st, item.ID, m, CauseLoan); err != nil {
			return err
		}

		loan = &model.Loan{
			Item:               m.Item,
			Borrower:           borrower.Snapshot(),
			Quantity:           req.Quantity,
			BorrowDate:         req.BorrowDate.UTC(),
			ExpectedReturnDate: req.ExpectedReturnDate.UTC(),
			Notes:              req.Notes,
		}
		if err := store.CreateLoan(ctx, tx, loan); err != nil {
			return st.fail("create loan", err)
		}
		st.ok("create loan")
		return nil
	})
	if err != nil {
		s.reject("create_loan", err)
		return nil, err
	}

	s.metrics.MovementRecorded(string(model.MovementOutput), string(model.ReasonUse))
	s.metrics.LoanEvent("created")
	s.log.Info().
		Str("user", sess.User.Name).
		Str("item", loan.Item.Name).
		Str("borrower", loan.Borrower.Name).
		Int("quantity", loan.Quantity).
		Msg("loan created")
	s.changed(ctx)
	return loan, nil
}

// validateLoan checks a loan request against current state. It performs no
// writes.
func validateLoan(ctx context.Context, tx *sql.Tx, req LoanRequest) (*model.Item, *model.User, error) {
	item, err := store.GetItem(ctx, tx, req.ItemID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	if item == nil {
		return nil, nil, fmt.Errorf("%w: item %s", ErrNotFound, req.ItemID)
	}
	if req.Quantity <= 0 {
		return nil, nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidRange, req.Quantity)
	}
	if req.Quantity > item.Quantity {
		return nil, nil, fmt.Errorf("%w: item %s has %d, need %d", ErrInsufficientStock, item.ID, item.Quantity, req.Quantity)
	}

	borrower, err := store.GetUser(ctx, tx, req.BorrowerID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	if borrower == nil {
		return nil, nil, fmt.Errorf("%w: borrower %s", ErrNotFound, req.BorrowerID)
	}
	if req.ExpectedReturnDate.Before(req.BorrowDate) {
		return nil, nil, fmt.Errorf("%w: expected return %s is before borrow date %s",
			ErrInvalidRange, req.ExpectedReturnDate.Format(time.DateOnly), req.BorrowDate.Format(time.DateOnly))
	}
	return item, borrower, nil
}

// ReturnLoan stamps the loan as returned, restores the quantity to its item
// and appends an Input movement attributed to the session user. If the item
// no longer exists only the stamp is written.
func (s *Service) ReturnLoan(ctx context.Context, sess model.Session, loanID string) (_ *LoanReturn, err error) {
	ctx, span := s.startSpan(ctx, "ReturnLoan", attribute.String("loan.id", loanID))
	defer func() { endSpan(span, err) }()

	now := s.clock()
	result := &LoanReturn{}
	st := &steps{op: "return loan"}
	err = s.inTx(ctx, st, func(tx *sql.Tx) error {
		loan, err := store.GetLoan(ctx, tx, loanID)
		if err != nil {
			return storeErr(err)
		}
		if loan == nil {
			return fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		if !loan.Active() {
			return fmt.Errorf("%w: loan %s returned on %s", ErrAlreadyReturned, loanID,
				loan.ActualReturnDate.Format(time.DateOnly))
		}

		ok, err := store.MarkLoanReturned(ctx, tx, loanID, now, sess.User)
		if err != nil {
			return st.fail("stamp return", err)
		}
		if !ok {
			return fmt.Errorf("%w: loan %s", ErrAlreadyReturned, loanID)
		}
		st.ok("stamp return")

		returnedBy := sess.User
		loan.ActualReturnDate = &now
		loan.ReturnedBy = &returnedBy
		result.Loan = *loan

		item, err := store.GetItem(ctx, tx, loan.Item.ID)
		if err != nil {
			return st.fail("load item", err)
		}
		if item == nil {
			result.ItemMissing = true
			return nil
		}

		m := &model.Movement{
			Type:            model.MovementInput,
			Reason:          model.ReasonOther,
			Quantity:        loan.Quantity,
			ResponsibleUser: sess.User,
			Date:            now,
			Notes:           returnNote(loan.Borrower.Name),
		}
		if err := s.applyAndRecord(ctx, tx, st, item.ID, m, CauseLoan); err != nil {
			return err
		}
		result.Movement = m
		return nil
	})
	if err != nil {
		s.reject("return_loan", err)
		return nil, err
	}

	s.metrics.LoanEvent("returned")
	if result.ItemMissing {
		s.metrics.LoanEvent("returned_item_missing")
		s.log.Warn().
			Str("loan", loanID).
			Str("item", result.Loan.Item.ID).
			Msg("loan returned but item no longer exists; stock not restored")
	} else {
		s.metrics.MovementRecorded(string(model.MovementInput), string(model.ReasonOther))
	}
	s.log.Info().
		Str("user", sess.User.Name).
		Str("item", result.Loan.Item.Name).
		Str("borrower", result.Loan.Borrower.Name).
		Int("quantity", result.Loan.Quantity).
		Msg("loan returned")
	s.changed(ctx)
	return result, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

const loanColumns = `id, item_id, item_name, item_unit, item_category, item_location,
	borrower_id, borrower_name, borrower_email, borrower_role, quantity,
	borrow_date, expected_return_date, actual_return_date, returned_by_id, returned_by_name, notes`

// CreateLoan inserts an active loan.
func CreateLoan(ctx context.Context, db DBTX, l *model.Loan) error {
	if l.ID == "" {
		l.ID = NewID()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO loans (id, item_id, item_name, item_unit, item_category, item_location,
		                    borrower_id, borrower_name, borrower_email, borrower_role, quantity,
		                    borrow_date, expected_return_date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Item.ID, l.Item.Name, l.Item.Unit, l.Item.CategoryName, l.Item.LocationID,
		l.Borrower.ID, l.Borrower.Name, l.Borrower.Email, string(l.Borrower.Role), l.Quantity,
		l.BorrowDate, l.ExpectedReturnDate, l.Notes,
	)
	if err != nil {
		return fmt.Errorf("creating loan: %w", err)
	}
	return nil
}

// ImportLoan inserts a loan in any state, including returned ones.
func ImportLoan(ctx context.Context, db DBTX, l *model.Loan) error {
	if err := CreateLoan(ctx, db, l); err != nil {
		return err
	}
	if l.ActualReturnDate == nil {
		return nil
	}
	by := model.UserSnapshot{}
	if l.ReturnedBy != nil {
		by = *l.ReturnedBy
	}
	if _, err := MarkLoanReturned(ctx, db, l.ID, *l.ActualReturnDate, by); err != nil {
		return err
	}
	return nil
}

// GetLoan returns a loan by ID.
func GetLoan(ctx context.Context, db DBTX, id string) (*model.Loan, error) {
	l, err := scanLoan(db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return l, nil
}

// LoanFilter narrows ListLoans. Zero values match everything.
type LoanFilter struct {
	ItemID     string
	BorrowerID string
	ActiveOnly bool
}

// ListLoans returns loans, most recently borrowed first.
func ListLoans(ctx context.Context, db DBTX, filter LoanFilter) ([]model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE 1=1`
	var args []any

	if filter.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.BorrowerID != "" {
		query += ` AND borrower_id = ?`
		args = append(args, filter.BorrowerID)
	}
	if filter.ActiveOnly {
		query += ` AND actual_return_date IS NULL`
	}
	query += ` ORDER BY borrow_date DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	loans := []model.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

// CountActiveLoansForItem returns the number of unreturned loans of an item.
func CountActiveLoansForItem(ctx context.Context, db DBTX, itemID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE item_id = ? AND actual_return_date IS NULL`, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active loans: %w", err)
	}
	return count, nil
}

// MarkLoanReturned stamps the return date on an active loan. It reports
// false when the loan does not exist or was already returned.
func MarkLoanReturned(ctx context.Context, db DBTX, id string, at time.Time, by model.UserSnapshot) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE loans SET actual_return_date = ?, returned_by_id = ?, returned_by_name = ?
		 WHERE id = ? AND actual_return_date IS NULL`,
		at, by.ID, by.Name, id,
	)
	if err != nil {
		return false, fmt.Errorf("marking loan returned: %w", err)
	}
	return affected(result)
}

func scanLoan(row rowScanner) (*model.Loan, error) {
	var (
		l                  model.Loan
		role               string
		returnedAt         sql.NullTime
		returnedByID, name sql.NullString
	)
	err := row.Scan(&l.ID, &l.Item.ID, &l.Item.Name, &l.Item.Unit, &l.Item.CategoryName, &l.Item.LocationID,
		&l.Borrower.ID, &l.Borrower.Name, &l.Borrower.Email, &role, &l.Quantity,
		&l.BorrowDate, &l.ExpectedReturnDate, &returnedAt, &returnedByID, &name, &l.Notes)
	if err != nil {
		return nil, err
	}

	l.Borrower.Role = model.Role(role)
	if returnedAt.Valid {
		at := returnedAt.Time
		l.ActualReturnDate = &at
	}
	if returnedByID.Valid && returnedByID.String != "" {
		l.ReturnedBy = &model.UserSnapshot{ID: returnedByID.String, Name: name.String}
	}
	return &l, nil
}
